package diversity

// Explanation is a human-readable description of one index, suitable for
// display next to computed results.
type Explanation struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Example      string `json:"example"`
	TypicalRange string `json:"typical_range"`
}

// Explain returns the static explanation table: one row per index, plus the
// normalized Shannon variant, in display order. No inputs, no side effects.
func Explain() []Explanation {
	return []Explanation{
		{
			Name:         "shannon",
			Description:  "Shannon entropy: how evenly the group's total is spread across categories. Higher means more even.",
			Example:      "A day split equally across four activities scores ln(4); a day spent on one activity scores 0.",
			TypicalRange: "0 to log(k), where k is the number of active categories",
		},
		{
			Name:         "shannon_normalized",
			Description:  "Shannon entropy divided by its maximum log(k), so groups with different category counts are comparable.",
			Example:      "1.0 means perfectly even across whatever categories the group used; 0 means a single category.",
			TypicalRange: "0 to 1",
		},
		{
			Name:         "simpson",
			Description:  "Simpson diversity: the probability that two independent draws from the group fall in different categories.",
			Example:      "Four equal categories give 0.75; one dominant category pushes the value toward 0.",
			TypicalRange: "0 to 1 - 1/k",
		},
		{
			Name:         "gini",
			Description:  "Gini coefficient: inequality of the category proportions. 0 is perfectly even, values near 1 mean one category holds almost everything.",
			Example:      "Equal shares across categories give 0; values of [100, 0, 0, 0] give 0.75.",
			TypicalRange: "0 to just below 1",
		},
	}
}
