package seedtool

import (
	"fmt"
	"log"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// minGroupsForCorrelation guards the correlation estimates against tiny
// samples.
const minGroupsForCorrelation = 4

// runDiagnostics checks the retrieved indices against what the seeded
// concentration profiles predict: uniform groups should out-rank
// dominant ones, Shannon and Simpson should move together, and Shannon
// and Gini should move against each other.
func runDiagnostics(config *Config, plans []GroupPlan, entries map[string]GroupEntry, listing []GroupEntry) error {
	log.Println("running diagnostics...")

	if err := checkProfileOrdering(plans, entries); err != nil {
		return err
	}
	if err := checkIndexCorrelations(entries); err != nil {
		return err
	}
	checkListingConsistency(listing)

	displayTopGroups(listing, config.Verbose)

	log.Println("diagnostics completed")
	return nil
}

// displayExplanations prints the explanation table next to the results.
func displayExplanations(explanations []Explanation) {
	log.Println("index explanations:")
	for _, e := range explanations {
		log.Printf("   %s (%s): %s", e.Name, e.TypicalRange, e.Description)
	}
}

// checkProfileOrdering verifies the mean entropy per profile follows
// uniform > skewed > dominant.
func checkProfileOrdering(plans []GroupPlan, entries map[string]GroupEntry) error {
	sums := map[string]float64{}
	counts := map[string]int{}

	for _, plan := range plans {
		entry, ok := entries[plan.Group]
		if !ok {
			continue
		}
		shannon := entry.Indices["shannon"]
		if shannon == nil {
			continue
		}
		sums[plan.Profile] += *shannon
		counts[plan.Profile]++
	}

	mean := func(profile string) (float64, bool) {
		if counts[profile] == 0 {
			return 0, false
		}
		return sums[profile] / float64(counts[profile]), true
	}

	uniform, okU := mean("uniform")
	skewed, okS := mean("skewed")
	dominant, okD := mean("dominant")
	if !okU || !okS || !okD {
		log.Println("not enough groups per profile to check ordering; skipping")
		return nil
	}

	log.Printf("mean shannon by profile: uniform=%.3f skewed=%.3f dominant=%.3f", uniform, skewed, dominant)

	if uniform <= skewed || skewed <= dominant {
		return fmt.Errorf("profile ordering violated: uniform=%.3f skewed=%.3f dominant=%.3f",
			uniform, skewed, dominant)
	}

	log.Println("profile ordering verified: uniform > skewed > dominant")

	// Weighted groups carry uniform raw values with skewed per-row
	// weights, so their entropy must land below the uniform groups'.
	if weighted, ok := mean("weighted"); ok {
		if weighted >= uniform {
			return fmt.Errorf("weighted groups should score below uniform: weighted=%.3f uniform=%.3f",
				weighted, uniform)
		}
		log.Printf("weight effect verified: weighted=%.3f < uniform=%.3f", weighted, uniform)
	}

	return nil
}

// checkIndexCorrelations computes pairwise correlations over all groups
// that report every index.
func checkIndexCorrelations(entries map[string]GroupEntry) error {
	var shannon, simpson, gini []float64
	for _, entry := range entries {
		s, p, g := entry.Indices["shannon"], entry.Indices["simpson"], entry.Indices["gini"]
		if s == nil || p == nil || g == nil {
			continue
		}
		shannon = append(shannon, *s)
		simpson = append(simpson, *p)
		gini = append(gini, *g)
	}

	if len(shannon) < minGroupsForCorrelation {
		log.Println("not enough groups for correlation diagnostics; skipping")
		return nil
	}

	shannonSimpson := stat.Correlation(shannon, simpson, nil)
	shannonGini := stat.Correlation(shannon, gini, nil)

	log.Printf("index correlations over %d groups: shannon/simpson=%.3f shannon/gini=%.3f",
		len(shannon), shannonSimpson, shannonGini)

	if shannonSimpson <= 0 {
		return fmt.Errorf("expected positive shannon/simpson correlation, got %.3f", shannonSimpson)
	}
	if shannonGini >= 0 {
		return fmt.Errorf("expected negative shannon/gini correlation, got %.3f", shannonGini)
	}

	log.Println("index correlations verified")
	return nil
}

// checkListingConsistency warns when the listing is not ordered by the
// entries' shannon values. The service may rank by another configured
// index, so this is advisory only.
func checkListingConsistency(listing []GroupEntry) {
	for i := 1; i < len(listing); i++ {
		if listing[i].Rank < listing[i-1].Rank {
			log.Printf("listing rank order violated at position %d", i)
			return
		}
	}
	log.Println("listing rank order verified")
}

// displayTopGroups shows the best-ranked groups from the listing.
func displayTopGroups(listing []GroupEntry, verbose bool) {
	topN := 10
	if len(listing) < topN {
		topN = len(listing)
	}

	log.Printf("top %d groups from listing:", topN)
	for i := 0; i < topN; i++ {
		entry := listing[i]
		shannon := "null"
		if v := entry.Indices["shannon"]; v != nil {
			shannon = fmt.Sprintf("%.3f", *v)
		}
		log.Printf("   %d. %s - shannon: %s", entry.Rank, entry.Group, shannon)
	}

	if verbose && len(listing) > 0 {
		values := make([]float64, 0, len(listing))
		for _, entry := range listing {
			if v := entry.Indices["shannon"]; v != nil {
				values = append(values, *v)
			}
		}
		if len(values) > 0 {
			sort.Float64s(values)
			log.Printf("shannon statistics: mean=%.3f min=%.3f max=%.3f",
				stat.Mean(values, nil), values[0], values[len(values)-1])
		}
	}
}
