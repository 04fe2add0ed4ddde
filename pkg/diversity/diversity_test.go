package diversity_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/diva-metrics/diva/pkg/diversity"
	. "github.com/smartystreets/goconvey/convey"
)

// row is the test row shape: one record per (day, category).
type row struct {
	day    int
	value  float64
	weight float64
}

func dayKey(r row) int                  { return r.day }
func value(r row) (float64, error)      { return r.value, nil }
func weight(r row) (float64, error)     { return r.weight, nil }
func badValue(r row) (float64, error)   { return 0, errors.New("not a number") }
func badWeight(r row) (float64, error)  { return 0, errors.New("not a number") }
func uniform(day int, vals ...float64) []row {
	rows := make([]row, len(vals))
	for i, v := range vals {
		rows[i] = row{day: day, value: v, weight: 1}
	}
	return rows
}

const tolerance = 1e-9

func TestComputeScenarios(t *testing.T) {
	ctx := context.Background()

	Convey("Given an unweighted computer with diagnostics", t, func() {
		c := diversity.NewComputer(dayKey, value,
			diversity.WithNormalizedShannon(),
			diversity.WithDiagnostics(),
		)

		Convey("When computing four equal categories [10 10 10 10]", func() {
			plain := diversity.NewComputer(dayKey, value, diversity.WithDiagnostics())
			results, err := plain.Compute(ctx, uniform(1, 10, 10, 10, 10))

			Convey("Then unnormalized Shannon is ln(4), Simpson 0.75, Gini 0", func() {
				So(err, ShouldBeNil)
				So(results, ShouldHaveLength, 1)
				r := results[0]
				So(r.Group, ShouldEqual, 1)
				So(r.Values[diversity.Shannon].Valid, ShouldBeTrue)
				So(r.Values[diversity.Shannon].Float64, ShouldAlmostEqual, math.Log(4), tolerance)
				So(r.Values[diversity.Simpson].Float64, ShouldAlmostEqual, 0.75, tolerance)
				So(r.Values[diversity.Gini].Float64, ShouldAlmostEqual, 0, tolerance)
				So(r.Total, ShouldAlmostEqual, 40, tolerance)
				So(r.Categories, ShouldEqual, 4)
			})

			Convey("And the normalized Shannon of the same group is 1", func() {
				normed, nerr := c.Compute(ctx, uniform(1, 10, 10, 10, 10))
				So(nerr, ShouldBeNil)
				So(normed[0].Values[diversity.Shannon].Float64, ShouldAlmostEqual, 1.0, tolerance)
			})
		})

		Convey("When one category holds everything [100 0 0 0]", func() {
			results, err := c.Compute(ctx, uniform(2, 100, 0, 0, 0))

			Convey("Then Shannon and Simpson are 0 and Gini is 0.75", func() {
				So(err, ShouldBeNil)
				r := results[0]
				So(r.Values[diversity.Shannon].Valid, ShouldBeTrue)
				So(r.Values[diversity.Shannon].Float64, ShouldAlmostEqual, 0, tolerance)
				So(r.Values[diversity.Simpson].Float64, ShouldAlmostEqual, 0, tolerance)
				So(r.Values[diversity.Gini].Float64, ShouldAlmostEqual, 0.75, tolerance)
				So(r.Categories, ShouldEqual, 1)
			})
		})

		Convey("When a group's values are all zero", func() {
			results, err := c.Compute(ctx, uniform(3, 0, 0, 0))

			Convey("Then every index is the undefined marker, not zero and not an error", func() {
				So(err, ShouldBeNil)
				r := results[0]
				So(r.Values[diversity.Shannon].Valid, ShouldBeFalse)
				So(r.Values[diversity.Simpson].Valid, ShouldBeFalse)
				So(r.Values[diversity.Gini].Valid, ShouldBeFalse)
				So(r.Total, ShouldAlmostEqual, 0, tolerance)
				So(r.Categories, ShouldEqual, 0)
			})
		})

		Convey("When rows span several days", func() {
			rows := append(uniform(7, 5, 5), uniform(4, 1, 9)...)
			rows = append(rows, row{day: 7, value: 10})
			results, err := c.Compute(ctx, rows)

			Convey("Then each day appears once, in first-seen order", func() {
				So(err, ShouldBeNil)
				So(results, ShouldHaveLength, 2)
				So(results[0].Group, ShouldEqual, 7)
				So(results[1].Group, ShouldEqual, 4)
				So(results[0].Categories, ShouldEqual, 3)
			})
		})
	})
}

func TestComputeWeighted(t *testing.T) {
	ctx := context.Background()

	Convey("Given a weighted computer", t, func() {
		weighted := diversity.NewWeightedComputer(dayKey, value, weight)
		unweighted := diversity.NewComputer(dayKey, value)

		rows := []row{
			{day: 1, value: 10, weight: 1},
			{day: 1, value: 10, weight: 4},
			{day: 1, value: 10, weight: 1},
		}

		Convey("When weights are non-uniform within a group", func() {
			wres, werr := weighted.Compute(ctx, rows)
			ures, uerr := unweighted.Compute(ctx, rows)

			Convey("Then the weighted indices differ from the unweighted run", func() {
				So(werr, ShouldBeNil)
				So(uerr, ShouldBeNil)
				wShannon := wres[0].Values[diversity.Shannon].Float64
				uShannon := ures[0].Values[diversity.Shannon].Float64
				So(math.Abs(wShannon-uShannon), ShouldBeGreaterThan, tolerance)
			})
		})

		Convey("When weights are uniform", func() {
			even := []row{
				{day: 1, value: 3, weight: 2},
				{day: 1, value: 7, weight: 2},
			}
			wres, werr := weighted.Compute(ctx, even)
			ures, uerr := unweighted.Compute(ctx, even)

			Convey("Then proportions are unchanged and indices agree", func() {
				So(werr, ShouldBeNil)
				So(uerr, ShouldBeNil)
				So(wres[0].Values[diversity.Gini].Float64, ShouldAlmostEqual,
					ures[0].Values[diversity.Gini].Float64, tolerance)
			})
		})
	})
}

func TestComputeProperties(t *testing.T) {
	ctx := context.Background()

	Convey("Given groups with assorted positive values", t, func() {
		c := diversity.NewComputer(dayKey, value,
			diversity.WithDiagnostics(),
		)
		rows := append(uniform(1, 2, 3, 5, 7, 11), uniform(2, 1, 1, 1)...)
		rows = append(rows, uniform(3, 9, 0.5, 0.5)...)

		results, err := c.Compute(ctx, rows)
		So(err, ShouldBeNil)

		Convey("Then proportions partition the group total", func() {
			// Simpson and Gini bounds double as a partition check.
			for _, r := range results {
				k := float64(r.Categories)
				So(r.Values[diversity.Simpson].Float64, ShouldBeGreaterThanOrEqualTo, 0)
				So(r.Values[diversity.Simpson].Float64, ShouldBeLessThanOrEqualTo, 1-1/k+tolerance)
				So(r.Values[diversity.Gini].Float64, ShouldBeGreaterThanOrEqualTo, 0)
				So(r.Values[diversity.Gini].Float64, ShouldBeLessThan, 1)
				So(r.Values[diversity.Shannon].Float64, ShouldBeGreaterThanOrEqualTo, 0)
				So(r.Values[diversity.Shannon].Float64, ShouldBeLessThanOrEqualTo, math.Log(k)+tolerance)
			}
		})

		Convey("And computing twice yields identical output", func() {
			again, aerr := c.Compute(ctx, rows)
			So(aerr, ShouldBeNil)
			So(again, ShouldResemble, results)
		})

		Convey("And concentrating mass onto fewer categories moves every index the right way", func() {
			evenRes, _ := c.Compute(ctx, uniform(1, 10, 10, 10, 10))
			skewRes, _ := c.Compute(ctx, uniform(1, 37, 1, 1, 1))

			So(skewRes[0].Values[diversity.Shannon].Float64, ShouldBeLessThan,
				evenRes[0].Values[diversity.Shannon].Float64)
			So(skewRes[0].Values[diversity.Simpson].Float64, ShouldBeLessThan,
				evenRes[0].Values[diversity.Simpson].Float64)
			So(skewRes[0].Values[diversity.Gini].Float64, ShouldBeGreaterThan,
				evenRes[0].Values[diversity.Gini].Float64)
		})
	})

	Convey("Given a base-2 computer", t, func() {
		c := diversity.NewComputer(dayKey, value,
			diversity.WithIndices(diversity.Shannon),
			diversity.WithBase(2),
		)

		Convey("When computing four equal categories", func() {
			results, err := c.Compute(ctx, uniform(1, 1, 1, 1, 1))

			Convey("Then entropy comes out in bits", func() {
				So(err, ShouldBeNil)
				So(results[0].Values[diversity.Shannon].Float64, ShouldAlmostEqual, 2.0, tolerance)
				_, simpsonRequested := results[0].Values[diversity.Simpson]
				So(simpsonRequested, ShouldBeFalse)
			})
		})
	})

	Convey("Given rows with negative and NaN effective values", t, func() {
		c := diversity.NewComputer(dayKey, value, diversity.WithDiagnostics())

		Convey("When some contributions are out of domain", func() {
			rows := []row{
				{day: 1, value: 6},
				{day: 1, value: -3},
				{day: 1, value: math.NaN()},
				{day: 1, value: 6},
			}
			results, err := c.Compute(ctx, rows)

			Convey("Then they are skipped, not propagated", func() {
				So(err, ShouldBeNil)
				r := results[0]
				So(r.Total, ShouldAlmostEqual, 12, tolerance)
				So(r.Categories, ShouldEqual, 2)
				So(r.Values[diversity.Shannon].Float64, ShouldAlmostEqual, math.Log(2), tolerance)
			})
		})

		Convey("When every contribution is out of domain", func() {
			rows := []row{{day: 1, value: -1}, {day: 1, value: math.NaN()}}
			results, err := c.Compute(ctx, rows)

			Convey("Then the group is undefined rather than crashing", func() {
				So(err, ShouldBeNil)
				So(results[0].Values[diversity.Gini].Valid, ShouldBeFalse)
			})
		})
	})
}

func TestComputeArgumentErrors(t *testing.T) {
	ctx := context.Background()
	rows := uniform(1, 1, 2, 3)

	Convey("Given invalid computer configurations", t, func() {
		Convey("When an unknown index is requested", func() {
			c := diversity.NewComputer(dayKey, value, diversity.WithIndices("herfindahl"))
			_, err := c.Compute(ctx, rows)

			Convey("Then the call aborts with ErrUnknownIndex", func() {
				So(errors.Is(err, diversity.ErrUnknownIndex), ShouldBeTrue)
			})
		})

		Convey("When the index set is empty", func() {
			c := diversity.NewComputer(dayKey, value, diversity.WithIndices())
			_, err := c.Compute(ctx, rows)

			So(errors.Is(err, diversity.ErrNoIndices), ShouldBeTrue)
		})

		Convey("When the Shannon base is 1 or non-positive", func() {
			for _, base := range []float64{1, 0, -2} {
				c := diversity.NewComputer(dayKey, value, diversity.WithBase(base))
				_, err := c.Compute(ctx, rows)
				So(errors.Is(err, diversity.ErrInvalidBase), ShouldBeTrue)
			}
		})

		Convey("When the value accessor fails", func() {
			c := diversity.NewComputer(dayKey, badValue)
			results, err := c.Compute(ctx, rows)

			Convey("Then the whole call aborts with no partial results", func() {
				So(errors.Is(err, diversity.ErrInvalidValue), ShouldBeTrue)
				So(results, ShouldBeNil)
			})
		})

		Convey("When the weight accessor fails", func() {
			c := diversity.NewWeightedComputer(dayKey, value, badWeight)
			_, err := c.Compute(ctx, rows)

			So(errors.Is(err, diversity.ErrInvalidWeight), ShouldBeTrue)
		})
	})
}

func TestValueJSON(t *testing.T) {
	Convey("Given defined and undefined values", t, func() {
		Convey("When marshaling", func() {
			defined, derr := diversity.Defined(0.75).MarshalJSON()
			undefined, uerr := diversity.Undefined.MarshalJSON()

			Convey("Then defined values are numbers and undefined is null", func() {
				So(derr, ShouldBeNil)
				So(string(defined), ShouldEqual, "0.75")
				So(uerr, ShouldBeNil)
				So(string(undefined), ShouldEqual, "null")
			})
		})

		Convey("When round-tripping through UnmarshalJSON", func() {
			var v diversity.Value
			So(v.UnmarshalJSON([]byte("0.5")), ShouldBeNil)
			So(v, ShouldResemble, diversity.Defined(0.5))
			So(v.UnmarshalJSON([]byte("null")), ShouldBeNil)
			So(v.Valid, ShouldBeFalse)
		})
	})
}
