package seedtool

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/diva-metrics/diva/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func TestGenerateObservations(t *testing.T) {
	Convey("Given a simulation config", t, func() {
		config := &Config{
			NumObservations: 120,
			NumGroups:       8,
		}

		Convey("When observations are generated", func() {
			stats := &Stats{}
			observations, plans, err := generateObservations(context.Background(), config, stats)

			Convey("Then the requested count is produced", func() {
				So(err, ShouldBeNil)
				So(observations, ShouldHaveLength, 120)
				So(stats.ObservationsGenerated, ShouldEqual, 120)
			})

			Convey("Then every group has a plan with a known profile", func() {
				So(plans, ShouldHaveLength, 8)
				known := map[string]bool{}
				for _, p := range profiles {
					known[p.name] = true
				}
				seen := map[string]bool{}
				for _, plan := range plans {
					So(known[plan.Profile], ShouldBeTrue)
					So(seen[plan.Group], ShouldBeFalse)
					seen[plan.Group] = true
				}
			})

			Convey("Then observations only reference planned groups and known categories", func() {
				groups := map[string]bool{}
				for _, plan := range plans {
					groups[plan.Group] = true
				}
				cats := map[string]bool{}
				for _, c := range categories {
					cats[c] = true
				}
				for _, o := range observations {
					So(groups[o.Group], ShouldBeTrue)
					So(cats[o.Category], ShouldBeTrue)
					So(o.Value, ShouldBeGreaterThan, 0)
					So(o.ObservationID, ShouldNotBeBlank)
					So(o.TS, ShouldNotBeBlank)
				}
			})

			Convey("Then uniform groups spread mass wider than dominant groups", func() {
				perGroupCats := map[string]map[string]float64{}
				for _, o := range observations {
					if perGroupCats[o.Group] == nil {
						perGroupCats[o.Group] = map[string]float64{}
					}
					perGroupCats[o.Group][o.Category] += o.Value
				}
				profileByGroup := map[string]string{}
				for _, plan := range plans {
					profileByGroup[plan.Group] = plan.Profile
				}
				for group, totals := range perGroupCats {
					if profileByGroup[group] != "dominant" {
						continue
					}
					var max, sum float64
					for _, v := range totals {
						sum += v
						if v > max {
							max = v
						}
					}
					// The dominant profile puts 30 of 35 mass units on one
					// category.
					So(max/sum, ShouldBeGreaterThan, 0.5)
				}
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, _, err := generateObservations(ctx, config, &Stats{})

			Convey("Then generation aborts", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
