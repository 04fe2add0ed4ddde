package weighting_test

import (
	"context"
	"testing"

	"github.com/diva-metrics/diva/internal/domain/weighting"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryWeigher(t *testing.T) {
	ctx := context.Background()

	Convey("Given a weigher with configured category weights", t, func() {
		w := weighting.NewInMemoryWeigher(
			weighting.WithCategoryWeightsFromConfig(map[string]float64{
				"exercise": 2.0,
				"reading":  0.5,
				"ignored":  -3.0, // non-positive weights are dropped
			}, 1.0),
		)

		Convey("When weighing a configured category", func() {
			res, err := w.Weigh(ctx, weighting.Input{
				Group: "day-1", Category: "exercise", Value: 30, Weight: 1,
			})

			Convey("Then the category weight applies", func() {
				So(err, ShouldBeNil)
				So(res.Effective, ShouldAlmostEqual, 60.0)
				So(res.Group, ShouldEqual, "day-1")
				So(res.Category, ShouldEqual, "exercise")
			})
		})

		Convey("When weighing an unknown category", func() {
			res, err := w.Weigh(ctx, weighting.Input{
				Group: "day-1", Category: "cooking", Value: 30, Weight: 1,
			})

			Convey("Then the default weight applies", func() {
				So(err, ShouldBeNil)
				So(res.Effective, ShouldAlmostEqual, 30.0)
			})
		})

		Convey("When a category's configured weight was non-positive", func() {
			res, err := w.Weigh(ctx, weighting.Input{
				Group: "day-1", Category: "ignored", Value: 10, Weight: 1,
			})

			Convey("Then it falls back to the default weight", func() {
				So(err, ShouldBeNil)
				So(res.Effective, ShouldAlmostEqual, 10.0)
			})
		})

		Convey("When the observation carries its own weight", func() {
			res, err := w.Weigh(ctx, weighting.Input{
				Group: "day-2", Category: "reading", Value: 40, Weight: 3,
			})

			Convey("Then both weights multiply the value", func() {
				So(err, ShouldBeNil)
				So(res.Effective, ShouldAlmostEqual, 60.0) // 40 * 3 * 0.5
			})
		})

		Convey("When the context is already cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := w.Weigh(cancelled, weighting.Input{Group: "g", Category: "c", Value: 1, Weight: 1})

			So(err, ShouldNotBeNil)
		})

		Convey("When overriding a weight at runtime", func() {
			w.SetCategoryWeight("exercise", 4.0)
			res, err := w.Weigh(ctx, weighting.Input{
				Group: "day-1", Category: "exercise", Value: 10, Weight: 1,
			})

			So(err, ShouldBeNil)
			So(res.Effective, ShouldAlmostEqual, 40.0)
		})
	})
}
