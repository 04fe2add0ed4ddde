package dedupe_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/diva-metrics/diva/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a bounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

		Convey("When recording a fresh ID", func() {
			seen := d.SeenAndRecord(ctx, "obs-1")

			Convey("Then it is newly recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And recording it again reports a duplicate", func() {
				So(d.SeenAndRecord(ctx, "obs-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When unrecording an ID", func() {
			d.SeenAndRecord(ctx, "obs-2")
			d.Unrecord(ctx, "obs-2")

			Convey("Then it can be recorded again", func() {
				So(d.SeenAndRecord(ctx, "obs-2"), ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown ID", func() {
			So(func() { d.Unrecord(ctx, "missing") }, ShouldNotPanic)
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When exceeding the capacity", func() {
			for i := 0; i < 5; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("obs-%d", i))
			}

			Convey("Then the oldest entries are evicted first", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "obs-0"), ShouldBeFalse) // evicted, fresh again
				So(d.SeenAndRecord(ctx, "obs-4"), ShouldBeTrue)  // still cached
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))

		Convey("When recording many IDs", func() {
			for i := 0; i < 1000; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("obs-%d", i)), ShouldBeFalse)
			}

			Convey("Then nothing is evicted", func() {
				So(d.Size(), ShouldEqual, 1000)
				So(d.SeenAndRecord(ctx, "obs-0"), ShouldBeTrue)
			})
		})
	})
}
