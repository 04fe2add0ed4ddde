package service_test

import (
	"context"
	"testing"
	"time"

	service "github.com/diva-metrics/diva/internal/app"
	"github.com/diva-metrics/diva/internal/domain/model"
	"github.com/diva-metrics/diva/pkg/diversity"
	"github.com/diva-metrics/diva/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestServiceNew(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			So(svc.MaxGroupsLimit(), ShouldEqual, 100)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(50_000),
			service.WithDedupeSize(25_000),
			service.WithMaxGroupsLimit(25),
			service.WithRankIndex(diversity.Gini),
			service.WithShannonBase(2),
		)

		Convey("Then it should be created successfully", func() {
			So(svc, ShouldNotBeNil)
			So(svc.MaxGroupsLimit(), ShouldEqual, 25)
		})
	})
}

func TestServiceStartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When starting the service", func() {
			err := svc.Start(ctx)

			Convey("Then it should start and report as running", func() {
				So(err, ShouldBeNil)
				So(svc.GetStats()["started"], ShouldEqual, true)
			})

			Convey("And starting again is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("When stopping the service", func() {
				svc.Stop()

				Convey("Then it should be marked as stopped", func() {
					So(svc.GetStats()["started"], ShouldEqual, false)
				})
			})
		})
	})
}

func TestServiceSeenAndRecord(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When checking a new observation ID", func() {
			So(svc.SeenAndRecord(ctx, "obs-123"), ShouldBeFalse)
		})

		Convey("When checking the same observation ID again", func() {
			svc.SeenAndRecord(ctx, "obs-456")
			So(svc.SeenAndRecord(ctx, "obs-456"), ShouldBeTrue)
		})

		Convey("When unrecording an observation ID", func() {
			svc.SeenAndRecord(ctx, "obs-789")
			svc.Unrecord(ctx, "obs-789")
			So(svc.SeenAndRecord(ctx, "obs-789"), ShouldBeFalse)
		})
	})
}

func TestServiceGetStats(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()

		Convey("When getting stats before starting", func() {
			stats := svc.GetStats()

			Convey("Then it should return basic stats", func() {
				So(stats, ShouldNotBeNil)
				So(stats["started"], ShouldEqual, false)
				So(stats["rankIndex"], ShouldEqual, "shannon")
			})
		})
	})
}

func waitForGroup(ctx context.Context, svc *service.Service, group string, categories int) (found bool) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		entry, err := svc.Group(ctx, group)
		if err == nil && entry.Categories != nil && *entry.Categories >= categories {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

func TestServiceEndToEnd(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(1000),
			service.WithDedupeSize(500),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When enqueueing observations for two groups", func() {
			observations := []model.Observation{
				{ObservationID: "o1", Group: "mon", Category: "exercise", Value: 25, Weight: 1, TS: time.Now()},
				{ObservationID: "o2", Group: "mon", Category: "reading", Value: 25, Weight: 1, TS: time.Now()},
				{ObservationID: "o3", Group: "mon", Category: "cooking", Value: 25, Weight: 1, TS: time.Now()},
				{ObservationID: "o4", Group: "mon", Category: "music", Value: 25, Weight: 1, TS: time.Now()},
				{ObservationID: "o5", Group: "tue", Category: "exercise", Value: 100, Weight: 1, TS: time.Now()},
			}
			for _, o := range observations {
				So(svc.Enqueue(ctx, o), ShouldBeTrue)
			}

			So(waitForGroup(ctx, svc, "mon", 4), ShouldBeTrue)
			So(waitForGroup(ctx, svc, "tue", 1), ShouldBeTrue)

			Convey("Then the uniform group carries maximal entropy", func() {
				entry, err := svc.Group(ctx, "mon")
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 1)
				So(entry.Indices[diversity.Shannon].Valid, ShouldBeTrue)
				So(entry.Indices[diversity.Shannon].Float64, ShouldAlmostEqual, 1.3862943611198906, 1e-9)
				So(entry.Indices[diversity.Simpson].Float64, ShouldAlmostEqual, 0.75, 1e-9)
				So(entry.Indices[diversity.Gini].Float64, ShouldAlmostEqual, 0.0, 1e-9)
			})

			Convey("Then the single-category group has zero diversity", func() {
				entry, err := svc.Group(ctx, "tue")
				So(err, ShouldBeNil)
				So(entry.Indices[diversity.Shannon].Float64, ShouldAlmostEqual, 0.0, 1e-9)
				So(entry.Indices[diversity.Simpson].Float64, ShouldAlmostEqual, 0.0, 1e-9)
			})

			Convey("Then the listing orders groups by entropy", func() {
				entries, err := svc.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].Group, ShouldEqual, "mon")
				So(entries[1].Group, ShouldEqual, "tue")
			})

			Convey("Then diagnostics report totals and category counts", func() {
				entry, err := svc.Group(ctx, "mon")
				So(err, ShouldBeNil)
				So(entry.Total, ShouldNotBeNil)
				So(*entry.Total, ShouldAlmostEqual, 100.0)
				So(entry.Categories, ShouldNotBeNil)
				So(*entry.Categories, ShouldEqual, 4)
			})
		})
	})
}
