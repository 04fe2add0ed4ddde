package metrics_test

import (
	"testing"

	"github.com/diva-metrics/diva/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		reg := prometheus.NewRegistry()
		m := metrics.NewManager(
			metrics.WithNamespace("testns"),
			metrics.WithSubsystem("testsub"),
			metrics.WithHistogramBuckets([]float64{1, 10, 100}),
			metrics.WithRegistry(reg),
		)

		Convey("Then construction registers collectors without panicking", func() {
			So(m, ShouldNotBeNil)
			families, err := reg.Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording every metric kind", func() {
			So(func() {
				metrics.RecordObservationProcessed()
				metrics.RecordObservationDuplicate()
				metrics.RecordComputeLatency(1.5)
				metrics.RecordComputeError()
				metrics.RecordGroupUpdate()
				metrics.RecordStoreUpdateLatency(0.2)
				metrics.RecordStoreQueryLatency(0.1)
				metrics.RecordStoreError()
				metrics.RecordSnapshotRebuildDuration(3)
				metrics.UpdateSnapshotLastUnix(1700000000)
				metrics.UpdateTotalGroups(12)
				metrics.UpdateRankedGroups(10)
				metrics.UpdateQueueSize(5)
				metrics.UpdateQueueCapacity(100)
				metrics.UpdateQueueUtilization(0.05)
				metrics.RecordQueueEnqueue()
				metrics.RecordQueueDequeue()
				metrics.RecordQueueEnqueueError()
				metrics.RecordQueueLatency(0.3)
				metrics.UpdateWorkerCount(4)
				metrics.RecordWorkerLatency(2.5)
				metrics.RecordWorkerError()
				metrics.RecordHTTPRequest("groups", "GET", "200")
				metrics.RecordHTTPRequestDuration("groups", "GET", "200", 4.2)
				metrics.RecordErrorByComponent("store", "not_found")
				metrics.UpdateSystemMemoryUsage(1 << 20)
				metrics.UpdateSystemGoroutineCount(42)
			}, ShouldNotPanic)
		})

		Convey("When gathering the custom registry", func() {
			families, err := metrics.GetRegistry().Gather()

			Convey("Then diva metrics are present", func() {
				So(err, ShouldBeNil)
				names := make(map[string]bool, len(families))
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["diva_indices_observations_processed_total"], ShouldBeTrue)
				So(names["diva_indices_queue_size"], ShouldBeTrue)
				So(names["diva_indices_http_requests_total"], ShouldBeTrue)
			})
		})
	})
}
