package main

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestUpdateSystemMetrics(t *testing.T) {
	Convey("Given the system metrics updater", t, func() {
		Convey("When refreshing system gauges", func() {
			So(updateSystemMetrics, ShouldNotPanic)
		})
	})
}
