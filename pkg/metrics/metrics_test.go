package metrics_test

import (
	"testing"

	"github.com/mightytigers/matchday/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetrics(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording pipeline counters", func() {
			So(metrics.RecordConfirmationProcessed, ShouldNotPanic)
			So(metrics.RecordConfirmationDuplicate, ShouldNotPanic)
			So(metrics.RecordConfirmationRejected, ShouldNotPanic)
			So(func() { metrics.RecordVote("going") }, ShouldNotPanic)
			So(metrics.RecordMatchCreated, ShouldNotPanic)
			So(metrics.RecordMatchRetired, ShouldNotPanic)
		})

		Convey("When updating gauges", func() {
			So(func() { metrics.UpdateQueueSize(3) }, ShouldNotPanic)
			So(func() { metrics.UpdateQueueCapacity(100) }, ShouldNotPanic)
			So(func() { metrics.UpdateWorkerCount(4) }, ShouldNotPanic)
			So(func() { metrics.UpdateDedupeEntries(42) }, ShouldNotPanic)
			So(func() { metrics.UpdateTeamsTracked(2) }, ShouldNotPanic)
		})

		Convey("When recording HTTP metrics", func() {
			So(func() { metrics.RecordHTTPRequest("confirmations", "POST", "202") }, ShouldNotPanic)
			So(func() { metrics.RecordHTTPRequestDuration("confirmations", "POST", "202", 1.5) }, ShouldNotPanic)
		})

		Convey("Then the custom registry should be gatherable", func() {
			families, err := metrics.GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}

func TestNewManager(t *testing.T) {
	Convey("Given explicit manager construction", t, func() {
		Convey("When building with a private registry", func() {
			m := metrics.NewManager(
				metrics.WithNamespace("test"),
				metrics.WithSubsystem("suite"),
				metrics.WithPrometheusRegistry(metrics.GetRegistry()),
			)

			Convey("Then it should not be nil", func() {
				So(m, ShouldNotBeNil)
			})
		})
	})
}
