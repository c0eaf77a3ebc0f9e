package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mightytigers/matchday/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new in-memory deduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("When an update id arrives for the first time", func() {
			seen := d.SeenAndRecord(context.Background(), "upd-1")

			Convey("Then it is newly recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the same update id arrives twice", func() {
			d.SeenAndRecord(context.Background(), "upd-1")
			seen := d.SeenAndRecord(context.Background(), "upd-1")

			Convey("Then the second delivery is flagged as duplicate", func() {
				So(seen, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When an id is unrecorded", func() {
			d.SeenAndRecord(context.Background(), "upd-1")
			d.Unrecord(context.Background(), "upd-1")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(context.Background(), "upd-1"), ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown id", func() {
			d.Unrecord(context.Background(), "ghost")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a deduper with a three-day retention window", t, func() {
		start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
		clock := clockwork.NewFakeClockAt(start)
		d := dedupe.NewInMemoryDeduper(
			dedupe.WithRetention(72*time.Hour),
			dedupe.WithClock(clock),
		)

		Convey("When an id ages past the window", func() {
			So(d.SeenAndRecord(context.Background(), "upd-1"), ShouldBeFalse)
			clock.Advance(72*time.Hour + time.Minute)

			Convey("Then a replay is treated as new and the old entry is gone", func() {
				So(d.SeenAndRecord(context.Background(), "upd-1"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When an id is still inside the window", func() {
			So(d.SeenAndRecord(context.Background(), "upd-1"), ShouldBeFalse)
			clock.Advance(71 * time.Hour)

			Convey("Then a replay is still a duplicate", func() {
				So(d.SeenAndRecord(context.Background(), "upd-1"), ShouldBeTrue)
			})
		})

		Convey("When old ids expire while new ones arrive", func() {
			So(d.SeenAndRecord(context.Background(), "old-1"), ShouldBeFalse)
			So(d.SeenAndRecord(context.Background(), "old-2"), ShouldBeFalse)
			clock.Advance(73 * time.Hour)

			Convey("Then recording a fresh id sweeps the expired ones out", func() {
				So(d.SeenAndRecord(context.Background(), "new-1"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a deduper bounded to three entries", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

		Convey("When a fourth id is recorded", func() {
			for i := 1; i <= 4; i++ {
				So(d.SeenAndRecord(context.Background(), fmt.Sprintf("upd-%d", i)), ShouldBeFalse)
			}

			Convey("Then the oldest id is evicted to hold the bound", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(context.Background(), "upd-1"), ShouldBeFalse)
			})
		})
	})

	Convey("Given concurrent deliveries of the same id", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("When ten goroutines race on one update id", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			fresh := 0
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if !d.SeenAndRecord(context.Background(), "upd-race") {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one wins", func() {
				So(fresh, ShouldEqual, 1)
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})
}
