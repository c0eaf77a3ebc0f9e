package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mightytigers/matchday/internal/adapters/mq/queue"
)

func confirmation(id string) queue.Event {
	return queue.Event{
		UpdateID:     id,
		TeamID:       "chat-1",
		MatchID:      "match-1",
		PlayerName:   "Alice",
		PlayerHandle: "@alice",
		Value:        "going",
		TS:           time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestInMemoryQueue(t *testing.T) {
	Convey("Given an in-memory queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		ctx := context.Background()

		Convey("When an event is enqueued", func() {
			ok := q.Enqueue(ctx, confirmation("upd-1"))

			Convey("Then it is accepted and counted", func() {
				So(ok, ShouldBeTrue)
				So(q.Len(ctx), ShouldEqual, 1)
			})

			Convey("Then a consumer receives it", func() {
				events := q.Dequeue(ctx)
				select {
				case got := <-events:
					So(got.UpdateID, ShouldEqual, "upd-1")
				case <-time.After(time.Second):
					t.Fatal("no event delivered")
				}
			})
		})

		Convey("When the queue is at capacity", func() {
			for i := 0; i < 4; i++ {
				So(q.Enqueue(ctx, confirmation(fmt.Sprintf("upd-%d", i))), ShouldBeTrue)
			}

			Convey("Then the next enqueue is rejected", func() {
				So(q.Enqueue(ctx, confirmation("upd-overflow")), ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 4)
			})
		})

		Convey("When the queue is closed", func() {
			So(q.Enqueue(ctx, confirmation("upd-1")), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueues are rejected", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, confirmation("upd-2")), ShouldBeFalse)
			})

			Convey("Then buffered events drain before the channel closes", func() {
				events := q.Dequeue(ctx)
				got, ok := <-events
				So(ok, ShouldBeTrue)
				So(got.UpdateID, ShouldEqual, "upd-1")

				_, ok = <-events
				So(ok, ShouldBeFalse)
			})

			Convey("Then a second close is a no-op", func() {
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}
