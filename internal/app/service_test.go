package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/mightytigers/matchday/internal/adapters/messenger"
	"github.com/mightytigers/matchday/internal/adapters/repository"
	service "github.com/mightytigers/matchday/internal/app"
	"github.com/mightytigers/matchday/internal/domain/match"
	"github.com/mightytigers/matchday/internal/domain/model"
	"github.com/mightytigers/matchday/internal/domain/team"
	"github.com/mightytigers/matchday/pkg/logger"
)

// monday is the anchor instant for schedule assertions: a Monday morning.
var monday = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

// recordingMessenger captures deliveries for assertions.
type recordingMessenger struct {
	mu      sync.Mutex
	sends   []messenger.Snapshot
	updates []messenger.Snapshot
}

func (r *recordingMessenger) RenderAndSend(ctx context.Context, snap messenger.Snapshot) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends = append(r.sends, snap)
	return "msg-1", nil
}

func (r *recordingMessenger) RenderAndUpdate(ctx context.Context, ref string, snap messenger.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, snap)
	return nil
}

func (r *recordingMessenger) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

type fixture struct {
	svc   *service.Service
	store *repository.MemoryStore
	msgr  *recordingMessenger
	clock *clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store: repository.NewMemoryStore(),
		msgr:  &recordingMessenger{},
		clock: clockwork.NewFakeClockAt(monday),
	}
	f.svc = service.New(
		service.WithStore(f.store),
		service.WithMessenger(f.msgr),
		service.WithClock(f.clock),
		service.WithWorkerCount(1),
		service.WithQueueSize(64),
		service.WithLogger(logger.Nop()),
	)

	ctx := context.Background()
	if err := f.svc.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.svc.Stop(context.Background()) })
	return f
}

func eventually(check func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestEnsureTeam(t *testing.T) {
	Convey("Given a running service", t, func() {
		f := newFixture(t)
		ctx := context.Background()

		Convey("When a team registers without name or schedule", func() {
			tm, err := f.svc.EnsureTeam(ctx, model.EnsureTeam{TeamID: "chat-1"})

			Convey("Then defaults are applied", func() {
				So(err, ShouldBeNil)
				So(tm.Name(), ShouldEqual, team.DefaultName)
				So(tm.Schedule().String(), ShouldEqual, service.DefaultScheduleSpec)
			})

			Convey("And when it registers again with a name", func() {
				again, err := f.svc.EnsureTeam(ctx, model.EnsureTeam{TeamID: "chat-1", Name: "Lions"})

				Convey("Then the name updates and the schedule survives", func() {
					So(err, ShouldBeNil)
					So(again.Name(), ShouldEqual, "Lions")
					So(again.Schedule().String(), ShouldEqual, service.DefaultScheduleSpec)
				})
			})

			Convey("And when it registers again with nothing new", func() {
				again, err := f.svc.EnsureTeam(ctx, model.EnsureTeam{TeamID: "chat-1"})

				Convey("Then the stored registration is returned unchanged", func() {
					So(err, ShouldBeNil)
					So(again.Name(), ShouldEqual, team.DefaultName)
				})
			})
		})

		Convey("When the schedule spec is malformed", func() {
			_, err := f.svc.EnsureTeam(ctx, model.EnsureTeam{TeamID: "chat-1", ScheduleSpec: "8;99:99"})

			Convey("Then the request is rejected", func() {
				So(err, ShouldWrap, service.ErrInvalidRequest)
			})
		})

		Convey("When the team id is empty", func() {
			_, err := f.svc.EnsureTeam(ctx, model.EnsureTeam{})

			Convey("Then the request is rejected", func() {
				So(err, ShouldWrap, service.ErrInvalidRequest)
			})
		})
	})
}

func TestNextMatch(t *testing.T) {
	Convey("Given a registered team on the default schedule", t, func() {
		f := newFixture(t)
		ctx := context.Background()
		_, err := f.svc.EnsureTeam(ctx, model.EnsureTeam{TeamID: "chat-1", Name: "Lions"})
		So(err, ShouldBeNil)

		Convey("When the next match is requested on Monday morning", func() {
			m, isNew, err := f.svc.NextMatch(ctx, "chat-1")

			Convey("Then a fresh match lands on Tuesday 09:00", func() {
				So(err, ShouldBeNil)
				So(isNew, ShouldBeTrue)
				So(m.Date(), ShouldResemble, time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC))
			})

			Convey("Then its summary was posted and the reference stored", func() {
				So(f.msgr.sends, ShouldHaveLength, 1)
				stored, err := f.store.FindMatch(ctx, "chat-1", m.ID())
				So(err, ShouldBeNil)
				So(stored.MessageRef(), ShouldEqual, "msg-1")
			})

			Convey("And when it is requested again before kickoff", func() {
				same, isNew2, err := f.svc.NextMatch(ctx, "chat-1")

				Convey("Then the open match is reused", func() {
					So(err, ShouldBeNil)
					So(isNew2, ShouldBeFalse)
					So(same.ID(), ShouldEqual, m.ID())
				})
			})

			Convey("And when the clock passes kickoff", func() {
				f.clock.Advance(24 * time.Hour) // Tuesday 10:00
				next, isNew2, err := f.svc.NextMatch(ctx, "chat-1")

				Convey("Then a new match lands on Friday 20:30 and the old one is retired", func() {
					So(err, ShouldBeNil)
					So(isNew2, ShouldBeTrue)
					So(next.Date(), ShouldResemble, time.Date(2025, 6, 6, 20, 30, 0, 0, time.UTC))

					old, err := f.store.FindMatch(ctx, "chat-1", m.ID())
					So(err, ShouldBeNil)
					So(old.Completed(), ShouldBeTrue)
				})
			})
		})

		Convey("When another writer claims the occurrence first", func() {
			rival := match.New("chat-1", time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC))
			So(f.store.CreateMatch(ctx, rival), ShouldBeNil)

			m, isNew, err := f.svc.NextMatch(ctx, "chat-1")

			Convey("Then the existing occurrence is adopted instead", func() {
				So(err, ShouldBeNil)
				So(isNew, ShouldBeFalse)
				So(m.ID(), ShouldEqual, rival.ID())
			})
		})

		Convey("When the team is unknown", func() {
			_, _, err := f.svc.NextMatch(ctx, "nope")

			Convey("Then the lookup error surfaces", func() {
				So(err, ShouldWrap, repository.ErrTeamNotFound)
			})
		})
	})
}

func TestSubmit(t *testing.T) {
	Convey("Given a team with an open match", t, func() {
		f := newFixture(t)
		ctx := context.Background()
		_, err := f.svc.EnsureTeam(ctx, model.EnsureTeam{TeamID: "chat-1", Name: "Lions"})
		So(err, ShouldBeNil)
		m, _, err := f.svc.NextMatch(ctx, "chat-1")
		So(err, ShouldBeNil)

		confirmation := func(updateID, handle, value string) model.ConfirmationEvent {
			return model.ConfirmationEvent{
				UpdateID:     updateID,
				TeamID:       "chat-1",
				MatchID:      m.ID(),
				PlayerName:   "Alice",
				PlayerHandle: handle,
				Value:        value,
			}
		}

		Convey("When a confirmation is submitted", func() {
			accepted, duplicate, err := f.svc.Submit(ctx, confirmation("upd-1", "@alice", "going"))

			Convey("Then it is accepted as fresh", func() {
				So(err, ShouldBeNil)
				So(accepted, ShouldBeTrue)
				So(duplicate, ShouldBeFalse)
			})

			Convey("Then it eventually lands in the ledger and the summary refreshes", func() {
				So(eventually(func() bool {
					stats, err := f.svc.MatchStats(ctx, "chat-1", m.ID())
					return err == nil && stats.Totals.Voted == 1
				}), ShouldBeTrue)
				So(eventually(func() bool { return f.msgr.updateCount() >= 1 }), ShouldBeTrue)
			})

			Convey("And when the same update id is delivered again", func() {
				accepted2, duplicate2, err := f.svc.Submit(ctx, confirmation("upd-1", "@alice", "not_going"))

				Convey("Then it is acknowledged without reprocessing", func() {
					So(err, ShouldBeNil)
					So(accepted2, ShouldBeTrue)
					So(duplicate2, ShouldBeTrue)
				})
			})
		})

		Convey("When several players confirm with add-ons", func() {
			_, _, _ = f.svc.Submit(ctx, confirmation("upd-1", "@alice", "going"))
			_, _, _ = f.svc.Submit(ctx, confirmation("upd-2", "@bob", "going"))
			_, _, _ = f.svc.Submit(ctx, confirmation("upd-3", "@bob", "+1"))
			_, _, _ = f.svc.Submit(ctx, confirmation("upd-4", "@bob", "+1"))
			_, _, _ = f.svc.Submit(ctx, confirmation("upd-5", "@carol", "not_going"))

			Convey("Then the totals converge on the expected headcount", func() {
				So(eventually(func() bool {
					stats, err := f.svc.MatchStats(ctx, "chat-1", m.ID())
					return err == nil &&
						stats.Totals.WithMe == 2 &&
						stats.Totals.Voted == 3 &&
						stats.Totals.All == 4
				}), ShouldBeTrue)
			})
		})

		Convey("When required ids are missing", func() {
			_, _, err := f.svc.Submit(ctx, model.ConfirmationEvent{UpdateID: "upd-1"})

			Convey("Then the request is rejected", func() {
				So(err, ShouldWrap, service.ErrInvalidRequest)
			})
		})
	})
}
