package worker_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mightytigers/matchday/internal/adapters/messenger"
	"github.com/mightytigers/matchday/internal/adapters/mq/queue"
	"github.com/mightytigers/matchday/internal/adapters/mq/worker"
	"github.com/mightytigers/matchday/internal/adapters/repository"
	"github.com/mightytigers/matchday/internal/domain/match"
	"github.com/mightytigers/matchday/internal/domain/schedule"
	"github.com/mightytigers/matchday/internal/domain/team"
	"github.com/mightytigers/matchday/pkg/logger"
)

// captureNotifier records delivered snapshots for assertions. Locked, so
// pool tests can share it across workers.
type captureNotifier struct {
	mu      sync.Mutex
	sends   []messenger.Snapshot
	updates []messenger.Snapshot
}

func (n *captureNotifier) RenderAndSend(ctx context.Context, snap messenger.Snapshot) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends = append(n.sends, snap)
	return "msg-1", nil
}

func (n *captureNotifier) RenderAndUpdate(ctx context.Context, ref string, snap messenger.Snapshot) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, snap)
	return nil
}

func seedStore(t *testing.T) (*repository.MemoryStore, *match.Match) {
	t.Helper()
	store := repository.NewMemoryStore()
	ctx := context.Background()

	sched, err := schedule.Parse("2;09:00")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveTeam(ctx, team.New("chat-1", "Lions", sched)); err != nil {
		t.Fatal(err)
	}

	m := match.New("chat-1", time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC))
	m.SetMessageRef("msg-1")
	if err := store.CreateMatch(ctx, m); err != nil {
		t.Fatal(err)
	}
	return store, m
}

func event(m *match.Match, updateID, value string) worker.Event {
	return worker.Event{
		UpdateID:     updateID,
		TeamID:       m.TeamID(),
		MatchID:      m.ID(),
		PlayerName:   "Alice",
		PlayerHandle: "@alice",
		Value:        value,
		TS:           time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
	}
}

func drainWorker(store worker.Store, notifier worker.Notifier, events ...worker.Event) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewInMemoryQueue(queue.WithCapacity(16))
	for _, e := range events {
		q.Enqueue(ctx, e)
	}
	_ = q.Close()

	w := worker.NewInMemoryWorker(q, store, notifier, worker.WithLogger(logger.Nop()))
	w.Run(ctx) // returns when the closed queue drains
}

func TestWorkerProcessing(t *testing.T) {
	Convey("Given a worker over a seeded store", t, func() {
		store, m := seedStore(t)
		notifier := &captureNotifier{}
		ctx := context.Background()

		Convey("When a kind confirmation is processed", func() {
			drainWorker(store, notifier, event(m, "upd-1", "going"))

			Convey("Then the ledger is updated and persisted", func() {
				got, err := store.FindMatch(ctx, m.TeamID(), m.ID())
				So(err, ShouldBeNil)
				squad := got.Squad()
				So(squad, ShouldHaveLength, 1)
				So(squad[0].Confirmation, ShouldEqual, match.KindGoing)
				So(squad[0].Voted, ShouldBeTrue)
			})

			Convey("Then the posted summary is edited in place", func() {
				So(notifier.updates, ShouldHaveLength, 1)
				So(notifier.sends, ShouldBeEmpty)
				So(notifier.updates[0].TeamName, ShouldEqual, "Lions")
				So(notifier.updates[0].Stats.Totals.Voted, ShouldEqual, 1)
			})
		})

		Convey("When a delta confirmation is processed", func() {
			drainWorker(store, notifier, event(m, "upd-1", "+1"), event(m, "upd-2", "+1"))

			Convey("Then the add-on count accumulates", func() {
				got, err := store.FindMatch(ctx, m.TeamID(), m.ID())
				So(err, ShouldBeNil)
				So(got.Squad()[0].AddOn, ShouldEqual, 2)
			})
		})

		Convey("When the value is unrecognized", func() {
			drainWorker(store, notifier, event(m, "upd-1", "maybe?"))

			Convey("Then the ledger is untouched and nothing is delivered", func() {
				got, err := store.FindMatch(ctx, m.TeamID(), m.ID())
				So(err, ShouldBeNil)
				So(got.Squad(), ShouldBeEmpty)
				So(notifier.updates, ShouldBeEmpty)
			})
		})

		Convey("When the match is already completed", func() {
			So(store.CompleteMatch(ctx, m.TeamID(), m.ID()), ShouldBeNil)
			drainWorker(store, notifier, event(m, "upd-1", "going"))

			Convey("Then the confirmation is dropped", func() {
				got, err := store.FindMatch(ctx, m.TeamID(), m.ID())
				So(err, ShouldBeNil)
				So(got.Squad(), ShouldBeEmpty)
				So(notifier.updates, ShouldBeEmpty)
			})
		})

		Convey("When the match has never been posted", func() {
			fresh := match.New("chat-1", time.Date(2025, 6, 6, 20, 30, 0, 0, time.UTC))
			So(store.CreateMatch(ctx, fresh), ShouldBeNil)
			drainWorker(store, notifier, event(fresh, "upd-1", "going"))

			Convey("Then a summary is sent and its reference persisted", func() {
				So(notifier.sends, ShouldHaveLength, 1)
				got, err := store.FindMatch(ctx, fresh.TeamID(), fresh.ID())
				So(err, ShouldBeNil)
				So(got.MessageRef(), ShouldEqual, "msg-1")
			})
		})

		Convey("When the match does not exist", func() {
			ghost := match.New("chat-1", time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC))
			drainWorker(store, notifier, event(ghost, "upd-1", "going"))

			Convey("Then nothing is delivered", func() {
				So(notifier.updates, ShouldBeEmpty)
				So(notifier.sends, ShouldBeEmpty)
			})
		})
	})
}

func TestConcurrentConfirmations(t *testing.T) {
	Convey("Given a large pool draining confirmations for one match", t, func() {
		store, m := seedStore(t)
		notifier := &captureNotifier{}

		const confirmations = 800

		q := queue.NewInMemoryQueue(queue.WithCapacity(confirmations))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		pool := worker.NewPool(32, q, store, notifier)
		pool.Start(ctx)

		Convey("When distinct players confirm in parallel", func() {
			for i := 0; i < confirmations; i++ {
				e := event(m, "upd-"+strconv.Itoa(i), "going")
				e.PlayerHandle = "@player-" + strconv.Itoa(i)
				So(q.Enqueue(ctx, e), ShouldBeTrue)
			}
			So(pool.Shutdown(context.Background()), ShouldBeNil)

			Convey("Then every confirmation survives in the ledger", func() {
				got, err := store.FindMatch(context.Background(), m.TeamID(), m.ID())
				So(err, ShouldBeNil)
				So(got.Squad(), ShouldHaveLength, confirmations)
				So(got.Stats().Totals.Voted, ShouldEqual, confirmations)
			})
		})
	})
}

func TestPoolShutdown(t *testing.T) {
	Convey("Given a running pool", t, func() {
		store, m := seedStore(t)
		notifier := &captureNotifier{}
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		pool := worker.NewPool(2, q, store, notifier)
		pool.Start(ctx)

		Convey("When events are enqueued and the pool shuts down", func() {
			So(q.Enqueue(ctx, event(m, "upd-1", "going")), ShouldBeTrue)
			So(pool.Shutdown(context.Background()), ShouldBeNil)

			Convey("Then the queue is closed and the event was applied", func() {
				So(q.IsClosed(), ShouldBeTrue)
				got, err := store.FindMatch(context.Background(), m.TeamID(), m.ID())
				So(err, ShouldBeNil)
				So(got.Squad(), ShouldHaveLength, 1)
			})
		})
	})
}
