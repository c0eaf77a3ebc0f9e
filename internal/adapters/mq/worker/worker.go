// Package worker applies queued confirmations to match ledgers and keeps
// the posted summaries current.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/mightytigers/matchday/internal/adapters/messenger"
	"github.com/mightytigers/matchday/internal/domain/match"
	"github.com/mightytigers/matchday/internal/domain/model"
	"github.com/mightytigers/matchday/internal/domain/team"
	"github.com/mightytigers/matchday/pkg/logger"
	"github.com/mightytigers/matchday/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Event is what workers read off the queue.
type Event = model.ConfirmationEvent

// Store is the slice of persistence the workers need: an atomic ledger
// apply, the message ref write after a first send, and the owning team's
// name for rendering. The apply must merge inside the store so workers
// running in parallel never overwrite each other's votes.
type Store interface {
	FindTeam(ctx context.Context, id string) (*team.Team, error)
	ApplyConfirmation(ctx context.Context, teamID, matchID, name, handle string, v match.Vote, at time.Time) (*match.Match, error)
	SetMatchMessageRef(ctx context.Context, teamID, matchID, ref string) error
}

// Notifier delivers refreshed summaries after a ledger change.
type Notifier interface {
	RenderAndSend(ctx context.Context, snap messenger.Snapshot) (string, error)
	RenderAndUpdate(ctx context.Context, ref string, snap messenger.Snapshot) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes confirmations until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker over an in-process queue.
type InMemoryWorker struct {
	queue    Queue
	store    Store
	notifier Notifier
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(q Queue, store Store, notifier Notifier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		store:    store,
		notifier: notifier,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := w.processEvent(ctx, event); err != nil {
				w.logger.Error(ctx, "error processing confirmation", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processEvent applies one confirmation to its match and refreshes the
// posted summary. The event already passed the dedupe gate; a failure here
// is logged and dropped rather than retried, matching at-most-once
// processing.
func (w *InMemoryWorker) processEvent(ctx context.Context, event Event) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerApplyLatency(float64(time.Since(start).Milliseconds()))
	}()

	vote, err := match.ParseVote(event.Value)
	if err != nil {
		metrics.RecordConfirmationRejected()
		w.logger.Warn(ctx, "unrecognized confirmation value",
			logger.String("update_id", event.UpdateID),
			logger.String("value", event.Value),
		)
		return nil
	}

	m, err := w.store.ApplyConfirmation(ctx,
		event.TeamID, event.MatchID,
		event.PlayerName, event.PlayerHandle,
		vote, event.TS,
	)
	if err != nil {
		if errors.Is(err, match.ErrMatchCompleted) {
			metrics.RecordConfirmationRejected()
			w.logger.Warn(ctx, "confirmation for completed match dropped",
				logger.String("update_id", event.UpdateID),
				logger.String("match_id", event.MatchID),
			)
			return nil
		}
		metrics.RecordConfirmationRejected()
		metrics.RecordWorkerError()
		return fmt.Errorf("apply confirmation %s: %w", event.UpdateID, err)
	}

	metrics.RecordConfirmationProcessed()
	if !vote.IsDelta {
		metrics.RecordVote(string(vote.Kind))
	}

	if err := w.notify(ctx, m); err != nil {
		// The ledger change is already durable; a delivery failure only
		// leaves the posted summary stale until the next confirmation.
		w.logger.Error(ctx, "summary refresh failed",
			logger.String("match_id", event.MatchID),
			logger.Error(err),
		)
	}

	return nil
}

// notify refreshes the posted summary, sending a fresh one when the match
// has never been posted.
func (w *InMemoryWorker) notify(ctx context.Context, m *match.Match) error {
	snap := messenger.NewSnapshot(w.teamName(ctx, m.TeamID()), m)

	if ref := m.MessageRef(); ref != "" {
		return w.notifier.RenderAndUpdate(ctx, ref, snap)
	}

	ref, err := w.notifier.RenderAndSend(ctx, snap)
	if err != nil {
		return err
	}
	m.SetMessageRef(ref)
	return w.store.SetMatchMessageRef(ctx, m.TeamID(), m.ID(), ref)
}

func (w *InMemoryWorker) teamName(ctx context.Context, teamID string) string {
	t, err := w.store.FindTeam(ctx, teamID)
	if err != nil {
		return team.DefaultName
	}
	return t.Name()
}

// Pool manages multiple workers draining one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive count falls back to a
// multiple of the CPU count.
func NewPool(workerCount int, q Queue, store Store, notifier Notifier) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			q,
			store,
			notifier,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for workers to drain. Closing the
// queue ends each worker's receive loop once the buffered events run out.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
