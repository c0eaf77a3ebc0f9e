// Package service wires the domain together: team registration, match
// materialization, and the asynchronous confirmation pipeline behind the
// HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mightytigers/matchday/internal/adapters/messenger"
	eventqueue "github.com/mightytigers/matchday/internal/adapters/mq/queue"
	workerpool "github.com/mightytigers/matchday/internal/adapters/mq/worker"
	"github.com/mightytigers/matchday/internal/adapters/repository"
	"github.com/mightytigers/matchday/internal/domain/dedupe"
	"github.com/mightytigers/matchday/internal/domain/match"
	"github.com/mightytigers/matchday/internal/domain/model"
	"github.com/mightytigers/matchday/internal/domain/schedule"
	"github.com/mightytigers/matchday/internal/domain/team"
	"github.com/mightytigers/matchday/pkg/logger"
	"github.com/mightytigers/matchday/pkg/metrics"
)

// DefaultScheduleSpec is the recurrence applied when a team registers
// without one: Tuesday morning and Friday evening.
const DefaultScheduleSpec = "2;09:00,5;20:30"

// Store bundles the two persistence ports so one backend can serve both.
type Store interface {
	repository.TeamStore
	repository.MatchStore
}

// Service implements the API dependencies for the coordination system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     Store
	deduper   dedupe.Deduper
	queue     eventqueue.Queue
	pool      *workerpool.Pool
	messenger messenger.Messenger
	clock     clockwork.Clock

	// Configuration
	workerCount     int
	queueSize       int
	dedupeMaxSize   int
	dedupeRetention time.Duration

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the confirmation queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeMaxSize bounds the deduplication cache.
func WithDedupeMaxSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeMaxSize = size
		}
	}
}

// WithDedupeRetention sets how long processed update ids are remembered.
func WithDedupeRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.dedupeRetention = d
		}
	}
}

// WithStore sets the persistence backend for teams and matches.
func WithStore(st Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithMessenger sets the outbound summary transport.
func WithMessenger(m messenger.Messenger) Option {
	return func(s *Service) {
		if m != nil {
			s.messenger = m
		}
	}
}

// WithClock sets the time source. Tests inject a fake clock here.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU() * 2,
		queueSize:       100_000,
		dedupeMaxSize:   500_000,
		dedupeRetention: 72 * time.Hour,
		clock:           clockwork.NewRealClock(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory store")
	}
	if s.messenger == nil {
		s.messenger = messenger.NewLogMessenger(s.logger)
		s.logger.Info(ctx, "using log messenger")
	}

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeMaxSize),
		dedupe.WithRetention(s.dedupeRetention),
		dedupe.WithClock(s.clock),
	)
	s.queue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithBufferSize(s.queueSize),
	)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.store, s.messenger)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "matchday service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeMaxSize),
	)

	return nil
}

// Stop gracefully shuts down the service, draining queued confirmations.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(ctx, "stopping matchday service...")

	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}
	if closer, ok := s.store.(interface{ Close() }); ok {
		closer.Close()
	}
	if closer, ok := s.messenger.(interface{ Close() }); ok {
		closer.Close()
	}

	s.started = false
	s.logger.Info(ctx, "matchday service stopped")
}

// EnsureTeam registers a team on first contact and returns the stored team
// afterwards. A non-empty name or schedule spec updates the stored team;
// otherwise the existing registration wins.
func (s *Service) EnsureTeam(ctx context.Context, req model.EnsureTeam) (*team.Team, error) {
	if req.TeamID == "" {
		return nil, fmt.Errorf("%w: empty team id", ErrInvalidRequest)
	}

	existing, err := s.store.FindTeam(ctx, req.TeamID)
	if err != nil && !errors.Is(err, repository.ErrTeamNotFound) {
		return nil, err
	}

	if existing != nil && req.Name == "" && req.ScheduleSpec == "" {
		return existing, nil
	}

	name := req.Name
	if name == "" && existing != nil {
		name = existing.Name()
	}

	sched, err := s.resolveSchedule(req.ScheduleSpec, existing)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	t := team.New(req.TeamID, name, sched)
	if err := s.store.SaveTeam(ctx, t); err != nil {
		return nil, err
	}

	if n, err := s.store.CountTeams(ctx); err == nil {
		metrics.UpdateTeamsTracked(n)
	}

	s.logger.Info(ctx, "team registered",
		logger.String("team_id", t.ID()),
		logger.String("name", t.Name()),
		logger.String("schedule", t.Schedule().String()),
	)
	return t, nil
}

func (s *Service) resolveSchedule(spec string, existing *team.Team) (*schedule.Schedule, error) {
	if spec != "" {
		return schedule.Parse(spec)
	}
	if existing != nil {
		return existing.Schedule(), nil
	}
	return schedule.Parse(DefaultScheduleSpec)
}

// NextMatch returns the team's current occurrence, materializing a fresh
// one when the schedule has moved past the latest known match. A newly
// created match gets its summary posted immediately; the superseded match,
// if any, is completed so late confirmations bounce.
func (s *Service) NextMatch(ctx context.Context, teamID string) (*match.Match, bool, error) {
	t, err := s.store.FindTeam(ctx, teamID)
	if err != nil {
		return nil, false, err
	}

	latest, err := s.store.FindLatestMatch(ctx, teamID)
	if err != nil && !errors.Is(err, repository.ErrMatchNotFound) {
		return nil, false, err
	}

	show, retire, isNew := t.NextMatch(latest, s.clock.Now())
	if !isNew {
		return show, false, nil
	}

	if err := s.store.CreateMatch(ctx, show); err != nil {
		if errors.Is(err, repository.ErrMatchExists) {
			// Another caller materialized the same occurrence first.
			// Continue on theirs; nothing is retired twice.
			current, rerr := s.store.FindLatestMatch(ctx, teamID)
			if rerr != nil {
				return nil, false, rerr
			}
			return current, false, nil
		}
		return nil, false, err
	}
	metrics.RecordMatchCreated()

	if retire != nil {
		// Flip only the completed flag; a full-document save here could
		// overwrite votes a worker applied since the match was read.
		if err := s.store.CompleteMatch(ctx, teamID, retire.ID()); err != nil {
			return nil, false, fmt.Errorf("retire match %s: %w", retire.ID(), err)
		}
		metrics.RecordMatchRetired()
	}

	// Post the initial summary. A delivery failure leaves the match
	// unposted; the first confirmation will retry the send.
	snap := messenger.NewSnapshot(t.Name(), show)
	if ref, err := s.messenger.RenderAndSend(ctx, snap); err == nil {
		show.SetMessageRef(ref)
		if err := s.store.SetMatchMessageRef(ctx, teamID, show.ID(), ref); err != nil {
			return nil, false, err
		}
	} else {
		s.logger.Error(ctx, "initial summary send failed",
			logger.String("match_id", show.ID()),
			logger.Error(err),
		)
	}

	s.logger.Info(ctx, "match created",
		logger.String("team_id", teamID),
		logger.String("match_id", show.ID()),
		logger.Time("date", show.Date()),
	)
	return show, true, nil
}

// Submit runs one confirmation through the idempotency gate and, when it
// is fresh, hands it to the worker pool. It reports whether the event was
// accepted and whether it was a duplicate delivery.
func (s *Service) Submit(ctx context.Context, event model.ConfirmationEvent) (accepted, duplicate bool, err error) {
	if event.UpdateID == "" || event.TeamID == "" || event.MatchID == "" {
		return false, false, fmt.Errorf("%w: update, team and match ids are required", ErrInvalidRequest)
	}

	if s.deduper.SeenAndRecord(ctx, event.UpdateID) {
		metrics.RecordConfirmationDuplicate()
		s.logger.Debug(ctx, "duplicate confirmation ignored",
			logger.String("update_id", event.UpdateID),
		)
		return true, true, nil
	}
	metrics.UpdateDedupeEntries(s.deduper.Size())

	if event.TS.IsZero() {
		event.TS = s.clock.Now()
	}

	if !s.queue.Enqueue(ctx, event) {
		// Backpressure: give the id back so the transport's retry is not
		// swallowed as a duplicate.
		s.deduper.Unrecord(ctx, event.UpdateID)
		return false, false, nil
	}

	return true, false, nil
}

// MatchStats returns the aggregated vote partitions for one match.
func (s *Service) MatchStats(ctx context.Context, teamID, matchID string) (match.Stats, error) {
	m, err := s.store.FindMatch(ctx, teamID, matchID)
	if err != nil {
		return match.Stats{}, err
	}
	return m.Stats(), nil
}

// SeenAndRecord exposes the idempotency gate. Returns true if the id was
// already seen inside the retention window.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	return s.deduper.SeenAndRecord(ctx, id)
}

// Unrecord removes an update id from the seen set, allowing a retry.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// DedupeSize returns the number of update ids currently retained.
func (s *Service) DedupeSize() int64 {
	return s.deduper.Size()
}

// QueueLen returns the number of queued confirmations.
func (s *Service) QueueLen(ctx context.Context) int {
	return s.queue.Len(ctx)
}
