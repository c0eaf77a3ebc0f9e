// Package team decides when a new match occurrence must be materialized.
package team

import (
	"time"

	"github.com/mightytigers/matchday/internal/domain/match"
	"github.com/mightytigers/matchday/internal/domain/schedule"
)

// DefaultName is used when the transport supplies no group title.
const DefaultName = "MightyTigers"

// Team binds an external chat group to its recurring schedule. The latest
// match is never cached here; it lives at the persistence boundary and is
// passed into NextMatch by the caller.
type Team struct {
	id       string
	name     string
	schedule *schedule.Schedule
}

// New constructs a team. An empty name falls back to DefaultName; the
// schedule must already be validated (schedule.New/Parse).
func New(id, name string, sched *schedule.Schedule) *Team {
	if name == "" {
		name = DefaultName
	}
	return &Team{id: id, name: name, schedule: sched}
}

// ID returns the external group identifier.
func (t *Team) ID() string { return t.id }

// Name returns the team display name.
func (t *Team) Name() string { return t.name }

// Schedule returns the team's recurrence schedule.
func (t *Team) Schedule() *schedule.Schedule { return t.schedule }

// NextMatch decides which occurrence is current. When the latest known
// match is absent or dated before the schedule's next occurrence, a fresh
// open match is created and the stale one (if any) is handed back for
// retirement; the caller completes and persists it. Otherwise the latest
// match is still current and nothing new is created.
//
// The comparison uses full instants. Comparing calendar dates alone would
// wrongly skip same-day re-scheduling.
func (t *Team) NextMatch(latest *match.Match, now time.Time) (show, retire *match.Match, isNew bool) {
	candidate := t.schedule.NextOccurrence(now)

	if latest == nil || latest.Date().Before(candidate) {
		return match.New(t.id, candidate), latest, true
	}
	return latest, nil, false
}
