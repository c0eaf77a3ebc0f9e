// Package repository defines the persistence contracts for teams and
// matches, plus the implementations backing them.
package repository

import (
	"context"
	"time"

	"github.com/mightytigers/matchday/internal/domain/match"
	"github.com/mightytigers/matchday/internal/domain/team"
)

// TeamStore persists teams keyed by their external group id.
type TeamStore interface {
	// FindTeam returns ErrTeamNotFound for unknown ids.
	FindTeam(ctx context.Context, id string) (*team.Team, error)

	// SaveTeam upserts a team.
	SaveTeam(ctx context.Context, t *team.Team) error

	// CountTeams reports how many teams are tracked.
	CountTeams(ctx context.Context) (int, error)
}

// MatchStore persists match occurrences. Implementations must serialize
// per-document updates so concurrent confirmations for different handles
// never lose writes.
type MatchStore interface {
	// CreateMatch inserts a new occurrence. It must be atomic on the
	// (team_id, date) pair: when another occurrence already holds that
	// slot, ErrMatchExists is returned and nothing is written. This is
	// what keeps the check-then-act race in next-match handling from
	// producing duplicate occurrences.
	CreateMatch(ctx context.Context, m *match.Match) error

	// SaveMatch upserts an existing occurrence by id, replacing the whole
	// document. Concurrent ledger writers must go through ApplyConfirmation
	// instead; a full-document save between another writer's read and save
	// would drop their changes.
	SaveMatch(ctx context.Context, m *match.Match) error

	// ApplyConfirmation folds one vote into the stored ledger and returns
	// the updated occurrence. The read-modify-write runs atomically inside
	// the store, so confirmations for different handles arriving in
	// parallel all survive. Domain errors from the ledger (completed
	// match, unrecognized vote) pass through unchanged.
	ApplyConfirmation(ctx context.Context, teamID, matchID, name, handle string, v match.Vote, at time.Time) (*match.Match, error)

	// SetMatchMessageRef records where the summary was posted without
	// touching the rest of the document.
	SetMatchMessageRef(ctx context.Context, teamID, matchID, ref string) error

	// CompleteMatch moves an occurrence to its terminal state without
	// touching the rest of the document.
	CompleteMatch(ctx context.Context, teamID, matchID string) error

	// FindMatch returns ErrMatchNotFound for unknown (team, match) pairs.
	FindMatch(ctx context.Context, teamID, matchID string) (*match.Match, error)

	// FindLatestMatch returns the team's newest occurrence by date, or
	// ErrMatchNotFound when the team has none yet.
	FindLatestMatch(ctx context.Context, teamID string) (*match.Match, error)
}
