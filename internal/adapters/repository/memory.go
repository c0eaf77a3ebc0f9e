package repository

import (
	"context"
	"sync"
	"time"

	"github.com/mightytigers/matchday/internal/domain/match"
	"github.com/mightytigers/matchday/internal/domain/schedule"
	"github.com/mightytigers/matchday/internal/domain/team"
)

// teamRow is the stored form of a team; the schedule is kept as its spec
// string so reads rebuild an independent value.
type teamRow struct {
	id   string
	name string
	spec string
}

// MemoryStore is an in-memory TeamStore and MatchStore. Matches are stored
// as flat records, so handed-out matches never alias store state.
type MemoryStore struct {
	mu         sync.RWMutex
	teams      map[string]teamRow
	matches    map[string]match.Record // by match id
	byTeamDate map[string]string       // team id + date -> match id
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		teams:      make(map[string]teamRow),
		matches:    make(map[string]match.Record),
		byTeamDate: make(map[string]string),
	}
}

func teamDateKey(teamID string, date time.Time) string {
	return teamID + "|" + date.UTC().Format(time.RFC3339Nano)
}

// FindTeam returns the team with the given id.
func (s *MemoryStore) FindTeam(ctx context.Context, id string) (*team.Team, error) {
	s.mu.RLock()
	row, ok := s.teams[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrTeamNotFound
	}
	return rowToTeam(row)
}

// SaveTeam upserts a team.
func (s *MemoryStore) SaveTeam(ctx context.Context, t *team.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[t.ID()] = teamRow{id: t.ID(), name: t.Name(), spec: t.Schedule().String()}
	return nil
}

// CountTeams reports how many teams are tracked.
func (s *MemoryStore) CountTeams(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.teams), nil
}

// CreateMatch inserts a new occurrence, enforcing (team_id, date)
// uniqueness under a single lock so racing creators cannot both win.
func (s *MemoryStore) CreateMatch(ctx context.Context, m *match.Match) error {
	key := teamDateKey(m.TeamID(), m.Date())

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byTeamDate[key]; ok {
		return ErrMatchExists
	}
	s.matches[m.ID()] = m.Record()
	s.byTeamDate[key] = m.ID()
	return nil
}

// SaveMatch upserts an existing occurrence by id.
func (s *MemoryStore) SaveMatch(ctx context.Context, m *match.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := m.Record()
	if prev, ok := s.matches[m.ID()]; ok {
		delete(s.byTeamDate, teamDateKey(prev.TeamID, prev.Date))
	}
	s.matches[m.ID()] = rec
	s.byTeamDate[teamDateKey(rec.TeamID, rec.Date)] = m.ID()
	return nil
}

// ApplyConfirmation folds one vote into the stored ledger under the store
// lock, so parallel confirmations for the same match merge instead of
// overwriting each other.
func (s *MemoryStore) ApplyConfirmation(ctx context.Context, teamID, matchID, name, handle string, v match.Vote, at time.Time) (*match.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.matches[matchID]
	if !ok || rec.TeamID != teamID {
		return nil, ErrMatchNotFound
	}

	m := match.FromRecord(rec)
	if err := m.Confirm(name, handle, v, at); err != nil {
		return nil, err
	}
	s.matches[matchID] = m.Record()
	return m, nil
}

// SetMatchMessageRef updates only the message reference.
func (s *MemoryStore) SetMatchMessageRef(ctx context.Context, teamID, matchID, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.matches[matchID]
	if !ok || rec.TeamID != teamID {
		return ErrMatchNotFound
	}
	rec.MessageRef = ref
	s.matches[matchID] = rec
	return nil
}

// CompleteMatch marks an occurrence completed without rewriting its ledger.
func (s *MemoryStore) CompleteMatch(ctx context.Context, teamID, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.matches[matchID]
	if !ok || rec.TeamID != teamID {
		return ErrMatchNotFound
	}
	rec.Completed = true
	s.matches[matchID] = rec
	return nil
}

// FindMatch returns the occurrence for (teamID, matchID).
func (s *MemoryStore) FindMatch(ctx context.Context, teamID, matchID string) (*match.Match, error) {
	s.mu.RLock()
	rec, ok := s.matches[matchID]
	s.mu.RUnlock()

	if !ok || rec.TeamID != teamID {
		return nil, ErrMatchNotFound
	}
	return match.FromRecord(rec), nil
}

// FindLatestMatch returns the team's newest occurrence by date.
func (s *MemoryStore) FindLatestMatch(ctx context.Context, teamID string) (*match.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest match.Record
		found  bool
	)
	for _, rec := range s.matches {
		if rec.TeamID != teamID {
			continue
		}
		if !found || rec.Date.After(latest.Date) {
			latest = rec
			found = true
		}
	}
	if !found {
		return nil, ErrMatchNotFound
	}
	return match.FromRecord(latest), nil
}

func rowToTeam(row teamRow) (*team.Team, error) {
	sched, err := schedule.Parse(row.spec)
	if err != nil {
		return nil, err
	}
	return team.New(row.id, row.name, sched), nil
}
