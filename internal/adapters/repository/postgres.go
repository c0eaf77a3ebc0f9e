package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mightytigers/matchday/internal/domain/match"
	"github.com/mightytigers/matchday/internal/domain/team"
)

// uniqueViolation is the Postgres error code for unique constraint hits.
const uniqueViolation = "23505"

const schemaDDL = `
CREATE TABLE IF NOT EXISTS teams (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    schedule_spec TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS matches (
    id          TEXT PRIMARY KEY,
    team_id     TEXT NOT NULL,
    date        TIMESTAMPTZ NOT NULL,
    completed   BOOLEAN NOT NULL DEFAULT FALSE,
    message_ref TEXT NOT NULL DEFAULT '',
    squad       JSONB NOT NULL DEFAULT '[]',
    CONSTRAINT matches_team_date_key UNIQUE (team_id, date)
);

CREATE INDEX IF NOT EXISTS matches_team_date_idx ON matches (team_id, date DESC);
`

// PostgresStore is a TeamStore and MatchStore backed by a pgx pool. The
// squad ledger travels as a JSONB document; row-level locking in Postgres
// serializes concurrent saves of the same match.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pool and verifies the connection.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates the tables when they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// FindTeam returns the team with the given id.
func (s *PostgresStore) FindTeam(ctx context.Context, id string) (*team.Team, error) {
	var row teamRow
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, schedule_spec FROM teams WHERE id = $1`, id,
	).Scan(&row.id, &row.name, &row.spec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find team: %w", err)
	}
	return rowToTeam(row)
}

// SaveTeam upserts a team.
func (s *PostgresStore) SaveTeam(ctx context.Context, t *team.Team) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO teams (id, name, schedule_spec) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = $2, schedule_spec = $3`,
		t.ID(), t.Name(), t.Schedule().String(),
	)
	if err != nil {
		return fmt.Errorf("save team: %w", err)
	}
	return nil
}

// CountTeams reports how many teams are tracked.
func (s *PostgresStore) CountTeams(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM teams`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count teams: %w", err)
	}
	return n, nil
}

// CreateMatch inserts a new occurrence. The (team_id, date) unique
// constraint turns racing inserts into ErrMatchExists for the loser.
func (s *PostgresStore) CreateMatch(ctx context.Context, m *match.Match) error {
	rec := m.Record()
	squad, err := json.Marshal(rec.Squad)
	if err != nil {
		return fmt.Errorf("marshal squad: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO matches (id, team_id, date, completed, message_ref, squad)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.TeamID, rec.Date, rec.Completed, rec.MessageRef, squad,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrMatchExists
		}
		return fmt.Errorf("create match: %w", err)
	}
	return nil
}

// SaveMatch upserts an existing occurrence by id.
func (s *PostgresStore) SaveMatch(ctx context.Context, m *match.Match) error {
	rec := m.Record()
	squad, err := json.Marshal(rec.Squad)
	if err != nil {
		return fmt.Errorf("marshal squad: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO matches (id, team_id, date, completed, message_ref, squad)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
		    completed = $4, message_ref = $5, squad = $6`,
		rec.ID, rec.TeamID, rec.Date, rec.Completed, rec.MessageRef, squad,
	)
	if err != nil {
		return fmt.Errorf("save match: %w", err)
	}
	return nil
}

// ApplyConfirmation folds one vote into the stored ledger inside a
// transaction. The row lock serializes concurrent confirmations for the
// same match; each one reads the ledger its predecessor wrote.
func (s *PostgresStore) ApplyConfirmation(ctx context.Context, teamID, matchID, name, handle string, v match.Vote, at time.Time) (*match.Match, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin apply confirmation: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	m, err := s.scanMatch(tx.QueryRow(ctx, `
		SELECT id, team_id, date, completed, message_ref, squad
		FROM matches WHERE id = $1 AND team_id = $2
		FOR UPDATE`,
		matchID, teamID,
	))
	if err != nil {
		return nil, err
	}

	if err := m.Confirm(name, handle, v, at); err != nil {
		return nil, err
	}

	squad, err := json.Marshal(m.Record().Squad)
	if err != nil {
		return nil, fmt.Errorf("marshal squad: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE matches SET squad = $3 WHERE id = $1 AND team_id = $2`,
		matchID, teamID, squad,
	); err != nil {
		return nil, fmt.Errorf("apply confirmation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit apply confirmation: %w", err)
	}
	return m, nil
}

// SetMatchMessageRef updates only the message reference column.
func (s *PostgresStore) SetMatchMessageRef(ctx context.Context, teamID, matchID, ref string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE matches SET message_ref = $3 WHERE id = $1 AND team_id = $2`,
		matchID, teamID, ref,
	)
	if err != nil {
		return fmt.Errorf("set message ref: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMatchNotFound
	}
	return nil
}

// CompleteMatch marks an occurrence completed without rewriting its ledger.
func (s *PostgresStore) CompleteMatch(ctx context.Context, teamID, matchID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE matches SET completed = TRUE WHERE id = $1 AND team_id = $2`,
		matchID, teamID,
	)
	if err != nil {
		return fmt.Errorf("complete match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMatchNotFound
	}
	return nil
}

// FindMatch returns the occurrence for (teamID, matchID).
func (s *PostgresStore) FindMatch(ctx context.Context, teamID, matchID string) (*match.Match, error) {
	return s.scanMatch(s.pool.QueryRow(ctx, `
		SELECT id, team_id, date, completed, message_ref, squad
		FROM matches WHERE id = $1 AND team_id = $2`,
		matchID, teamID,
	))
}

// FindLatestMatch returns the team's newest occurrence by date.
func (s *PostgresStore) FindLatestMatch(ctx context.Context, teamID string) (*match.Match, error) {
	return s.scanMatch(s.pool.QueryRow(ctx, `
		SELECT id, team_id, date, completed, message_ref, squad
		FROM matches WHERE team_id = $1
		ORDER BY date DESC LIMIT 1`,
		teamID,
	))
}

func (s *PostgresStore) scanMatch(row pgx.Row) (*match.Match, error) {
	var (
		rec   match.Record
		squad []byte
	)
	err := row.Scan(&rec.ID, &rec.TeamID, &rec.Date, &rec.Completed, &rec.MessageRef, &squad)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find match: %w", err)
	}
	if err := json.Unmarshal(squad, &rec.Squad); err != nil {
		return nil, fmt.Errorf("unmarshal squad: %w", err)
	}
	return match.FromRecord(rec), nil
}
