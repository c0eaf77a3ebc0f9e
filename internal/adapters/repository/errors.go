package repository

import "errors"

// Sentinel kinds for persistence errors.
var (
	ErrTeamNotFound  = errors.New("team not found")
	ErrMatchNotFound = errors.New("match not found")
	// ErrMatchExists reports a (team_id, date) uniqueness conflict: another
	// writer materialized the same occurrence first. Callers re-read and
	// continue on the existing occurrence.
	ErrMatchExists = errors.New("match already exists for team and date")
)
