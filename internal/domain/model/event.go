// Package model contains the inbound event shapes passed between the
// transport adapters and the core service.
package model

import "time"

// EnsureTeam registers (or re-reads) a team for an external chat group.
// The schedule spec is the raw wire form: comma-separated "weekday;HH:MM".
type EnsureTeam struct {
	TeamID       string // external chat/group id
	Name         string // group title; may be empty
	ScheduleSpec string
}

// NextMatchRequest asks for the team's current occurrence, materializing a
// new one when the schedule has moved on.
type NextMatchRequest struct {
	TeamID string
}

// ConfirmationEvent is one attendance confirmation as delivered by the
// transport. UpdateID is the idempotency key; Value is the raw button
// payload, parsed into a tagged vote at the boundary.
type ConfirmationEvent struct {
	UpdateID     string
	TeamID       string
	MatchID      string
	PlayerName   string
	PlayerHandle string
	Value        string
	TS           time.Time
}
