// Package messenger renders match summaries and delivers them to the
// outbound transport. The first delivery returns a message reference; later
// confirmations edit that message in place instead of posting a new one.
package messenger

import (
	"context"
	"time"

	"github.com/mightytigers/matchday/internal/domain/match"
)

// Messenger is the outbound delivery port.
type Messenger interface {
	// RenderAndSend posts a fresh summary and returns the transport
	// message reference to edit later.
	RenderAndSend(ctx context.Context, snap Snapshot) (string, error)

	// RenderAndUpdate edits the summary previously posted under ref.
	RenderAndUpdate(ctx context.Context, ref string, snap Snapshot) error
}

// Snapshot is everything a renderer needs about one match at one instant.
// It is a detached copy; the ledger may move on while delivery is in
// flight.
type Snapshot struct {
	TeamID   string
	TeamName string
	MatchID  string
	Date     time.Time
	Stats    match.Stats
	// Buttons lists the raw confirmation values the transport should
	// render as reply buttons, in display order.
	Buttons []string
}

// NewSnapshot detaches a renderable snapshot from a match.
func NewSnapshot(teamName string, m *match.Match) Snapshot {
	return Snapshot{
		TeamID:   m.TeamID(),
		TeamName: teamName,
		MatchID:  m.ID(),
		Date:     m.Date(),
		Stats:    m.Stats(),
		Buttons:  match.VoteValues(),
	}
}
