// Package match implements one scheduled occurrence and its vote ledger.
//
// A Match exclusively owns its Player entries. Values are plain structs
// without locks; callers serialize access per match (the worker pool and
// the stores take care of that).
package match

import (
	"time"

	"github.com/google/uuid"
)

// Player is one participant's vote state inside a match. The handle is the
// dedup key; entries are created lazily on first confirmation and never
// deleted while the match is open.
type Player struct {
	Name         string
	Handle       string
	Confirmation Kind
	AddOn        int
	Voted        bool
	ConfirmedAt  time.Time
}

// Match is a single concrete occurrence of a team's recurring event.
type Match struct {
	id         string
	teamID     string
	date       time.Time
	completed  bool
	messageRef string

	squad map[string]*Player
	order []string // handles in first-confirmation order
}

// New creates an open match for a team at the given instant.
func New(teamID string, date time.Time) *Match {
	return &Match{
		id:     uuid.NewString(),
		teamID: teamID,
		date:   date,
		squad:  make(map[string]*Player),
	}
}

// ID returns the opaque match identifier.
func (m *Match) ID() string { return m.id }

// TeamID returns the owning team's identifier.
func (m *Match) TeamID() string { return m.teamID }

// Date returns the scheduled instant. It never changes after creation.
func (m *Match) Date() time.Time { return m.date }

// Completed reports whether the match reached its terminal state.
func (m *Match) Completed() bool { return m.completed }

// MessageRef returns the transport message reference for the live summary,
// empty until the first send.
func (m *Match) MessageRef() string { return m.messageRef }

// SetMessageRef remembers where the transport rendered this match so later
// confirmations can edit the summary in place.
func (m *Match) SetMessageRef(ref string) { m.messageRef = ref }

// Confirm folds one vote into the ledger. Completed matches reject every
// vote with ErrMatchCompleted and stay untouched. An unseen handle gets a
// fresh Player first. Kind votes replace the confirmation state; delta
// votes adjust the add-on count, clamped at zero.
func (m *Match) Confirm(name, handle string, v Vote, at time.Time) error {
	if m.completed {
		return ErrMatchCompleted
	}
	if !v.IsDelta && !v.Kind.Valid() {
		return ErrUnrecognizedValue
	}

	p, ok := m.squad[handle]
	if !ok {
		p = &Player{Name: name, Handle: handle, Confirmation: KindUndecided}
		m.squad[handle] = p
		m.order = append(m.order, handle)
	}

	if v.IsDelta {
		p.AddOn += v.Delta
		if p.AddOn < 0 {
			p.AddOn = 0
		}
		return nil
	}

	p.Confirmation = v.Kind
	p.Voted = true
	p.ConfirmedAt = at
	return nil
}

// Complete moves the match to its terminal state. Idempotent.
func (m *Match) Complete() {
	m.completed = true
}

// Squad returns the players in first-confirmation order.
func (m *Match) Squad() []Player {
	out := make([]Player, 0, len(m.order))
	for _, handle := range m.order {
		out = append(out, *m.squad[handle])
	}
	return out
}
