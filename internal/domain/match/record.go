package match

import "time"

// Record is the flat persistence shape of a match. Stores own serialization;
// the ledger only converts to and from this form.
type Record struct {
	ID         string         `json:"id"`
	TeamID     string         `json:"team_id"`
	Date       time.Time      `json:"date"`
	Completed  bool           `json:"completed"`
	MessageRef string         `json:"message_ref,omitempty"`
	Squad      []PlayerRecord `json:"squad"`
}

// PlayerRecord mirrors Player for persistence, kept in first-confirmation
// order so restored matches render deterministically.
type PlayerRecord struct {
	Name         string    `json:"name"`
	Handle       string    `json:"handle"`
	Confirmation Kind      `json:"confirmation"`
	AddOn        int       `json:"add_on"`
	Voted        bool      `json:"voted"`
	ConfirmedAt  time.Time `json:"confirmed_at,omitempty"`
}

// Record snapshots the match into its persistence shape.
func (m *Match) Record() Record {
	squad := make([]PlayerRecord, 0, len(m.order))
	for _, handle := range m.order {
		p := m.squad[handle]
		squad = append(squad, PlayerRecord{
			Name:         p.Name,
			Handle:       p.Handle,
			Confirmation: p.Confirmation,
			AddOn:        p.AddOn,
			Voted:        p.Voted,
			ConfirmedAt:  p.ConfirmedAt,
		})
	}
	return Record{
		ID:         m.id,
		TeamID:     m.teamID,
		Date:       m.date,
		Completed:  m.completed,
		MessageRef: m.messageRef,
		Squad:      squad,
	}
}

// FromRecord rebuilds a match from its persistence shape.
func FromRecord(r Record) *Match {
	m := &Match{
		id:         r.ID,
		teamID:     r.TeamID,
		date:       r.Date,
		completed:  r.Completed,
		messageRef: r.MessageRef,
		squad:      make(map[string]*Player, len(r.Squad)),
		order:      make([]string, 0, len(r.Squad)),
	}
	for _, pr := range r.Squad {
		m.squad[pr.Handle] = &Player{
			Name:         pr.Name,
			Handle:       pr.Handle,
			Confirmation: pr.Confirmation,
			AddOn:        pr.AddOn,
			Voted:        pr.Voted,
			ConfirmedAt:  pr.ConfirmedAt,
		}
		m.order = append(m.order, pr.Handle)
	}
	return m
}
