package match

// PlayerLine is one row of a rendered partition.
type PlayerLine struct {
	Name   string `json:"name"`
	Handle string `json:"handle"`
	AddOn  int    `json:"add_on"`
}

// Totals aggregates the squad-wide counters.
type Totals struct {
	// WithMe is the sum of positive add-on counts across the squad.
	WithMe int `json:"with_me"`
	// Voted counts players holding an explicit confirmation.
	Voted int `json:"voted"`
	// All is the headcount estimate: WithMe plus the primary affirmative
	// partition size.
	All int `json:"all"`
}

// Stats is the read-only aggregation of a match's vote ledger.
type Stats struct {
	ByKind map[Kind][]PlayerLine `json:"by_kind"`
	Totals Totals                `json:"totals"`
}

// Stats partitions the squad by confirmation kind, preserving the
// first-confirmation order inside each partition. Players who only ever
// sent add-on deltas keep the implicit undecided state and land in no
// partition; they still contribute their add-ons to WithMe.
func (m *Match) Stats() Stats {
	byKind := make(map[Kind][]PlayerLine, len(Kinds()))
	for _, k := range Kinds() {
		byKind[k] = []PlayerLine{}
	}

	totals := Totals{}
	for _, handle := range m.order {
		p := m.squad[handle]
		if p.AddOn > 0 {
			totals.WithMe += p.AddOn
		}
		if !p.Voted {
			continue
		}
		byKind[p.Confirmation] = append(byKind[p.Confirmation], PlayerLine{
			Name:   p.Name,
			Handle: p.Handle,
			AddOn:  p.AddOn,
		})
	}

	for _, k := range Kinds() {
		totals.Voted += len(byKind[k])
	}
	totals.All = totals.WithMe + len(byKind[PrimaryKind()])

	return Stats{ByKind: byKind, Totals: totals}
}
