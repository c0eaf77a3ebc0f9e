package match

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is one of the enumerated confirmation states a player can hold.
type Kind string

// The closed confirmation set. KindGoing is the primary affirmative kind:
// it is the one counted toward the headcount estimate.
const (
	KindGoing     Kind = "going"
	KindNotGoing  Kind = "not_going"
	KindUndecided Kind = "undecided"
)

// Kinds returns the confirmation kinds in display order.
func Kinds() []Kind {
	return []Kind{KindGoing, KindNotGoing, KindUndecided}
}

// PrimaryKind is the confirmation kind counted toward Totals.All.
func PrimaryKind() Kind { return KindGoing }

// Valid reports whether k belongs to the enumerated set.
func (k Kind) Valid() bool {
	switch k {
	case KindGoing, KindNotGoing, KindUndecided:
		return true
	}
	return false
}

// Vote is the parsed form of a raw confirmation value: either a kind vote
// or a signed add-on delta, never both. Raw strings are parsed once at the
// transport boundary; the ledger only ever sees this tagged form.
type Vote struct {
	Kind    Kind
	Delta   int
	IsDelta bool
}

// KindVote builds a kind-carrying vote.
func KindVote(k Kind) Vote { return Vote{Kind: k} }

// DeltaVote builds an add-on delta vote.
func DeltaVote(d int) Vote { return Vote{Delta: d, IsDelta: true} }

// ParseVote classifies a raw confirmation value. A member of the kind enum
// parses as a kind vote; a signed integer (conventionally ±1) parses as an
// add-on delta; anything else is ErrUnrecognizedValue.
func ParseVote(raw string) (Vote, error) {
	raw = strings.TrimSpace(raw)
	if k := Kind(raw); k.Valid() {
		return KindVote(k), nil
	}
	if d, err := strconv.Atoi(raw); err == nil {
		return DeltaVote(d), nil
	}
	return Vote{}, fmt.Errorf("%w: %q", ErrUnrecognizedValue, raw)
}

// VoteValues lists the raw values the transport may render as buttons:
// every kind plus the two conventional add-on deltas.
func VoteValues() []string {
	kinds := Kinds()
	out := make([]string, 0, len(kinds)+2)
	for _, k := range kinds {
		out = append(out, string(k))
	}
	return append(out, "+1", "-1")
}
