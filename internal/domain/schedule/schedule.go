// Package schedule implements the weekly recurrence calculator.
//
// A Schedule is a non-empty ordered set of weekly slots. Given "now" it
// answers one question: when is the next occurrence? The calculation is
// pure; callers inject the current instant.
package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Slot is one weekly recurrence point: ISO weekday (1=Monday..7=Sunday)
// plus a time of day.
type Slot struct {
	Weekday int
	Hour    int
	Minute  int
}

// before orders slots chronologically within a week.
func (s Slot) before(o Slot) bool {
	if s.Weekday != o.Weekday {
		return s.Weekday < o.Weekday
	}
	if s.Hour != o.Hour {
		return s.Hour < o.Hour
	}
	return s.Minute < o.Minute
}

func (s Slot) String() string {
	return fmt.Sprintf("%d;%02d:%02d", s.Weekday, s.Hour, s.Minute)
}

// Schedule is an immutable, sorted, non-empty set of distinct slots.
type Schedule struct {
	slots []Slot
}

// New validates and constructs a Schedule. The slot set must be non-empty
// and free of duplicates; each slot must carry a valid weekday and time.
func New(slots []Slot) (*Schedule, error) {
	if len(slots) == 0 {
		return nil, ErrEmptySchedule
	}

	sorted := make([]Slot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].before(sorted[j]) })

	for i, s := range sorted {
		if s.Weekday < 1 || s.Weekday > 7 {
			return nil, fmt.Errorf("%w: weekday %d out of range", ErrInvalidSlot, s.Weekday)
		}
		if s.Hour < 0 || s.Hour > 23 || s.Minute < 0 || s.Minute > 59 {
			return nil, fmt.Errorf("%w: time %02d:%02d out of range", ErrInvalidSlot, s.Hour, s.Minute)
		}
		if i > 0 && sorted[i-1] == s {
			return nil, fmt.Errorf("%w: duplicate slot %s", ErrInvalidSlot, s)
		}
	}

	return &Schedule{slots: sorted}, nil
}

// Parse builds a Schedule from its wire form: comma-separated
// "weekday;HH:MM" entries, e.g. "2;09:00,5;20:30".
func Parse(spec string) (*Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, ErrEmptySchedule
	}

	var slots []Slot
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		slot, err := parseSlot(entry)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return New(slots)
}

func parseSlot(entry string) (Slot, error) {
	day, clock, ok := strings.Cut(entry, ";")
	if !ok {
		return Slot{}, fmt.Errorf("%w: entry %q is not weekday;HH:MM", ErrInvalidSlot, entry)
	}
	weekday, err := strconv.Atoi(strings.TrimSpace(day))
	if err != nil {
		return Slot{}, fmt.Errorf("%w: weekday %q", ErrInvalidSlot, day)
	}
	hh, mm, ok := strings.Cut(strings.TrimSpace(clock), ":")
	if !ok {
		return Slot{}, fmt.Errorf("%w: time %q is not HH:MM", ErrInvalidSlot, clock)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return Slot{}, fmt.Errorf("%w: hour %q", ErrInvalidSlot, hh)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return Slot{}, fmt.Errorf("%w: minute %q", ErrInvalidSlot, mm)
	}
	return Slot{Weekday: weekday, Hour: hour, Minute: minute}, nil
}

// Slots returns a copy of the slot set in chronological week order.
func (s *Schedule) Slots() []Slot {
	out := make([]Slot, len(s.slots))
	copy(out, s.slots)
	return out
}

// String renders the schedule back into its wire form.
func (s *Schedule) String() string {
	parts := make([]string, len(s.slots))
	for i, slot := range s.slots {
		parts[i] = slot.String()
	}
	return strings.Join(parts, ",")
}

// NextOccurrence returns the next slot instant strictly after now.
//
// Every slot is projected into now's calendar week; the earliest projection
// still ahead of now wins. A slot today whose time has passed does not
// qualify. When the whole week is exhausted the chronologically-first slot
// wraps into next week, 7 - isoWeekday(now) + slot.weekday days ahead.
func (s *Schedule) NextOccurrence(now time.Time) time.Time {
	today := isoWeekday(now)

	for _, slot := range s.slots {
		candidate := at(now, slot.Weekday-today, slot)
		if candidate.After(now) {
			return candidate
		}
	}

	first := s.slots[0]
	return at(now, 7-today+first.Weekday, first)
}

// at builds the instant `days` days from now's date at the slot's time of
// day, in now's location.
func at(now time.Time, days int, s Slot) time.Time {
	d := now.AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), s.Hour, s.Minute, 0, 0, now.Location())
}

// isoWeekday maps Go's Sunday-based weekday to ISO 1..7 (Monday=1).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
