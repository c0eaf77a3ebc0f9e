package schedule

import "errors"

// Sentinel kinds for schedule construction errors.
var (
	ErrEmptySchedule = errors.New("schedule needs at least one slot")
	ErrInvalidSlot   = errors.New("invalid schedule slot")
)
