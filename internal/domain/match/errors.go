package match

import "errors"

// Sentinel kinds for vote application errors. Both are recoverable: the
// caller logs and drops the event, no state is mutated.
var (
	ErrUnrecognizedValue = errors.New("unrecognized confirmation value")
	ErrMatchCompleted    = errors.New("match already completed")
)
