// Package dedupe implements the idempotency gate for inbound updates.
package dedupe

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithRetention sets how long processed update IDs are remembered.
func WithRetention(window time.Duration) Option {
	return func(d *inMemoryDeduper) {
		if window > 0 {
			d.retention = window
		}
	}
}

// WithMaxSize bounds the number of retained IDs. Zero or negative means
// unbounded (expiry alone controls growth).
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}

// WithClock injects the clock used for retention checks. Tests pass a
// clockwork fake clock.
func WithClock(clock clockwork.Clock) Option {
	return func(d *inMemoryDeduper) {
		if clock != nil {
			d.clock = clock
		}
	}
}
