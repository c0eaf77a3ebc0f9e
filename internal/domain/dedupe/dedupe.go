// Package dedupe implements the idempotency gate for inbound updates.
//
// Transports deliver at least once; every update must pass this gate before
// it may mutate a match. Entries are retained for a bounded window (order
// of days): a replay outside that window is accepted as vanishingly
// unlikely rather than formally impossible.
package dedupe

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Deduper records seen update IDs to collapse at-least-once delivery into
// at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen inside the
	// retention window and records it if not. Returns true if id was
	// already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an ID from the seen set, allowing a retry. Only
	// used when an update was marked seen but failed to be processed
	// (e.g. queue backpressure).
	Unrecord(ctx context.Context, id string)

	// Size returns the number of IDs currently retained.
	Size() int64
}

const (
	// defaultRetention mirrors the three-day processed-confirmation TTL
	// of the persistence layer.
	defaultRetention = 72 * time.Hour
	defaultMaxSize   = 500_000
)

// entry pairs an update id with the instant it was recorded, queued in
// insertion order so expiry only ever inspects the front.
type entry struct {
	id         string
	recordedAt time.Time
}

// inMemoryDeduper implements Deduper with a map plus an insertion-order
// queue. The queue may hold ghosts for unrecorded or re-recorded ids; the
// map timestamp is authoritative and ghosts are skipped during sweeps.
type inMemoryDeduper struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	queue     []entry
	retention time.Duration
	maxSize   int
	clock     clockwork.Clock
}

// NewInMemoryDeduper creates an in-memory deduper. Defaults: three-day
// retention, 500k entry bound, real clock.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		seen:      make(map[string]time.Time),
		retention: defaultRetention,
		maxSize:   defaultMaxSize,
		clock:     clockwork.NewRealClock(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// SeenAndRecord atomically checks and records id.
func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	now := d.clock.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.sweep(now)

	if at, ok := d.seen[id]; ok && now.Sub(at) < d.retention {
		return true
	}

	d.seen[id] = now
	d.queue = append(d.queue, entry{id: id, recordedAt: now})
	return false
}

// Unrecord removes an ID from the seen set.
func (d *inMemoryDeduper) Unrecord(ctx context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
	// The queue ghost is skipped when its turn to expire comes.
}

// Size returns the number of IDs currently retained.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}

// sweep drops expired entries from the queue front and, when the set is at
// its size bound, the oldest live entries, so the following insert cannot
// exceed the bound. Must be called with d.mu held.
func (d *inMemoryDeduper) sweep(now time.Time) {
	for len(d.queue) > 0 {
		head := d.queue[0]
		expired := now.Sub(head.recordedAt) >= d.retention
		over := d.maxSize > 0 && len(d.seen) >= d.maxSize
		if !expired && !over {
			return
		}
		d.queue = d.queue[1:]
		// Skip ghosts: the id may have been unrecorded or re-recorded
		// with a newer timestamp since this queue entry was appended.
		if at, ok := d.seen[head.id]; ok && at.Equal(head.recordedAt) {
			delete(d.seen, head.id)
		}
	}
}
