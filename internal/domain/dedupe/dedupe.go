// Package dedupe defines the interface for idempotency tracking of
// observation IDs.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen observation IDs to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an ID from the seen set, allowing it to be retried.
	// Used when an observation was marked seen but could not be enqueued.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper implements Deduper with a map plus a FIFO eviction ring.
// With maxSize > 0 the oldest recorded IDs are evicted once the cache is
// full; with maxSize <= 0 the cache grows without bound.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	ring    []string // insertion order, oldest at head
	head    int
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration
// options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]struct{})
	if d.maxSize > 0 {
		d.ring = make([]string, 0, d.maxSize)
	}
	return d
}

// SeenAndRecord atomically checks if id was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}

	d.seen[id] = struct{}{}
	if d.maxSize > 0 {
		d.ring = append(d.ring, id)
	}
	d.size.Add(1)
	return false
}

// Unrecord removes an ID from the seen set. The eviction ring keeps a
// tombstone; evictOldest skips IDs that are no longer in the map.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; !exists {
		return
	}
	delete(d.seen, id)
	d.size.Add(-1)
}

// evictOldest drops the oldest still-recorded ID. Must be called with d.mu
// held.
func (d *inMemoryDeduper) evictOldest() {
	for d.head < len(d.ring) {
		id := d.ring[d.head]
		d.head++
		if _, exists := d.seen[id]; exists {
			delete(d.seen, id)
			d.size.Add(-1)
			break
		}
	}
	// Compact once the consumed prefix dominates the ring.
	if d.head > 0 && d.head*2 >= len(d.ring) {
		d.ring = append(d.ring[:0], d.ring[d.head:]...)
		d.head = 0
	}
}

// Size returns the current number of recorded IDs.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
