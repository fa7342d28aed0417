package bots

import (
	"sync"
	"time"
)

// Deduper remembers recently seen event IDs so platform retries of the
// same event are answered once.
type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	seen map[string]time.Time
}

// NewDeduper creates a Deduper that remembers IDs for ttl. A ttl of zero
// disables deduplication.
func NewDeduper(ttl time.Duration) *Deduper {
	return &Deduper{ttl: ttl, now: time.Now, seen: make(map[string]time.Time)}
}

// Seen reports whether id was recorded within the TTL, and records it if not.
func (d *Deduper) Seen(id string) bool {
	if d == nil || d.ttl <= 0 || id == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if at, ok := d.seen[id]; ok && now.Sub(at) < d.ttl {
		return true
	}
	d.seen[id] = now
	return false
}

// Sweep drops expired IDs and returns how many were removed.
func (d *Deduper) Sweep() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	removed := 0
	for id, at := range d.seen {
		if now.Sub(at) >= d.ttl {
			delete(d.seen, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of remembered IDs.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
