package errlog

import (
	"sync"
	"time"
)

// DefaultCapacity bounds the per-device error history.
const DefaultCapacity = 100

// Entry is one device-reported error. Entries are immutable once appended.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
}

// Ring keeps a bounded history of device-reported errors. Once full, the
// oldest entry is evicted on append. Identical consecutive errors are kept as
// separate entries; the repeat count is diagnostic signal.
type Ring struct {
	capacity int

	mu      sync.Mutex
	entries []Entry
}

// NewRing constructs a ring with the given capacity; non-positive values fall
// back to DefaultCapacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{capacity: capacity}
}

// Append records an error detail.
func (r *Ring) Append(timestamp time.Time, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Timestamp: timestamp.UTC(), Error: detail})
	if len(r.entries) > r.capacity {
		r.entries = r.entries[len(r.entries)-r.capacity:]
	}
}

// List returns entries newest first.
func (r *Ring) List() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	for i, entry := range r.entries {
		out[len(r.entries)-1-i] = entry
	}
	return out
}

// Len returns the number of stored entries.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
