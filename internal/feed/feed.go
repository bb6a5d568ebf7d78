// Package feed keeps the most recent executed trades in a fixed-capacity
// ring, newest first.
package feed

import (
	"sync"

	"bursa/internal/domain"
)

// Feed is a bounded trade log. When full, pushing evicts the oldest entry.
type Feed struct {
	mu   sync.Mutex
	buf  []domain.FeedEntry
	next int // slot the next push writes
	n    int
}

// New creates a feed holding at most capacity entries (minimum 1).
func New(capacity int) *Feed {
	if capacity < 1 {
		capacity = 1
	}
	return &Feed{buf: make([]domain.FeedEntry, capacity)}
}

// Push records a trade as the newest entry.
func (f *Feed) Push(e domain.FeedEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buf[f.next] = e
	f.next = (f.next + 1) % len(f.buf)
	if f.n < len(f.buf) {
		f.n++
	}
}

// Entries returns a copy of the feed, newest first.
func (f *Feed) Entries() []domain.FeedEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.FeedEntry, 0, f.n)
	for i := 1; i <= f.n; i++ {
		idx := (f.next - i + len(f.buf)) % len(f.buf)
		out = append(out, f.buf[idx])
	}
	return out
}

// Len returns the number of stored entries.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

// Cap returns the feed capacity.
func (f *Feed) Cap() int {
	return len(f.buf)
}
