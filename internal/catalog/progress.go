package catalog

import (
	"sync"
	"time"
)

// LoadingProgress is one point-in-time report of a catalog sync.
// Progress runs 0.0 to 1.0 and never moves backwards within a sync.
type LoadingProgress struct {
	Message            string
	Progress           float64
	ItemsProcessed     int
	TotalItems         int
	Elapsed            time.Duration
	EstimatedRemaining *time.Duration
}

// ProgressStream broadcasts LoadingProgress events to any number of
// subscribers. Events are not replayed: a subscriber only sees events
// published after it subscribed. Slow subscribers lose events rather
// than stall the sync.
type ProgressStream struct {
	mu     sync.RWMutex
	subs   map[int]chan LoadingProgress
	nextID int
	closed bool
}

// NewProgressStream creates an empty stream.
func NewProgressStream() *ProgressStream {
	return &ProgressStream{subs: make(map[int]chan LoadingProgress)}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. The channel is closed on unsubscribe or when
// the stream itself is closed.
func (ps *ProgressStream) Subscribe() (<-chan LoadingProgress, func()) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	id := ps.nextID
	ps.nextID++
	ch := make(chan LoadingProgress, 16)
	if ps.closed {
		close(ch)
		return ch, func() {}
	}
	ps.subs[id] = ch

	unsubscribe := func() {
		ps.mu.Lock()
		defer ps.mu.Unlock()
		if sub, ok := ps.subs[id]; ok {
			delete(ps.subs, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

// Publish delivers an event to all current subscribers without
// blocking. A subscriber whose buffer is full misses the event.
func (ps *ProgressStream) Publish(p LoadingProgress) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	if ps.closed {
		return
	}
	for _, ch := range ps.subs {
		select {
		case ch <- p:
		default:
		}
	}
}

// Close shuts the stream down and closes all subscriber channels.
func (ps *ProgressStream) Close() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.closed {
		return
	}
	ps.closed = true
	for id, ch := range ps.subs {
		delete(ps.subs, id)
		close(ch)
	}
}
