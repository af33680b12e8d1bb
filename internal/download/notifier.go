package download

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Event is one queue notification: a status change or a progress tick
// for a single item.
type Event struct {
	Type            string    `json:"type"` // status, progress
	ItemID          string    `json:"item_id"`
	SongID          string    `json:"song_id"`
	Status          string    `json:"status"`
	Progress        float64   `json:"progress"`
	DownloadedBytes int64     `json:"downloaded_bytes"`
	TotalBytes      int64     `json:"total_bytes"`
	Speed           float64   `json:"speed"` // bytes per second
	Error           string    `json:"error,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// SpeedString renders the transfer speed for display.
func (e Event) SpeedString() string {
	if e.Speed <= 0 {
		return ""
	}
	return humanize.Bytes(uint64(e.Speed)) + "/s"
}

// String renders a one-line summary of the event.
func (e Event) String() string {
	if e.Type == "progress" {
		return fmt.Sprintf("%s %.0f%% (%s of %s)", e.SongID, e.Progress*100,
			humanize.Bytes(uint64(e.DownloadedBytes)), humanize.Bytes(uint64(e.TotalBytes)))
	}
	return fmt.Sprintf("%s -> %s", e.SongID, e.Status)
}

// transferStats tracks per-item byte counters between progress ticks
// so speed can be derived.
type transferStats struct {
	startTime  time.Time
	lastUpdate time.Time
	lastBytes  int64
	speed      float64
}

// Notifier broadcasts queue events to subscribers without blocking the
// workers. Slow subscribers lose events rather than stall a transfer.
type Notifier struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int

	statsMu sync.Mutex
	stats   map[string]*transferStats
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		subs:  make(map[int]chan Event),
		stats: make(map[string]*transferStats),
	}
}

// Subscribe registers a subscriber and returns its channel plus an
// unsubscribe function.
func (n *Notifier) Subscribe() (<-chan Event, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan Event, 64)
	n.subs[id] = ch

	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub)
		}
	}
}

// NotifyStatus broadcasts a status change.
func (n *Notifier) NotifyStatus(itemID, songID, status, errorMessage string) {
	switch status {
	case StatusDownloading:
		now := time.Now()
		n.statsMu.Lock()
		n.stats[itemID] = &transferStats{startTime: now, lastUpdate: now}
		n.statsMu.Unlock()
	case StatusCompleted, StatusFailed, StatusCancelled, StatusPaused:
		n.statsMu.Lock()
		delete(n.stats, itemID)
		n.statsMu.Unlock()
	}

	n.broadcast(Event{
		Type:      "status",
		ItemID:    itemID,
		SongID:    songID,
		Status:    status,
		Error:     errorMessage,
		Timestamp: time.Now(),
	})
}

// NotifyProgress broadcasts a progress tick, deriving speed from the
// byte delta since the previous tick.
func (n *Notifier) NotifyProgress(itemID, songID string, downloaded, total int64) {
	now := time.Now()

	n.statsMu.Lock()
	stats, ok := n.stats[itemID]
	if !ok {
		stats = &transferStats{startTime: now, lastUpdate: now}
		n.stats[itemID] = stats
	}
	elapsed := now.Sub(stats.lastUpdate).Seconds()
	if elapsed > 0 && stats.lastUpdate.After(stats.startTime) {
		stats.speed = float64(downloaded-stats.lastBytes) / elapsed
	}
	stats.lastBytes = downloaded
	stats.lastUpdate = now
	speed := stats.speed
	n.statsMu.Unlock()

	progress := 0.0
	if total > 0 {
		progress = float64(downloaded) / float64(total)
	}

	n.broadcast(Event{
		Type:            "progress",
		ItemID:          itemID,
		SongID:          songID,
		Status:          StatusDownloading,
		Progress:        progress,
		DownloadedBytes: downloaded,
		TotalBytes:      total,
		Speed:           speed,
		Timestamp:       now,
	})
}

func (n *Notifier) broadcast(event Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, ch := range n.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Close closes all subscriber channels.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, ch := range n.subs {
		delete(n.subs, id)
		close(ch)
	}
}
