// Package download implements the persistent download queue: a fixed
// number of concurrent transfers over a FIFO of pending items, with
// pause, cancel, and retry controls and crash recovery on startup.
package download

// Download item statuses. An item moves pending -> downloading and
// from there to exactly one of completed, failed, paused, or
// cancelled. paused items go back to pending on resume; failed items
// go back to pending on retry.
const (
	StatusPending     = "pending"
	StatusDownloading = "downloading"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
	StatusPaused      = "paused"
	StatusCancelled   = "cancelled"
)

// IsTerminal reports whether a status ends an item's lifecycle. paused
// is not terminal: a paused item can be resumed.
func IsTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Request describes one song to enqueue.
type Request struct {
	SongID    string
	SongName  string
	Artist    string
	AlbumName string
	URL       string
}
