package download

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/robinradio/robincore/internal/errors"
	"github.com/robinradio/robincore/internal/monitoring"
	"github.com/robinradio/robincore/internal/network"
	"github.com/robinradio/robincore/internal/store"
)

// Config holds the queue manager settings.
type Config struct {
	// Concurrency is the number of simultaneous transfers.
	Concurrency int
	// Dir is the offline storage directory.
	Dir string
	// ProgressInterval throttles per-item progress persistence and
	// notifications.
	ProgressInterval time.Duration
	// TagFiles controls ID3 tagging of completed files.
	TagFiles bool
}

// Manager runs the download queue: a FIFO of pending items drained
// into a bounded set of concurrent transfers. All state transitions
// are persisted before they are broadcast, so the queue survives a
// restart.
type Manager struct {
	store    *store.DownloadStore
	offline  *store.OfflineStore
	notifier *Notifier
	transfer *transferrer
	logger   *zap.Logger

	concurrency int
	tagFiles    bool

	mu      sync.Mutex
	pending []string
	active  map[string]*control
	started bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a queue manager. Transfers use the shared
// transfer client, which leaves per-request deadlines to the caller.
func NewManager(downloadStore *store.DownloadStore, offlineStore *store.OfflineStore, notifier *Notifier, cfg Config, logger *zap.Logger) *Manager {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 500 * time.Millisecond
	}
	return &Manager{
		store:       downloadStore,
		offline:     offlineStore,
		notifier:    notifier,
		transfer:    newTransferrer(network.GetTransferClient(), cfg.Dir, cfg.ProgressInterval, logger),
		logger:      logger,
		concurrency: cfg.Concurrency,
		tagFiles:    cfg.TagFiles,
		active:      make(map[string]*control),
	}
}

// Start recovers persisted state and begins draining the queue. Items
// left in downloading by a crash are demoted to pending and re-queued
// in their original order.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("download manager already started")
	}
	m.started = true
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	interrupted, err := m.store.ListByStatus(StatusDownloading)
	if err != nil {
		return errors.NewCacheError("failed to recover interrupted downloads", err)
	}
	for _, item := range interrupted {
		item.Status = StatusPending
		item.Progress = 0
		item.DownloadedBytes = 0
		item.ErrorMessage = ""
		if err := m.store.Update(item); err != nil {
			m.logger.Warn("failed to demote interrupted download",
				zap.String("itemId", item.ID), zap.Error(err))
		}
	}
	if len(interrupted) > 0 {
		m.logger.Info("recovered interrupted downloads", zap.Int("count", len(interrupted)))
	}

	queued, err := m.store.ListByStatus(StatusPending)
	if err != nil {
		return errors.NewCacheError("failed to load pending downloads", err)
	}

	m.mu.Lock()
	for _, item := range queued {
		m.pending = append(m.pending, item.ID)
	}
	m.mu.Unlock()

	m.schedule()
	return nil
}

// Stop interrupts active transfers and waits for workers to exit.
// Interrupted items go back to pending so the next Start resumes them.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Enqueue adds a song to the queue. Any existing item for the same
// song rejects the request regardless of its status; a failed item is
// re-run with Retry, and a finished one must be removed before the
// song can be queued again.
func (m *Manager) Enqueue(req Request) (*store.DownloadItem, error) {
	if req.SongID == "" || req.URL == "" || req.SongName == "" {
		return nil, errors.NewValidationError("song id, name, and url are required")
	}

	existing, err := m.store.GetBySongID(req.SongID)
	if err != nil {
		return nil, errors.NewCacheError("failed to check existing download", err)
	}
	if existing != nil {
		return nil, errors.NewValidationError(
			fmt.Sprintf("song %s already has a download in status %s", req.SongID, existing.Status))
	}

	item := &store.DownloadItem{
		ID:        uuid.NewString(),
		SongID:    req.SongID,
		SongName:  req.SongName,
		Artist:    req.Artist,
		AlbumName: req.AlbumName,
		URL:       req.URL,
		Status:    StatusPending,
	}
	if err := m.store.Add(item); err != nil {
		return nil, errors.NewCacheError("failed to enqueue download", err)
	}

	m.mu.Lock()
	m.pending = append(m.pending, item.ID)
	m.mu.Unlock()

	m.notifier.NotifyStatus(item.ID, item.SongID, StatusPending, "")
	m.logger.Info("download enqueued",
		zap.String("itemId", item.ID),
		zap.String("song", item.SongName))

	m.schedule()
	return item, nil
}

// Pause flags an active transfer. The worker notices the flag at its
// next chunk; a transfer that finishes before noticing completes
// normally. Only a downloading item can be paused.
func (m *Manager) Pause(id string) error {
	m.mu.Lock()
	if ctl, ok := m.active[id]; ok {
		ctl.paused.Store(true)
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	return m.rejectTransition(id, "pause")
}

// Resume returns a paused item to the back of the pending queue. The
// transfer restarts from the beginning.
func (m *Manager) Resume(id string) error {
	item, err := m.store.GetByID(id)
	if err != nil {
		return errors.NewCacheError("failed to load download", err)
	}
	if item == nil {
		return errors.NewNotFoundError("download not found: " + id)
	}
	if item.Status != StatusPaused {
		return errors.NewValidationError("cannot resume download in status " + item.Status)
	}

	item.Status = StatusPending
	item.Progress = 0
	item.DownloadedBytes = 0
	if err := m.store.Update(item); err != nil {
		return errors.NewCacheError("failed to resume download", err)
	}

	m.mu.Lock()
	m.pending = append(m.pending, id)
	m.mu.Unlock()

	m.notifier.NotifyStatus(item.ID, item.SongID, StatusPending, "")
	m.schedule()
	return nil
}

// Cancel stops an item permanently. Pending and paused items move to
// cancelled immediately; an active transfer is flagged and transitions
// once its worker notices.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	if ctl, ok := m.active[id]; ok {
		ctl.cancelled.Store(true)
		m.mu.Unlock()
		return nil
	}
	removed := m.removePendingLocked(id)
	m.mu.Unlock()

	if removed {
		return m.setStatus(id, StatusCancelled, "")
	}

	item, err := m.store.GetByID(id)
	if err != nil {
		return errors.NewCacheError("failed to load download", err)
	}
	if item == nil {
		return errors.NewNotFoundError("download not found: " + id)
	}
	if item.Status != StatusPaused {
		return errors.NewValidationError("cannot cancel download in status " + item.Status)
	}
	return m.setStatus(id, StatusCancelled, "")
}

// Retry re-queues a failed item from scratch.
func (m *Manager) Retry(id string) error {
	item, err := m.store.GetByID(id)
	if err != nil {
		return errors.NewCacheError("failed to load download", err)
	}
	if item == nil {
		return errors.NewNotFoundError("download not found: " + id)
	}
	if item.Status != StatusFailed {
		return errors.NewValidationError("cannot retry download in status " + item.Status)
	}

	item.Status = StatusPending
	item.Progress = 0
	item.DownloadedBytes = 0
	item.ErrorMessage = ""
	if err := m.store.Update(item); err != nil {
		return errors.NewCacheError("failed to retry download", err)
	}

	m.mu.Lock()
	m.pending = append(m.pending, id)
	m.mu.Unlock()

	m.notifier.NotifyStatus(item.ID, item.SongID, StatusPending, "")
	m.schedule()
	return nil
}

// Remove deletes an item from the queue and the store. An active
// transfer must be cancelled first.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	if _, ok := m.active[id]; ok {
		m.mu.Unlock()
		return errors.NewValidationError("cannot remove an active download, cancel it first")
	}
	m.removePendingLocked(id)
	m.mu.Unlock()

	if err := m.store.Delete(id); err != nil {
		return errors.NewCacheError("failed to remove download", err)
	}
	return nil
}

// ClearHistory deletes all items in a terminal status.
func (m *Manager) ClearHistory() error {
	items, err := m.store.ListAll()
	if err != nil {
		return errors.NewCacheError("failed to list downloads", err)
	}
	for _, item := range items {
		if IsTerminal(item.Status) {
			if err := m.store.Delete(item.ID); err != nil {
				return errors.NewCacheError("failed to delete download "+item.ID, err)
			}
		}
	}
	return nil
}

// List returns every queue item in creation order.
func (m *Manager) List() ([]*store.DownloadItem, error) {
	return m.store.ListAll()
}

// Active returns the items currently transferring.
func (m *Manager) Active() ([]*store.DownloadItem, error) {
	return m.store.ListByStatus(StatusDownloading)
}

// Queued returns the items waiting in the pending queue.
func (m *Manager) Queued() ([]*store.DownloadItem, error) {
	return m.store.ListByStatus(StatusPending)
}

// Get returns one queue item, or nil when absent.
func (m *Manager) Get(id string) (*store.DownloadItem, error) {
	return m.store.GetByID(id)
}

// Offline returns all completed offline songs.
func (m *Manager) Offline() ([]*store.OfflineSong, error) {
	return m.offline.ListAll()
}

// VerifyOffline drops offline records whose backing file has gone
// missing and returns how many were removed.
func (m *Manager) VerifyOffline() (int, error) {
	songs, err := m.offline.ListAll()
	if err != nil {
		return 0, errors.NewCacheError("failed to list offline songs", err)
	}

	removed := 0
	for _, song := range songs {
		if _, err := os.Stat(song.LocalPath); err == nil {
			continue
		}
		if err := m.offline.Delete(song.SongID); err != nil {
			return removed, errors.NewCacheError("failed to drop stale offline record", err)
		}
		removed++
		m.logger.Info("dropped offline record with missing file",
			zap.String("songId", song.SongID),
			zap.String("path", song.LocalPath))
	}
	return removed, nil
}

// Events exposes the queue notification stream.
func (m *Manager) Events() *Notifier {
	return m.notifier
}

// schedule fills free transfer slots from the front of the pending
// queue. Called after every transition that could free a slot or add
// work.
func (m *Manager) schedule() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return
	}

	for len(m.active) < m.concurrency && len(m.pending) > 0 {
		id := m.pending[0]
		m.pending = m.pending[1:]

		item, err := m.store.GetByID(id)
		if err != nil || item == nil || item.Status != StatusPending {
			continue
		}

		item.Status = StatusDownloading
		if err := m.store.Update(item); err != nil {
			m.logger.Error("failed to mark download active",
				zap.String("itemId", id), zap.Error(err))
			continue
		}

		ctl := &control{}
		m.active[id] = ctl
		m.notifier.NotifyStatus(item.ID, item.SongID, StatusDownloading, "")

		m.wg.Add(1)
		go m.runItem(item, ctl)
	}

	monitoring.UpdateQueueGauges(len(m.active), len(m.pending))
}

// runItem performs one transfer and records its outcome.
func (m *Manager) runItem(item *store.DownloadItem, ctl *control) {
	defer m.wg.Done()

	onProgress := func(downloaded, total int64) {
		item.DownloadedBytes = downloaded
		item.TotalBytes = total
		if total > 0 {
			item.Progress = float64(downloaded) / float64(total)
		}
		if err := m.store.Update(item); err != nil {
			m.logger.Warn("failed to persist download progress",
				zap.String("itemId", item.ID), zap.Error(err))
		}
		m.notifier.NotifyProgress(item.ID, item.SongID, downloaded, total)
	}

	path, written, err := m.transfer.run(m.ctx, item.URL, item.SongName, item.Artist, ctl, onProgress)

	switch {
	case err == nil:
		m.finishCompleted(item, path, written)
	case stderrors.Is(err, errTransferPaused):
		m.finish(item, StatusPaused, "")
	case stderrors.Is(err, errTransferCancelled):
		m.finish(item, StatusCancelled, "")
		monitoring.RecordDownloadFinished(StatusCancelled, 0)
	case stderrors.Is(err, context.Canceled):
		if ctl.cancelled.Load() {
			m.finish(item, StatusCancelled, "")
			monitoring.RecordDownloadFinished(StatusCancelled, 0)
			break
		}
		// Manager shutdown, not a user cancel: hand the item back to
		// the pending queue so the next Start picks it up.
		item.Progress = 0
		item.DownloadedBytes = 0
		m.finish(item, StatusPending, "")
	default:
		m.logger.Warn("download failed",
			zap.String("itemId", item.ID),
			zap.String("song", item.SongName),
			zap.Error(err))
		m.finish(item, StatusFailed, err.Error())
		monitoring.RecordDownloadFinished(StatusFailed, 0)
	}

	m.mu.Lock()
	delete(m.active, item.ID)
	m.mu.Unlock()

	m.schedule()
}

func (m *Manager) finishCompleted(item *store.DownloadItem, path string, written int64) {
	item.Progress = 1.0
	item.DownloadedBytes = written
	if item.TotalBytes <= 0 {
		item.TotalBytes = written
	}

	if m.tagFiles {
		if err := writeTags(path, item.SongName, item.Artist, item.AlbumName); err != nil {
			m.logger.Warn("failed to tag offline file",
				zap.String("path", path), zap.Error(err))
		}
	}

	if err := m.offline.Put(&store.OfflineSong{
		SongID:      item.SongID,
		SongName:    item.SongName,
		Artist:      item.Artist,
		AlbumName:   item.AlbumName,
		LocalPath:   path,
		OriginalURL: item.URL,
		FileSize:    written,
	}); err != nil {
		m.logger.Error("failed to record offline song",
			zap.String("songId", item.SongID), zap.Error(err))
	}

	m.finish(item, StatusCompleted, "")
	monitoring.RecordDownloadFinished(StatusCompleted, written)
}

// finish persists a terminal (or paused) status and broadcasts it.
func (m *Manager) finish(item *store.DownloadItem, status, errorMessage string) {
	item.Status = status
	item.ErrorMessage = errorMessage
	if err := m.store.Update(item); err != nil {
		m.logger.Error("failed to persist download status",
			zap.String("itemId", item.ID),
			zap.String("status", status),
			zap.Error(err))
	}
	m.notifier.NotifyStatus(item.ID, item.SongID, status, errorMessage)
}

// setStatus loads, transitions, persists, and broadcasts in one step
// for items that are not actively transferring.
func (m *Manager) setStatus(id, status, errorMessage string) error {
	item, err := m.store.GetByID(id)
	if err != nil {
		return errors.NewCacheError("failed to load download", err)
	}
	if item == nil {
		return errors.NewNotFoundError("download not found: " + id)
	}
	m.finish(item, status, errorMessage)
	return nil
}

// rejectTransition builds the error for a control call that found the
// item in the wrong state.
func (m *Manager) rejectTransition(id, action string) error {
	item, err := m.store.GetByID(id)
	if err != nil {
		return errors.NewCacheError("failed to load download", err)
	}
	if item == nil {
		return errors.NewNotFoundError("download not found: " + id)
	}
	return errors.NewValidationError(
		fmt.Sprintf("cannot %s download in status %s", action, item.Status))
}

// removePendingLocked drops an id from the pending queue. Caller must
// hold mu.
func (m *Manager) removePendingLocked(id string) bool {
	for i, pid := range m.pending {
		if pid == id {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return true
		}
	}
	return false
}
