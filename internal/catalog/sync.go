package catalog

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/robinradio/robincore/internal/errors"
	"github.com/robinradio/robincore/internal/monitoring"
	"github.com/robinradio/robincore/internal/remote"
)

// SyncConfig bounds the synchronizer's remote calls.
type SyncConfig struct {
	// BatchSize is the number of albums processed concurrently.
	BatchSize int
	// RootListTimeout bounds the top-level artist listing.
	RootListTimeout time.Duration
	// ArtistListTimeout bounds each per-artist album listing.
	ArtistListTimeout time.Duration
	// AlbumListTimeout bounds each per-album track listing.
	AlbumListTimeout time.Duration
}

// Synchronizer walks the remote artist/album/track hierarchy and builds
// the full album list. A sync runs in two passes: a discovery pass that
// enumerates artists and counts albums so progress can be reported
// against a known total, then a processing pass that lists each album's
// tracks and resolves their URLs in fixed-size concurrent batches.
type Synchronizer struct {
	store  remote.Store
	urls   *URLCache
	stream *ProgressStream
	logger *zap.Logger
	cfg    SyncConfig
	retry  errors.RetryConfig

	// artistListings memoizes per-artist album listings between the
	// discovery and processing passes and across single-album fetches.
	mu             sync.Mutex
	artistListings map[string]*remote.Listing
}

// NewSynchronizer creates a Synchronizer publishing progress to stream.
func NewSynchronizer(remoteStore remote.Store, urls *URLCache, stream *ProgressStream, cfg SyncConfig, logger *zap.Logger) *Synchronizer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 3
	}
	return &Synchronizer{
		store:          remoteStore,
		urls:           urls,
		stream:         stream,
		logger:         logger,
		cfg:            cfg,
		retry:          errors.DefaultRetryConfig(),
		artistListings: make(map[string]*remote.Listing),
	}
}

// albumTask identifies one album to process.
type albumTask struct {
	artist    string
	albumPath string
}

// Sync performs a full catalog synchronization. Individual artist or
// album failures are logged and skipped; only a failure to list the
// root, or an entirely empty result, fails the sync.
func (s *Synchronizer) Sync(ctx context.Context) ([]Album, error) {
	start := time.Now()

	s.mu.Lock()
	s.artistListings = make(map[string]*remote.Listing)
	s.mu.Unlock()

	root, err := s.listWithRetry(ctx, "", s.cfg.RootListTimeout)
	if err != nil {
		monitoring.RecordSyncFailed(string(errors.GetErrorType(err)))
		return nil, err
	}
	artists := root.Prefixes

	s.publish(LoadingProgress{
		Message:  fmt.Sprintf("Found %d artists", len(artists)),
		Progress: 0.05,
		Elapsed:  time.Since(start),
	})

	// Discovery pass: count albums per artist so the processing pass can
	// report progress against a stable total.
	var tasks []albumTask
	for _, artistPrefix := range artists {
		listing, err := s.artistListing(ctx, artistPrefix)
		if err != nil {
			s.logger.Warn("skipping artist: listing failed",
				zap.String("artist", artistPrefix),
				zap.Error(err))
			continue
		}
		artist := path.Base(artistPrefix)
		for _, albumPrefix := range listing.Prefixes {
			tasks = append(tasks, albumTask{artist: artist, albumPath: albumPrefix})
		}
	}
	total := len(tasks)

	s.publish(LoadingProgress{
		Message:        fmt.Sprintf("Discovered %d albums across %d artists", total, len(artists)),
		Progress:       0.10,
		ItemsProcessed: 0,
		TotalItems:     total,
		Elapsed:        time.Since(start),
	})

	var (
		albums         []Album
		processed      int
		batchDurations []time.Duration
	)
	for i := 0; i < len(tasks); i += s.cfg.BatchSize {
		end := i + s.cfg.BatchSize
		if end > len(tasks) {
			end = len(tasks)
		}
		batch := tasks[i:end]
		batchStart := time.Now()

		results := make([]*Album, len(batch))
		var wg sync.WaitGroup
		for j, task := range batch {
			wg.Add(1)
			go func(j int, task albumTask) {
				defer wg.Done()
				results[j] = s.processAlbum(ctx, task)
			}(j, task)
		}
		wg.Wait()

		for _, album := range results {
			if album != nil {
				albums = append(albums, *album)
			}
		}

		// Keep the last three batch durations for the ETA estimate.
		batchDurations = append(batchDurations, time.Since(batchStart))
		if len(batchDurations) > 3 {
			batchDurations = batchDurations[1:]
		}

		processed += len(batch)
		s.publish(s.batchProgress(processed, total, start, batchDurations))
	}

	if len(albums) == 0 {
		err := errors.NewNotFoundError("no albums found in remote store")
		monitoring.RecordSyncFailed(string(errors.ErrTypeNotFound))
		return nil, err
	}

	if err := s.urls.Save(); err != nil {
		s.logger.Warn("failed to persist url cache after sync", zap.Error(err))
	}

	elapsed := time.Since(start)
	s.publish(LoadingProgress{
		Message:        fmt.Sprintf("Catalog sync complete: %d albums", len(albums)),
		Progress:       1.0,
		ItemsProcessed: processed,
		TotalItems:     total,
		Elapsed:        elapsed,
	})
	monitoring.RecordSyncComplete(elapsed, len(albums))
	s.logger.Info("catalog sync complete",
		zap.Int("albums", len(albums)),
		zap.Int("artists", len(artists)),
		zap.Duration("elapsed", elapsed))

	return albums, nil
}

// FetchAlbum re-fetches a single album identified by artist and album
// prefix, resolving fresh track URLs.
func (s *Synchronizer) FetchAlbum(ctx context.Context, artist, albumPath string) (*Album, error) {
	album := s.processAlbum(ctx, albumTask{artist: artist, albumPath: albumPath})
	if album == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("album not found or empty: %s", albumPath))
	}
	return album, nil
}

// FindAlbumPath locates the remote prefix for an album id by walking
// the artist listing. Returns the artist name and album prefix.
func (s *Synchronizer) FindAlbumPath(ctx context.Context, albumID string) (artist, albumPath string, err error) {
	root, err := s.listWithRetry(ctx, "", s.cfg.RootListTimeout)
	if err != nil {
		return "", "", err
	}

	for _, artistPrefix := range root.Prefixes {
		listing, err := s.artistListing(ctx, artistPrefix)
		if err != nil {
			continue
		}
		name := path.Base(artistPrefix)
		for _, albumPrefix := range listing.Prefixes {
			if AlbumID(name, path.Base(albumPrefix)) == albumID {
				return name, albumPrefix, nil
			}
		}
	}
	return "", "", errors.NewNotFoundError(fmt.Sprintf("album not found: %s", albumID))
}

// processAlbum lists one album and builds it: cover from the first
// image file, tracks from everything else, all URLs resolved through
// the URL cache. Returns nil when the album fails to list or ends up
// with no playable tracks.
func (s *Synchronizer) processAlbum(ctx context.Context, task albumTask) *Album {
	listing, err := s.listWithRetry(ctx, task.albumPath, s.cfg.AlbumListTimeout)
	if err != nil {
		s.logger.Warn("skipping album: listing failed",
			zap.String("album", task.albumPath),
			zap.Error(err))
		return nil
	}

	albumName := path.Base(task.albumPath)
	album := Album{
		ID:        AlbumID(task.artist, albumName),
		AlbumName: albumName,
		Artist:    task.artist,
	}

	for _, item := range listing.Items {
		if !IsImageFile(item) {
			continue
		}
		cover, err := s.urls.Resolve(ctx, item)
		if err != nil {
			s.logger.Warn("failed to resolve album cover",
				zap.String("path", item),
				zap.Error(err))
			break
		}
		album.AlbumCover = cover
		break
	}

	for _, item := range listing.Items {
		if IsImageFile(item) {
			continue
		}
		url, err := s.urls.Resolve(ctx, item)
		if err != nil {
			s.logger.Warn("skipping track: url resolution failed",
				zap.String("path", item),
				zap.Error(err))
			continue
		}
		fileName := path.Base(item)
		album.Tracks = append(album.Tracks, Song{
			ID:        SongID(task.artist, albumName, fileName),
			SongName:  SongNameFromPath(item),
			Artist:    task.artist,
			AlbumName: albumName,
			SongURL:   url,
		})
	}

	if len(album.Tracks) == 0 {
		s.logger.Debug("pruning empty album", zap.String("album", task.albumPath))
		return nil
	}
	return &album
}

// artistListing returns the album listing for an artist, memoized for
// the life of the synchronizer run.
func (s *Synchronizer) artistListing(ctx context.Context, artistPrefix string) (*remote.Listing, error) {
	s.mu.Lock()
	if listing, ok := s.artistListings[artistPrefix]; ok {
		s.mu.Unlock()
		return listing, nil
	}
	s.mu.Unlock()

	listing, err := s.listWithRetry(ctx, artistPrefix, s.cfg.ArtistListTimeout)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.artistListings[artistPrefix] = listing
	s.mu.Unlock()
	return listing, nil
}

func (s *Synchronizer) listWithRetry(ctx context.Context, prefix string, timeout time.Duration) (*remote.Listing, error) {
	var listing *remote.Listing
	err := errors.Retry(ctx, s.retry, func() error {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		l, err := s.store.ListChildren(callCtx, prefix)
		if err != nil {
			return err
		}
		listing = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

// batchProgress builds the event published after each processed batch.
// Progress maps processed/total onto the 0.1..1.0 band reserved for the
// processing pass; the estimate averages the recent batch durations.
func (s *Synchronizer) batchProgress(processed, total int, start time.Time, batchDurations []time.Duration) LoadingProgress {
	progress := 0.1
	if total > 0 {
		progress = 0.1 + (float64(processed)/float64(total))*0.9
	}
	if progress > 1.0 {
		progress = 1.0
	}

	event := LoadingProgress{
		Message:        fmt.Sprintf("Processed %d of %d albums", processed, total),
		Progress:       progress,
		ItemsProcessed: processed,
		TotalItems:     total,
		Elapsed:        time.Since(start),
	}

	remaining := total - processed
	if remaining > 0 && len(batchDurations) > 0 {
		var sum time.Duration
		for _, d := range batchDurations {
			sum += d
		}
		avg := sum / time.Duration(len(batchDurations))
		batchesLeft := (remaining + s.cfg.BatchSize - 1) / s.cfg.BatchSize
		eta := avg * time.Duration(batchesLeft)
		event.EstimatedRemaining = &eta
	}
	return event
}

func (s *Synchronizer) publish(p LoadingProgress) {
	if s.stream != nil {
		s.stream.Publish(p)
	}
}
