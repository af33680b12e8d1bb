package catalog

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/robinradio/robincore/internal/errors"
)

// Service is the catalog facade: cached album access, per-album track
// access with automatic re-fetch, search, and cache management.
type Service struct {
	cache      *Cache
	syncer     *Synchronizer
	stream     *ProgressStream
	logger     *zap.Logger
	loadBudget time.Duration
}

// NewService creates the catalog service. loadBudget bounds a full
// GetCatalog call end to end; past it the service degrades to
// whatever is cached locally.
func NewService(cache *Cache, syncer *Synchronizer, stream *ProgressStream, loadBudget time.Duration, logger *zap.Logger) *Service {
	return &Service{
		cache:      cache,
		syncer:     syncer,
		stream:     stream,
		logger:     logger,
		loadBudget: loadBudget,
	}
}

// GetCatalog returns the album list. A run that blows the overall
// budget falls back to cache-only data instead of failing, so a slow
// backend degrades to stale results rather than an error.
func (s *Service) GetCatalog(ctx context.Context) ([]Album, error) {
	budgetCtx, cancel := context.WithTimeout(ctx, s.loadBudget)
	defer cancel()

	albums, err := s.cache.GetCatalog(budgetCtx)
	if err == nil {
		return albums, nil
	}

	if errors.IsTimeout(err) || stderrors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("catalog load exceeded budget, serving cached data", zap.Error(err))
		return s.cache.GetCatalogCacheOnly(), nil
	}
	return nil, err
}

// GetCatalogCacheOnly returns locally available catalog data without
// any remote calls. Never fails.
func (s *Service) GetCatalogCacheOnly() []Album {
	return s.cache.GetCatalogCacheOnly()
}

// GetTracks returns the track list of one album. When the album is
// missing from the cached catalog, or its cached entry has no tracks,
// the album is re-fetched from the remote store with fresh URLs and
// spliced back into the cache.
func (s *Service) GetTracks(ctx context.Context, albumID string) ([]Song, error) {
	if albumID == "" {
		return nil, errors.NewValidationError("album id is required")
	}

	albums, err := s.GetCatalog(ctx)
	if err != nil {
		return nil, err
	}
	for _, album := range albums {
		if album.ID == albumID && len(album.Tracks) > 0 {
			return album.Tracks, nil
		}
	}

	s.logger.Info("album not in cached catalog, re-fetching", zap.String("albumId", albumID))
	artist, albumPath, err := s.syncer.FindAlbumPath(ctx, albumID)
	if err != nil {
		return nil, err
	}
	album, err := s.syncer.FetchAlbum(ctx, artist, albumPath)
	if err != nil {
		return nil, err
	}
	s.cache.SpliceAlbum(*album)
	return album.Tracks, nil
}

// SearchAlbums returns albums whose name or artist contains the query,
// case-insensitive. An empty query returns the full catalog.
func (s *Service) SearchAlbums(ctx context.Context, query string) ([]Album, error) {
	albums, err := s.GetCatalog(ctx)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return albums, nil
	}

	q := strings.ToLower(query)
	var matches []Album
	for _, album := range albums {
		if strings.Contains(strings.ToLower(album.AlbumName), q) ||
			strings.Contains(strings.ToLower(album.Artist), q) {
			matches = append(matches, album)
		}
	}
	return matches, nil
}

// SearchTracks returns songs whose name or artist contains the query,
// case-insensitive, across all albums.
func (s *Service) SearchTracks(ctx context.Context, query string) ([]Song, error) {
	albums, err := s.GetCatalog(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	var matches []Song
	for _, album := range albums {
		for _, song := range album.Tracks {
			if strings.Contains(strings.ToLower(song.SongName), q) ||
				strings.Contains(strings.ToLower(song.Artist), q) ||
				strings.Contains(strings.ToLower(song.AlbumName), q) {
				matches = append(matches, song)
			}
		}
	}
	return matches, nil
}

// RefreshCache forces a full re-sync, discarding both cache tiers
// first.
func (s *Service) RefreshCache(ctx context.Context) ([]Album, error) {
	return s.cache.Refresh(ctx)
}

// ClearCache drops all cached catalog data.
func (s *Service) ClearCache() error {
	return s.cache.Clear()
}

// Progress exposes the sync progress stream for subscription.
func (s *Service) Progress() *ProgressStream {
	return s.stream
}
