package catalog

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/robinradio/robincore/internal/errors"
	"github.com/robinradio/robincore/internal/monitoring"
	"github.com/robinradio/robincore/internal/store"
)

const (
	catalogSnapshotKey          = "catalog_snapshot"
	catalogSnapshotTimestampKey = "catalog_snapshot_timestamp"
)

// Cache serves the catalog from two tiers: an in-memory snapshot and a
// persisted copy, each with its own independently checked TTL. When
// both are stale it falls through to a full remote sync.
type Cache struct {
	kv     *store.KVStore
	syncer *Synchronizer
	logger *zap.Logger
	ttl    time.Duration

	mu       sync.Mutex
	snapshot *CatalogSnapshot
}

// NewCache creates a catalog cache backed by kv and refreshed via
// syncer when both tiers are stale.
func NewCache(kv *store.KVStore, syncer *Synchronizer, ttl time.Duration, logger *zap.Logger) *Cache {
	return &Cache{
		kv:     kv,
		syncer: syncer,
		logger: logger,
		ttl:    ttl,
	}
}

// GetCatalog returns the album list, preferring memory, then the
// persisted snapshot, then a full remote sync. Cache write failures
// after a successful sync are logged and swallowed; the fresh data is
// still returned.
func (c *Cache) GetCatalog(ctx context.Context) ([]Album, error) {
	c.mu.Lock()
	if c.snapshot != nil && time.Since(c.snapshot.Timestamp) < c.ttl {
		albums := copyAlbums(c.snapshot.Albums)
		c.mu.Unlock()
		monitoring.RecordCacheLookup("memory", true)
		return albums, nil
	}
	c.mu.Unlock()
	monitoring.RecordCacheLookup("memory", false)

	if snapshot := c.loadPersisted(); snapshot != nil {
		monitoring.RecordCacheLookup("persisted", true)
		c.mu.Lock()
		c.snapshot = snapshot
		albums := copyAlbums(snapshot.Albums)
		c.mu.Unlock()
		return albums, nil
	}
	monitoring.RecordCacheLookup("persisted", false)

	albums, err := c.syncer.Sync(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &CatalogSnapshot{Albums: albums, Timestamp: time.Now()}
	c.mu.Lock()
	c.snapshot = snapshot
	c.mu.Unlock()

	if err := c.persist(snapshot); err != nil {
		c.logger.Warn("failed to persist catalog snapshot", zap.Error(err))
	}
	return copyAlbums(albums), nil
}

// GetCatalogCacheOnly returns whatever catalog data is available
// locally, ignoring TTLs, without touching the network. It never
// fails: when nothing is cached it returns an empty list.
func (c *Cache) GetCatalogCacheOnly() []Album {
	c.mu.Lock()
	if c.snapshot != nil {
		albums := copyAlbums(c.snapshot.Albums)
		c.mu.Unlock()
		return albums
	}
	c.mu.Unlock()

	raw, ok, err := c.kv.Get(catalogSnapshotKey)
	if err != nil || !ok {
		return []Album{}
	}
	var albums []Album
	if err := json.Unmarshal([]byte(raw), &albums); err != nil {
		c.logger.Warn("corrupt persisted catalog ignored", zap.Error(err))
		return []Album{}
	}
	return albums
}

// Refresh drops both tiers and performs a full remote sync.
func (c *Cache) Refresh(ctx context.Context) ([]Album, error) {
	if err := c.Clear(); err != nil {
		c.logger.Warn("failed to clear catalog cache before refresh", zap.Error(err))
	}
	return c.GetCatalog(ctx)
}

// Clear drops the in-memory snapshot and the persisted copy.
func (c *Cache) Clear() error {
	c.mu.Lock()
	c.snapshot = nil
	c.mu.Unlock()

	if err := c.kv.Delete(catalogSnapshotKey); err != nil {
		return errors.NewCacheError("failed to clear persisted catalog", err)
	}
	if err := c.kv.Delete(catalogSnapshotTimestampKey); err != nil {
		return errors.NewCacheError("failed to clear persisted catalog timestamp", err)
	}
	return nil
}

// SpliceAlbum replaces (or appends) one album in the cached catalog
// and persists the result. Used after a single-album re-fetch so the
// fresh track URLs survive.
func (c *Cache) SpliceAlbum(album Album) {
	c.mu.Lock()
	if c.snapshot == nil {
		c.snapshot = &CatalogSnapshot{Timestamp: time.Now()}
	}
	replaced := false
	for i := range c.snapshot.Albums {
		if c.snapshot.Albums[i].ID == album.ID {
			c.snapshot.Albums[i] = album
			replaced = true
			break
		}
	}
	if !replaced {
		c.snapshot.Albums = append(c.snapshot.Albums, album)
	}
	snapshot := &CatalogSnapshot{
		Albums:    copyAlbums(c.snapshot.Albums),
		Timestamp: c.snapshot.Timestamp,
	}
	c.mu.Unlock()

	if err := c.persist(snapshot); err != nil {
		c.logger.Warn("failed to persist spliced catalog", zap.Error(err))
	}
}

// loadPersisted returns the persisted snapshot when it exists, parses,
// and is fresh; otherwise nil.
func (c *Cache) loadPersisted() *CatalogSnapshot {
	rawTS, ok, err := c.kv.Get(catalogSnapshotTimestampKey)
	if err != nil || !ok {
		return nil
	}
	timestamp, err := time.Parse(time.RFC3339, rawTS)
	if err != nil || time.Since(timestamp) >= c.ttl {
		return nil
	}

	raw, ok, err := c.kv.Get(catalogSnapshotKey)
	if err != nil || !ok {
		return nil
	}
	var albums []Album
	if err := json.Unmarshal([]byte(raw), &albums); err != nil {
		c.logger.Warn("corrupt persisted catalog discarded", zap.Error(err))
		return nil
	}
	return &CatalogSnapshot{Albums: albums, Timestamp: timestamp}
}

func (c *Cache) persist(snapshot *CatalogSnapshot) error {
	data, err := json.Marshal(snapshot.Albums)
	if err != nil {
		return errors.NewCacheError("failed to encode catalog snapshot", err)
	}
	if err := c.kv.Set(catalogSnapshotKey, string(data)); err != nil {
		return errors.NewCacheError("failed to persist catalog snapshot", err)
	}
	if err := c.kv.Set(catalogSnapshotTimestampKey, snapshot.Timestamp.Format(time.RFC3339)); err != nil {
		return errors.NewCacheError("failed to persist catalog timestamp", err)
	}
	return nil
}

func copyAlbums(albums []Album) []Album {
	out := make([]Album, len(albums))
	copy(out, albums)
	return out
}
