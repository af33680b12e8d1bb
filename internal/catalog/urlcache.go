package catalog

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/robinradio/robincore/internal/errors"
	"github.com/robinradio/robincore/internal/monitoring"
	"github.com/robinradio/robincore/internal/remote"
	"github.com/robinradio/robincore/internal/store"
)

const (
	urlCacheKey          = "url_cache"
	urlCacheTimestampKey = "url_cache_timestamp"
)

// URLCache maps blob paths to resolved download URLs. The whole table
// shares a single creation timestamp: when the TTL passes, every entry
// is discarded together. Signed URLs from the same period expire at
// roughly the same time, so per-entry bookkeeping buys nothing.
type URLCache struct {
	store  remote.Store
	kv     *store.KVStore
	logger *zap.Logger

	ttl     time.Duration
	timeout time.Duration
	retry   errors.RetryConfig

	mu        sync.Mutex
	entries   map[string]string
	cacheTime time.Time
}

// NewURLCache creates a URL cache over the given remote store. Entries
// expire ttl after the table was (re)created; each remote resolution is
// bounded by timeout.
func NewURLCache(remoteStore remote.Store, kv *store.KVStore, ttl, timeout time.Duration, logger *zap.Logger) *URLCache {
	return &URLCache{
		store:   remoteStore,
		kv:      kv,
		logger:  logger,
		ttl:     ttl,
		timeout: timeout,
		retry:   errors.DefaultRetryConfig(),
		entries: make(map[string]string),
	}
}

// Load hydrates the in-memory table from the persisted copy. A stale
// or unreadable persisted table is discarded silently; the cache just
// starts empty.
func (c *URLCache) Load() {
	raw, ok, err := c.kv.Get(urlCacheKey)
	if err != nil || !ok {
		if err != nil {
			c.logger.Warn("failed to read persisted url cache", zap.Error(err))
		}
		return
	}
	rawTS, ok, err := c.kv.Get(urlCacheTimestampKey)
	if err != nil || !ok {
		return
	}

	cacheTime, err := time.Parse(time.RFC3339, rawTS)
	if err != nil || time.Since(cacheTime) >= c.ttl {
		return
	}

	entries := make(map[string]string)
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		c.logger.Warn("corrupt persisted url cache discarded", zap.Error(err))
		return
	}

	c.mu.Lock()
	c.entries = entries
	c.cacheTime = cacheTime
	c.mu.Unlock()

	c.logger.Debug("url cache hydrated",
		zap.Int("entries", len(entries)),
		zap.Time("cacheTime", cacheTime))
}

// Save persists the current table so resolved URLs survive a restart.
func (c *URLCache) Save() error {
	c.mu.Lock()
	entries := make(map[string]string, len(c.entries))
	for k, v := range c.entries {
		entries[k] = v
	}
	cacheTime := c.cacheTime
	c.mu.Unlock()

	if len(entries) == 0 {
		return nil
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return errors.NewCacheError("failed to encode url cache", err)
	}
	if err := c.kv.Set(urlCacheKey, string(data)); err != nil {
		return errors.NewCacheError("failed to persist url cache", err)
	}
	if err := c.kv.Set(urlCacheTimestampKey, cacheTime.Format(time.RFC3339)); err != nil {
		return errors.NewCacheError("failed to persist url cache timestamp", err)
	}
	return nil
}

// Resolve returns the download URL for a blob path, from cache when
// fresh, otherwise from the remote store with retry. A successful
// remote resolution is added to the table.
func (c *URLCache) Resolve(ctx context.Context, blobPath string) (string, error) {
	c.mu.Lock()
	c.expireLocked()
	if url, ok := c.entries[blobPath]; ok {
		c.mu.Unlock()
		monitoring.RecordURLResolution(true)
		return url, nil
	}
	c.mu.Unlock()

	var url string
	err := errors.Retry(ctx, c.retry, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resolved, err := c.store.DownloadURL(callCtx, blobPath)
		if err != nil {
			return err
		}
		url = resolved
		return nil
	})
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	if len(c.entries) == 0 {
		c.cacheTime = time.Now()
	}
	c.entries[blobPath] = url
	c.mu.Unlock()

	monitoring.RecordURLResolution(false)
	return url, nil
}

// Clear drops the in-memory table and the persisted copy.
func (c *URLCache) Clear() error {
	c.mu.Lock()
	c.entries = make(map[string]string)
	c.cacheTime = time.Time{}
	c.mu.Unlock()

	if err := c.kv.Delete(urlCacheKey); err != nil {
		return errors.NewCacheError("failed to clear persisted url cache", err)
	}
	if err := c.kv.Delete(urlCacheTimestampKey); err != nil {
		return errors.NewCacheError("failed to clear persisted url cache timestamp", err)
	}
	return nil
}

// Size returns the number of cached URLs.
func (c *URLCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked()
	return len(c.entries)
}

// expireLocked invalidates the whole table once its shared timestamp
// passes the TTL. Caller must hold mu.
func (c *URLCache) expireLocked() {
	if len(c.entries) > 0 && time.Since(c.cacheTime) >= c.ttl {
		c.logger.Debug("url cache expired", zap.Int("entries", len(c.entries)))
		c.entries = make(map[string]string)
		c.cacheTime = time.Time{}
	}
}
