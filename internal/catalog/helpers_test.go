package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/robinradio/robincore/internal/errors"
	"github.com/robinradio/robincore/internal/remote"
	"github.com/robinradio/robincore/internal/store"
)

// fakeStore is an in-memory remote.Store serving a fixed hierarchy.
type fakeStore struct {
	mu       sync.Mutex
	listings map[string]*remote.Listing
	listErr  map[string]error
	urlErr   map[string]error
	delay    time.Duration

	listCalls map[string]int
	urlCalls  map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		listings:  make(map[string]*remote.Listing),
		listErr:   make(map[string]error),
		urlErr:    make(map[string]error),
		listCalls: make(map[string]int),
		urlCalls:  make(map[string]int),
	}
}

// newLibraryStore builds the hierarchy most tests share: two artists,
// two real albums, plus one album holding only artwork.
func newLibraryStore() *fakeStore {
	f := newFakeStore()
	f.listings[""] = &remote.Listing{
		Prefixes: []string{"Artist/Nina Simone", "Artist/Miles Davis"},
	}
	f.listings["Artist/Nina Simone"] = &remote.Listing{
		Prefixes: []string{"Artist/Nina Simone/Pastel Blues"},
	}
	f.listings["Artist/Miles Davis"] = &remote.Listing{
		Prefixes: []string{
			"Artist/Miles Davis/Kind of Blue",
			"Artist/Miles Davis/Artwork Only",
		},
	}
	f.listings["Artist/Nina Simone/Pastel Blues"] = &remote.Listing{
		Items: []string{
			"Artist/Nina Simone/Pastel Blues/cover.jpg",
			"Artist/Nina Simone/Pastel Blues/Sinnerman.mp3",
			"Artist/Nina Simone/Pastel Blues/Be My Husband.mp3",
		},
	}
	f.listings["Artist/Miles Davis/Kind of Blue"] = &remote.Listing{
		Items: []string{
			"Artist/Miles Davis/Kind of Blue/So What.mp3",
			"Artist/Miles Davis/Kind of Blue/front.png",
		},
	}
	f.listings["Artist/Miles Davis/Artwork Only"] = &remote.Listing{
		Items: []string{"Artist/Miles Davis/Artwork Only/cover.jpg"},
	}
	return f
}

func (f *fakeStore) ListChildren(ctx context.Context, path string) (*remote.Listing, error) {
	f.mu.Lock()
	f.listCalls[path]++
	err := f.listErr[path]
	listing := f.listings[path]
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, errors.NewTimeoutError("listing timed out: "+path, ctx.Err())
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return &remote.Listing{}, nil
	}
	return listing, nil
}

func (f *fakeStore) DownloadURL(ctx context.Context, blobPath string) (string, error) {
	f.mu.Lock()
	f.urlCalls[blobPath]++
	err := f.urlErr[blobPath]
	f.mu.Unlock()

	if err != nil {
		return "", err
	}
	return "https://signed.example/" + blobPath, nil
}

func (f *fakeStore) listCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls[path]
}

func (f *fakeStore) urlCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.urlCalls[path]
}

// noRetry keeps tests fast: one attempt, no backoff sleeps.
var noRetry = errors.RetryConfig{MaxAttempts: 1}

func newTestKVStore(t *testing.T) *store.KVStore {
	t.Helper()
	db, err := store.InitMemoryDB()
	if err != nil {
		t.Fatalf("InitMemoryDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewKVStore(db)
}

type testEnv struct {
	fake   *fakeStore
	kv     *store.KVStore
	urls   *URLCache
	stream *ProgressStream
	syncer *Synchronizer
	cache  *Cache
}

func newTestEnv(t *testing.T, fake *fakeStore) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	kv := newTestKVStore(t)

	urls := NewURLCache(fake, kv, time.Hour, time.Second, logger)
	urls.retry = noRetry

	stream := NewProgressStream()
	t.Cleanup(stream.Close)

	syncer := NewSynchronizer(fake, urls, stream, SyncConfig{
		BatchSize:         3,
		RootListTimeout:   time.Second,
		ArtistListTimeout: time.Second,
		AlbumListTimeout:  time.Second,
	}, logger)
	syncer.retry = noRetry

	return &testEnv{
		fake:   fake,
		kv:     kv,
		urls:   urls,
		stream: stream,
		syncer: syncer,
		cache:  NewCache(kv, syncer, 24*time.Hour, logger),
	}
}

func albumByID(albums []Album, id string) *Album {
	for i := range albums {
		if albums[i].ID == id {
			return &albums[i]
		}
	}
	return nil
}
