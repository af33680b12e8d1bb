// robincore is the Robin Radio core daemon: it syncs the music catalog
// from the remote bucket, serves it from a local cache, and runs the
// offline download queue.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/robinradio/robincore/internal/catalog"
	"github.com/robinradio/robincore/internal/config"
	"github.com/robinradio/robincore/internal/download"
	"github.com/robinradio/robincore/internal/monitoring"
	"github.com/robinradio/robincore/internal/remote"
	"github.com/robinradio/robincore/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to settings.json (default: data dir)")
	refresh := flag.Bool("refresh", false, "force a full catalog re-sync on startup")
	flag.Parse()

	if err := run(*configPath, *refresh); err != nil {
		fmt.Fprintf(os.Stderr, "robincore: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, refresh bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := monitoring.NewLogger(&monitoring.LogConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePath:   cfg.Logging.FilePath,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("robincore starting",
		zap.String("bucket", cfg.Storage.Bucket),
		zap.String("dataDir", config.DataDir()))

	db, err := store.InitDB(filepath.Join(config.DataDir(), "robincore.db"))
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	remoteStore, err := remote.NewS3Store(ctx, remote.Options{
		Bucket:          cfg.Storage.Bucket,
		Region:          cfg.Storage.Region,
		Endpoint:        cfg.Storage.Endpoint,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		RootPrefix:      cfg.Storage.RootPrefix,
		PresignExpiry:   time.Duration(cfg.Storage.PresignExpiryMin) * time.Minute,
		RequestsPerSec:  cfg.Storage.RequestsPerSec,
	}, logger)
	if err != nil {
		return err
	}

	kv := store.NewKVStore(db)

	urls := catalog.NewURLCache(remoteStore, kv,
		time.Duration(cfg.Catalog.URLCacheTTLMinutes)*time.Minute,
		time.Duration(cfg.Catalog.URLResolveTimeoutSec)*time.Second,
		logger.Named("urlcache"))
	urls.Load()

	progress := catalog.NewProgressStream()
	defer progress.Close()

	syncer := catalog.NewSynchronizer(remoteStore, urls, progress, catalog.SyncConfig{
		BatchSize:         cfg.Catalog.BatchSize,
		RootListTimeout:   time.Duration(cfg.Catalog.RootListTimeoutSec) * time.Second,
		ArtistListTimeout: time.Duration(cfg.Catalog.ArtistListTimeoutSec) * time.Second,
		AlbumListTimeout:  time.Duration(cfg.Catalog.AlbumListTimeoutSec) * time.Second,
	}, logger.Named("sync"))

	cache := catalog.NewCache(kv, syncer,
		time.Duration(cfg.Catalog.SnapshotTTLHours)*time.Hour,
		logger.Named("cache"))

	service := catalog.NewService(cache, syncer, progress,
		time.Duration(cfg.Catalog.LoadBudgetSec)*time.Second,
		logger.Named("catalog"))

	notifier := download.NewNotifier()
	defer notifier.Close()

	manager := download.NewManager(
		store.NewDownloadStore(db),
		store.NewOfflineStore(db),
		notifier,
		download.Config{
			Concurrency: cfg.Download.ConcurrentDownloads,
			Dir:         cfg.Download.OfflineDir,
			TagFiles:    cfg.Download.TagFiles,
		},
		logger.Named("download"))
	if err := manager.Start(ctx); err != nil {
		return err
	}
	defer manager.Stop()

	if removed, err := manager.VerifyOffline(); err != nil {
		logger.Warn("offline verification failed", zap.Error(err))
	} else if removed > 0 {
		logger.Info("dropped stale offline records", zap.Int("count", removed))
	}

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	// Log sync progress so headless runs are observable.
	events, unsubscribe := progress.Subscribe()
	defer unsubscribe()
	go func() {
		for event := range events {
			logger.Info("catalog progress",
				zap.String("message", event.Message),
				zap.Float64("progress", event.Progress))
		}
	}()

	warm := func() ([]catalog.Album, error) {
		if refresh {
			return service.RefreshCache(ctx)
		}
		return service.GetCatalog(ctx)
	}
	if albums, err := warm(); err != nil {
		logger.Error("initial catalog load failed", zap.Error(err))
	} else {
		logger.Info("catalog ready", zap.Int("albums", len(albums)))
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info("metrics listener started", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics listener stopped", zap.Error(err))
	}
}
