package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CatalogSyncsTotal tracks catalog synchronization runs by outcome
	CatalogSyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "robincore_catalog_syncs_total",
			Help: "Total number of catalog synchronization runs",
		},
		[]string{"outcome"},
	)

	// CatalogSyncDuration tracks full catalog sync duration in seconds
	CatalogSyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "robincore_catalog_sync_duration_seconds",
			Help:    "Catalog synchronization duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	// CatalogAlbums tracks the album count of the last successful sync
	CatalogAlbums = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "robincore_catalog_albums",
			Help: "Number of albums in the current catalog",
		},
	)

	// CacheLookupsTotal tracks catalog cache lookups by tier and result
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "robincore_cache_lookups_total",
			Help: "Catalog cache lookups by tier and result",
		},
		[]string{"tier", "result"},
	)

	// URLResolutionsTotal tracks blob URL resolutions by source
	URLResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "robincore_url_resolutions_total",
			Help: "Blob URL resolutions by source (cache or remote)",
		},
		[]string{"source"},
	)

	// RemoteCallsTotal tracks remote object store calls by operation and status
	RemoteCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "robincore_remote_calls_total",
			Help: "Remote object store calls",
		},
		[]string{"operation", "status"},
	)

	// DownloadsTotal tracks download jobs by terminal status
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "robincore_downloads_total",
			Help: "Total number of download jobs by terminal status",
		},
		[]string{"status"},
	)

	// ActiveDownloads tracks the current active download set size
	ActiveDownloads = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "robincore_active_downloads",
			Help: "Number of downloads currently transferring",
		},
	)

	// QueuedDownloads tracks the current pending queue length
	QueuedDownloads = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "robincore_queued_downloads",
			Help: "Number of downloads waiting in the pending queue",
		},
	)

	// DownloadBytesTotal tracks total bytes written to offline storage
	DownloadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "robincore_download_bytes_total",
			Help: "Total bytes downloaded to offline storage",
		},
	)

	// ErrorsTotal tracks typed errors by category
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "robincore_errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type"},
	)
)

// RecordSyncComplete records a finished catalog sync
func RecordSyncComplete(duration time.Duration, albums int) {
	CatalogSyncsTotal.WithLabelValues("success").Inc()
	CatalogSyncDuration.Observe(duration.Seconds())
	CatalogAlbums.Set(float64(albums))
}

// RecordSyncFailed records a failed catalog sync
func RecordSyncFailed(errorType string) {
	CatalogSyncsTotal.WithLabelValues("failure").Inc()
	ErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordCacheLookup records a catalog cache lookup result
func RecordCacheLookup(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(tier, result).Inc()
}

// RecordURLResolution records where a blob URL came from
func RecordURLResolution(fromCache bool) {
	source := "remote"
	if fromCache {
		source = "cache"
	}
	URLResolutionsTotal.WithLabelValues(source).Inc()
}

// RecordRemoteCall records a remote store call outcome
func RecordRemoteCall(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	RemoteCallsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDownloadFinished records a download reaching a terminal status
func RecordDownloadFinished(status string, bytes int64) {
	DownloadsTotal.WithLabelValues(status).Inc()
	if bytes > 0 {
		DownloadBytesTotal.Add(float64(bytes))
	}
}

// UpdateQueueGauges updates the active and pending queue gauges
func UpdateQueueGauges(active, queued int) {
	ActiveDownloads.Set(float64(active))
	QueuedDownloads.Set(float64(queued))
}
