package config

import (
	"os"
	"path/filepath"
	"testing"
)

func testConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Bucket:           "robin-media",
			Region:           "us-east-1",
			RootPrefix:       "Artist",
			PresignExpiryMin: 60,
			RequestsPerSec:   20,
		},
		Catalog: CatalogConfig{
			SnapshotTTLHours:     24,
			URLCacheTTLMinutes:   60,
			BatchSize:            3,
			RootListTimeoutSec:   15,
			ArtistListTimeoutSec: 10,
			AlbumListTimeoutSec:  8,
			URLResolveTimeoutSec: 5,
			LoadBudgetSec:        30,
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 3,
			OfflineDir:          "/tmp/offline",
			TagFiles:            true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "both",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 30,
		},
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := testConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty bucket", func(c *Config) { c.Storage.Bucket = "" }},
		{"zero presign expiry", func(c *Config) { c.Storage.PresignExpiryMin = 0 }},
		{"zero snapshot ttl", func(c *Config) { c.Catalog.SnapshotTTLHours = 0 }},
		{"zero url ttl", func(c *Config) { c.Catalog.URLCacheTTLMinutes = 0 }},
		{"zero batch size", func(c *Config) { c.Catalog.BatchSize = 0 }},
		{"zero concurrency", func(c *Config) { c.Download.ConcurrentDownloads = 0 }},
		{"excess concurrency", func(c *Config) { c.Download.ConcurrentDownloads = 99 }},
		{"empty offline dir", func(c *Config) { c.Download.OfflineDir = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "shout" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad log output", func(c *Config) { c.Logging.Output = "syslog" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestLoad_CreatesDefaultFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ROBIN_DATA_DIR", dir)
	path := filepath.Join(dir, "settings.json")

	// Defaults alone fail validation (no bucket), so Load must still
	// write the default file before erroring out.
	_, err := Load(path)
	if err == nil {
		t.Fatal("Load with no bucket configured should fail validation")
	}

	if _, statErr := os.Stat(path); statErr != nil {
		t.Errorf("default config file not written: %v", statErr)
	}
}

func TestLoad_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ROBIN_DATA_DIR", dir)
	path := filepath.Join(dir, "settings.json")

	content := `{"storage": {"bucket": "robin-media"}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Storage.Bucket != "robin-media" {
		t.Errorf("Bucket = %v, want robin-media", cfg.Storage.Bucket)
	}
	if cfg.Catalog.BatchSize != 3 {
		t.Errorf("BatchSize default = %v, want 3", cfg.Catalog.BatchSize)
	}
	if cfg.Catalog.SnapshotTTLHours != 24 {
		t.Errorf("SnapshotTTLHours default = %v, want 24", cfg.Catalog.SnapshotTTLHours)
	}
	if cfg.Download.ConcurrentDownloads != 3 {
		t.Errorf("ConcurrentDownloads default = %v, want 3", cfg.Download.ConcurrentDownloads)
	}
}

func TestDataDir_EnvOverride(t *testing.T) {
	t.Setenv("ROBIN_DATA_DIR", "/tmp/robin-test")
	if got := DataDir(); got != "/tmp/robin-test" {
		t.Errorf("DataDir() = %v, want /tmp/robin-test", got)
	}
}
