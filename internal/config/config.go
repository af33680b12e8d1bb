package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Storage  StorageConfig  `json:"storage" mapstructure:"storage"`
	Catalog  CatalogConfig  `json:"catalog" mapstructure:"catalog"`
	Download DownloadConfig `json:"download" mapstructure:"download"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
	Metrics  MetricsConfig  `json:"metrics" mapstructure:"metrics"`
}

// StorageConfig contains remote catalog bucket settings
type StorageConfig struct {
	Bucket           string `json:"bucket" mapstructure:"bucket"`
	Region           string `json:"region" mapstructure:"region"`
	Endpoint         string `json:"endpoint" mapstructure:"endpoint"` // optional, for S3-compatible stores
	AccessKeyID      string `json:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey  string `json:"secret_access_key" mapstructure:"secret_access_key"`
	RootPrefix       string `json:"root_prefix" mapstructure:"root_prefix"` // e.g. "Artist"
	PresignExpiryMin int    `json:"presign_expiry_min" mapstructure:"presign_expiry_min"`
	RequestsPerSec   int    `json:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// CatalogConfig contains sync and cache settings
type CatalogConfig struct {
	SnapshotTTLHours     int `json:"snapshot_ttl_hours" mapstructure:"snapshot_ttl_hours"`
	URLCacheTTLMinutes   int `json:"url_cache_ttl_minutes" mapstructure:"url_cache_ttl_minutes"`
	BatchSize            int `json:"batch_size" mapstructure:"batch_size"`
	RootListTimeoutSec   int `json:"root_list_timeout_sec" mapstructure:"root_list_timeout_sec"`
	ArtistListTimeoutSec int `json:"artist_list_timeout_sec" mapstructure:"artist_list_timeout_sec"`
	AlbumListTimeoutSec  int `json:"album_list_timeout_sec" mapstructure:"album_list_timeout_sec"`
	URLResolveTimeoutSec int `json:"url_resolve_timeout_sec" mapstructure:"url_resolve_timeout_sec"`
	LoadBudgetSec        int `json:"load_budget_sec" mapstructure:"load_budget_sec"`
}

// DownloadConfig contains download queue settings
type DownloadConfig struct {
	ConcurrentDownloads int    `json:"concurrent_downloads" mapstructure:"concurrent_downloads"`
	OfflineDir          string `json:"offline_dir" mapstructure:"offline_dir"`
	TagFiles            bool   `json:"tag_files" mapstructure:"tag_files"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	Format     string `json:"format" mapstructure:"format"`
	Output     string `json:"output" mapstructure:"output"`
	FilePath   string `json:"file_path" mapstructure:"file_path"`
	MaxSizeMB  int    `json:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
}

// MetricsConfig contains the prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// Load loads configuration from file or creates default
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath == "" {
		configPath = DefaultConfigPath()
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := v.WriteConfigAs(configPath); err != nil {
				return nil, fmt.Errorf("failed to write default config: %w", err)
			}
		} else if os.IsNotExist(err) {
			if err := v.WriteConfigAs(configPath); err != nil {
				return nil, fmt.Errorf("failed to write default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("ROBIN")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage bucket cannot be empty")
	}

	if c.Storage.PresignExpiryMin < 1 {
		return fmt.Errorf("presign expiry must be at least 1 minute")
	}

	if c.Catalog.SnapshotTTLHours < 1 {
		return fmt.Errorf("catalog snapshot TTL must be at least 1 hour")
	}

	if c.Catalog.URLCacheTTLMinutes < 1 {
		return fmt.Errorf("URL cache TTL must be at least 1 minute")
	}

	if c.Catalog.BatchSize < 1 {
		return fmt.Errorf("catalog batch size must be at least 1")
	}

	if c.Download.ConcurrentDownloads < 1 {
		return fmt.Errorf("concurrent downloads must be at least 1")
	}

	if c.Download.ConcurrentDownloads > 16 {
		return fmt.Errorf("concurrent downloads cannot exceed 16")
	}

	if c.Download.OfflineDir == "" {
		return fmt.Errorf("offline directory cannot be empty")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logging.Format)
	}

	validOutputs := map[string]bool{"file": true, "console": true, "both": true}
	if !validOutputs[c.Logging.Output] {
		return fmt.Errorf("invalid log output: %s (must be file, console, or both)", c.Logging.Output)
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Storage defaults
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.root_prefix", "Artist")
	v.SetDefault("storage.presign_expiry_min", 60)
	v.SetDefault("storage.requests_per_sec", 20)

	// Catalog defaults: TTLs and per-stage timeouts
	v.SetDefault("catalog.snapshot_ttl_hours", 24)
	v.SetDefault("catalog.url_cache_ttl_minutes", 60)
	v.SetDefault("catalog.batch_size", 3)
	v.SetDefault("catalog.root_list_timeout_sec", 15)
	v.SetDefault("catalog.artist_list_timeout_sec", 10)
	v.SetDefault("catalog.album_list_timeout_sec", 8)
	v.SetDefault("catalog.url_resolve_timeout_sec", 5)
	v.SetDefault("catalog.load_budget_sec", 30)

	// Download defaults
	v.SetDefault("download.concurrent_downloads", 3)
	v.SetDefault("download.offline_dir", filepath.Join(DataDir(), "offline"))
	v.SetDefault("download.tag_files", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "both")
	v.SetDefault("logging.file_path", filepath.Join(DataDir(), "logs", "robincore.log"))
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", "127.0.0.1:9465")
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// DataDir returns the application data directory
func DataDir() string {
	if dir := os.Getenv("ROBIN_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".robinradio")
}
