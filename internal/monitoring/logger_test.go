package monitoring

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig("/tmp/robin")

	if cfg.Level != "info" {
		t.Errorf("Level = %v, want info", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %v, want json", cfg.Format)
	}
	if cfg.FilePath != filepath.Join("/tmp/robin", "logs", "robincore.log") {
		t.Errorf("FilePath = %v, unexpected", cfg.FilePath)
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	cfg := DefaultLogConfig(t.TempDir())
	cfg.Level = "shout"

	if _, err := NewLogger(cfg); err == nil {
		t.Error("NewLogger with invalid level should fail")
	}
}

func TestNewLogger_FileOutput(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultLogConfig(dir)
	cfg.Output = "file"

	logger, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Info("sync started")
	_ = logger.Sync()

	if _, err := os.Stat(filepath.Dir(cfg.FilePath)); err != nil {
		t.Errorf("log directory not created: %v", err)
	}
}

func TestNewLogger_ConsoleFormat(t *testing.T) {
	cfg := DefaultLogConfig(t.TempDir())
	cfg.Format = "console"
	cfg.Output = "console"

	logger, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Debug("not emitted at info level")
}
