package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Env != "development" {
		t.Errorf("Env = %s", cfg.Env)
	}
	if cfg.HTTPAddr() != ":5000" {
		t.Errorf("HTTPAddr = %s", cfg.HTTPAddr())
	}
	if cfg.MaxFileSize != 500*1024*1024 {
		t.Errorf("MaxFileSize = %d", cfg.MaxFileSize)
	}
	if cfg.MaxBatchFiles != 10 {
		t.Errorf("MaxBatchFiles = %d", cfg.MaxBatchFiles)
	}
	if cfg.ConvertTimeout != 10*time.Minute {
		t.Errorf("ConvertTimeout = %s", cfg.ConvertTimeout)
	}
	if cfg.RateLimitRequests != 100 || cfg.RateLimitWindow != 15*time.Minute {
		t.Errorf("rate limit = %d/%s", cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	if !cfg.Development() {
		t.Error("default env is not development")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("MAX_FILE_SIZE", "1048576")
	t.Setenv("CONVERT_TIMEOUT", "30s")

	cfg := Load()

	if cfg.Development() {
		t.Error("production env reported as development")
	}
	if cfg.HTTPAddr() != ":8080" {
		t.Errorf("HTTPAddr = %s", cfg.HTTPAddr())
	}
	if cfg.MaxFileSize != 1048576 {
		t.Errorf("MaxFileSize = %d", cfg.MaxFileSize)
	}
	if cfg.ConvertTimeout != 30*time.Second {
		t.Errorf("ConvertTimeout = %s", cfg.ConvertTimeout)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("HTTP_PORT", "not-a-port")
	t.Setenv("MAX_FILE_SIZE", "lots")
	t.Setenv("CONVERT_TIMEOUT", "soon")

	cfg := Load()

	if cfg.HTTPPort != 5000 {
		t.Errorf("HTTPPort = %d", cfg.HTTPPort)
	}
	if cfg.MaxFileSize != 500*1024*1024 {
		t.Errorf("MaxFileSize = %d", cfg.MaxFileSize)
	}
	if cfg.ConvertTimeout != 10*time.Minute {
		t.Errorf("ConvertTimeout = %s", cfg.ConvertTimeout)
	}
}

func TestEnsureDirs(t *testing.T) {
	base := t.TempDir()
	cfg := &Config{
		UploadDir: base + "/uploads",
		TempDir:   base + "/temp",
		OutputDir: base + "/output",
	}
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	// Idempotent.
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs second call: %v", err)
	}
}
