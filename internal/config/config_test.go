package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	// Point XDG at an empty temp dir so no real config file is picked up.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("STOCKPULSE_BASE_URL", "")
	t.Setenv("STOCKPULSE_LOG_LEVEL", "")

	c, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.BaseURL != "https://stockpulse.app" {
		t.Errorf("BaseURL = %q, want default", c.BaseURL)
	}
	if c.Cache.MaxAgeSeconds != 300 {
		t.Errorf("Cache.MaxAgeSeconds = %d, want 300", c.Cache.MaxAgeSeconds)
	}
	if c.Reconcile.SessionDiagSeconds != 60 || c.Reconcile.NetworkDiagSeconds != 120 {
		t.Errorf("diag windows = %d/%d, want 60/120",
			c.Reconcile.SessionDiagSeconds, c.Reconcile.NetworkDiagSeconds)
	}
	if c.Retry.MaxAttempts != 3 {
		t.Errorf("Retry.MaxAttempts = %d, want 3", c.Retry.MaxAttempts)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("STOCKPULSE_BASE_URL", "")

	appDir := filepath.Join(dir, "stockpulse")
	if err := os.MkdirAll(appDir, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	yamlContent := []byte(`
base_url: "https://staging.stockpulse.app"
log_level: "debug"
cache:
  max_age_seconds: 120
reconcile:
  preload_wait_ms: 500
  session_diag_seconds: 30
retry:
  max_attempts: 5
  base_delay_ms: 250
`)
	if err := os.WriteFile(filepath.Join(appDir, "config.yaml"), yamlContent, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.BaseURL != "https://staging.stockpulse.app" {
		t.Errorf("BaseURL = %q, want staging URL", c.BaseURL)
	}
	if c.Cache.MaxAgeSeconds != 120 {
		t.Errorf("Cache.MaxAgeSeconds = %d, want 120", c.Cache.MaxAgeSeconds)
	}
	if c.Retry.MaxAttempts != 5 {
		t.Errorf("Retry.MaxAttempts = %d, want 5", c.Retry.MaxAttempts)
	}
}

func TestEnvOverridesWin(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("STOCKPULSE_BASE_URL", "http://127.0.0.1:9999")
	t.Setenv("STOCKPULSE_CACHE_MAX_AGE_SECONDS", "45")

	c, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.BaseURL != "http://127.0.0.1:9999" {
		t.Errorf("BaseURL = %q, want env override", c.BaseURL)
	}
	if c.Cache.MaxAgeSeconds != 45 {
		t.Errorf("Cache.MaxAgeSeconds = %d, want 45", c.Cache.MaxAgeSeconds)
	}
}
