// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; secrets (session cookies, CSRF
// tokens) go to the OS keychain.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"stockpulse/cli/internal/xdg"
)

// Config holds non-sensitive CLI settings.
type Config struct {
	BaseURL   string          `yaml:"base_url"`
	LogLevel  string          `yaml:"log_level"`
	Google    GoogleConfig    `yaml:"google"`
	Cache     CacheConfig     `yaml:"cache"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Retry     RetryConfig     `yaml:"retry"`
	// HTTPTimeoutSeconds bounds every backend request.
	HTTPTimeoutSeconds int `yaml:"http_timeout_seconds"`
}

// GoogleConfig holds the identity-provider client settings.
// The client secret is optional; the loopback sign-in flow works with a
// public client when the backend performs the credential verification.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// CacheConfig controls the persisted auth-state cache.
type CacheConfig struct {
	// MaxAgeSeconds is the expiry for cached auth snapshots. Entries older
	// than this are discarded on load.
	MaxAgeSeconds int `yaml:"max_age_seconds"`
}

// ReconcileConfig holds timing parameters for the auth reconciler.
// The diagnostic windows are deliberately configurable: the upstream
// constants (60s / 120s) are heuristic and carry no stated rationale.
type ReconcileConfig struct {
	PreloadWaitMS      int `yaml:"preload_wait_ms"`
	RecheckAgeSeconds  int `yaml:"recheck_age_seconds"`
	ColdDelayMinMS     int `yaml:"cold_delay_min_ms"`
	ColdDelayMaxMS     int `yaml:"cold_delay_max_ms"`
	WarmDelayMinMS     int `yaml:"warm_delay_min_ms"`
	WarmDelayMaxMS     int `yaml:"warm_delay_max_ms"`
	SessionDiagSeconds int `yaml:"session_diag_seconds"`
	NetworkDiagSeconds int `yaml:"network_diag_seconds"`
}

// RetryConfig is the bounded retry policy applied to transient network
// failures on idempotent requests.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	BaseDelayMS int `yaml:"base_delay_ms"`
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return Config{
		BaseURL:  "https://stockpulse.app",
		LogLevel: "info",
		Cache:    CacheConfig{MaxAgeSeconds: 300},
		Reconcile: ReconcileConfig{
			PreloadWaitMS:      1000,
			RecheckAgeSeconds:  60,
			ColdDelayMinMS:     500,
			ColdDelayMaxMS:     1500,
			WarmDelayMinMS:     100,
			WarmDelayMaxMS:     400,
			SessionDiagSeconds: 60,
			NetworkDiagSeconds: 120,
		},
		Retry:              RetryConfig{MaxAttempts: 3, BaseDelayMS: 500},
		HTTPTimeoutSeconds: 10,
	}
}

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads configuration; a missing file returns defaults. Environment
// overrides are applied last so they win over file values.
func Load() (Config, error) {
	c := Default()
	p, err := path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnvOverrides(&c)
			return c, nil
		}
		return c, err
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, err
	}
	applyEnvOverrides(&c)
	return c, nil
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}

// applyEnvOverrides lets environment variables override file settings.
func applyEnvOverrides(c *Config) {
	if v := os.Getenv("STOCKPULSE_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("STOCKPULSE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("STOCKPULSE_GOOGLE_CLIENT_ID"); v != "" {
		c.Google.ClientID = v
	}
	if v := os.Getenv("STOCKPULSE_GOOGLE_CLIENT_SECRET"); v != "" {
		c.Google.ClientSecret = v
	}
	if v := os.Getenv("STOCKPULSE_CACHE_MAX_AGE_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Cache.MaxAgeSeconds = n
		}
	}
}

// CacheMaxAge returns the cache expiry as a duration.
func (c Config) CacheMaxAge() time.Duration {
	return time.Duration(c.Cache.MaxAgeSeconds) * time.Second
}

// HTTPTimeout returns the per-request timeout as a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}
