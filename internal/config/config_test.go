package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
upstream:
  api_url: https://cats.example.com/v1/search
  api_key: secret
  timeout_seconds: 5
  rate_rps: 2.5
  rate_burst: 3
  max_retries: 2
  backoff_initial_ms: 100
  backoff_max_ms: 500
render:
  columns: 120
  height_scale: 0.45
cache:
  freshness_seconds: 15
  serve_stale: false
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Upstream.APIURL != "https://cats.example.com/v1/search" || cfg.Upstream.APIKey != "secret" {
		t.Fatalf("expected upstream overrides to apply: %+v", cfg.Upstream)
	}
	if cfg.Upstream.RateRPS != 2.5 || cfg.Upstream.RateBurst != 3 {
		t.Fatalf("expected rate overrides to apply: %+v", cfg.Upstream)
	}
	if cfg.Render.Columns != 120 || cfg.Render.HeightScale != 0.45 {
		t.Fatalf("expected render overrides to apply: %+v", cfg.Render)
	}
	if cfg.Cache.ServeStale {
		t.Fatal("expected serve_stale to be disabled")
	}
	if cfg.Logging.Development {
		t.Fatal("expected development logging to be disabled")
	}
	if got := cfg.FetchTimeout(); got != 5*time.Second {
		t.Fatalf("expected fetch timeout 5s, got %v", got)
	}
	if got := cfg.FreshnessWindow(); got != 15*time.Second {
		t.Fatalf("expected freshness window 15s, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Upstream.APIURL == "" {
		t.Fatal("expected default upstream api_url to be set")
	}
	if cfg.Upstream.MaxRetries != 0 {
		t.Fatalf("expected retries disabled by default, got %d", cfg.Upstream.MaxRetries)
	}
	if cfg.Render.Columns != 80 || cfg.Render.HeightScale != 0.5 {
		t.Fatalf("expected default render geometry, got %+v", cfg.Render)
	}
	if !cfg.Cache.ServeStale {
		t.Fatal("expected serve_stale enabled by default")
	}
}

func TestLoadAPIKeyFromEnvOnly(t *testing.T) {
	// No t.Parallel: t.Setenv mutates process state.
	t.Setenv("CATSCII_UPSTREAM_API_KEY", "env-secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Upstream.APIKey != "env-secret" {
		t.Fatalf("expected api key from environment, got %q", cfg.Upstream.APIKey)
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("CATSCII_SERVER_PORT", "9191")
	t.Setenv("CATSCII_CACHE_SERVE_STALE", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Fatalf("expected port 9191 from environment, got %d", cfg.Server.Port)
	}
	if cfg.Cache.ServeStale {
		t.Fatal("expected serve_stale disabled via environment")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	base := func() Config {
		return Config{
			Server:   ServerConfig{Port: 8080},
			Upstream: UpstreamConfig{APIURL: "https://example.com", TimeoutSeconds: 10},
			Render:   RenderConfig{Columns: 80, HeightScale: 0.5},
			Cache:    CacheConfig{FreshnessSeconds: 30},
		}
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"empty api url", func(c *Config) { c.Upstream.APIURL = "" }},
		{"zero timeout", func(c *Config) { c.Upstream.TimeoutSeconds = 0 }},
		{"negative retries", func(c *Config) { c.Upstream.MaxRetries = -1 }},
		{"zero columns", func(c *Config) { c.Render.Columns = 0 }},
		{"zero height scale", func(c *Config) { c.Render.HeightScale = 0 }},
		{"zero freshness", func(c *Config) { c.Cache.FreshnessSeconds = 0 }},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
