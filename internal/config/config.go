// Package config loads and validates catscii configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Render   RenderConfig   `mapstructure:"render"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// UpstreamConfig governs the external image provider client.
type UpstreamConfig struct {
	APIURL           string  `mapstructure:"api_url"`
	APIKey           string  `mapstructure:"api_key"`
	TimeoutSeconds   int     `mapstructure:"timeout_seconds"`
	RateRPS          float64 `mapstructure:"rate_rps"`
	RateBurst        int     `mapstructure:"rate_burst"`
	MaxRetries       int     `mapstructure:"max_retries"`
	BackoffInitialMs int     `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int     `mapstructure:"backoff_max_ms"`
}

// RenderConfig fixes the ASCII output geometry.
type RenderConfig struct {
	Columns     int     `mapstructure:"columns"`
	HeightScale float64 `mapstructure:"height_scale"`
}

// CacheConfig shapes the coordinator's freshness and staleness policy.
type CacheConfig struct {
	FreshnessSeconds int  `mapstructure:"freshness_seconds"`
	ServeStale       bool `mapstructure:"serve_stale"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CATSCII")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("upstream.api_url", "https://api.thecatapi.com/v1/images/search")
	// AutomaticEnv only resolves keys viper already knows, so the
	// credential needs a default for CATSCII_UPSTREAM_API_KEY to land.
	v.SetDefault("upstream.api_key", "")
	v.SetDefault("upstream.timeout_seconds", 10)
	v.SetDefault("upstream.rate_rps", 1.0)
	v.SetDefault("upstream.rate_burst", 1)
	v.SetDefault("upstream.max_retries", 0)
	v.SetDefault("upstream.backoff_initial_ms", 250)
	v.SetDefault("upstream.backoff_max_ms", 2000)
	v.SetDefault("render.columns", 80)
	v.SetDefault("render.height_scale", 0.5)
	v.SetDefault("cache.freshness_seconds", 30)
	v.SetDefault("cache.serve_stale", true)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Upstream.APIURL == "" {
		return fmt.Errorf("upstream.api_url must be set")
	}
	if c.Upstream.TimeoutSeconds <= 0 {
		return fmt.Errorf("upstream.timeout_seconds must be > 0")
	}
	if c.Upstream.MaxRetries < 0 {
		return fmt.Errorf("upstream.max_retries must be >= 0")
	}
	if c.Render.Columns <= 0 {
		return fmt.Errorf("render.columns must be > 0")
	}
	if c.Render.HeightScale <= 0 {
		return fmt.Errorf("render.height_scale must be > 0")
	}
	if c.Cache.FreshnessSeconds <= 0 {
		return fmt.Errorf("cache.freshness_seconds must be > 0")
	}
	return nil
}

// FetchTimeout converts the upstream timeout config into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSeconds) * time.Second
}

// FreshnessWindow converts the cache freshness config into a duration.
func (c Config) FreshnessWindow() time.Duration {
	return time.Duration(c.Cache.FreshnessSeconds) * time.Second
}
