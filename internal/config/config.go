// Package config loads gateway configuration from the environment and an
// optional YAML file. Environment variables use the PROFILES_ prefix with
// underscores mapping to config path separators (PROFILES_SERVER_PORT ->
// server.port). File values load first; environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	CORS      CORSConfig      `koanf:"cors"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Security  SecurityConfig  `koanf:"security"`
	Monitor   MonitorConfig   `koanf:"monitor"`
	Storage   StorageConfig   `koanf:"storage"`
	Auth      AuthConfig      `koanf:"auth"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
	// RequestTimeoutSeconds bounds the whole pipeline including the domain
	// handler. Monitoring still records timed-out requests.
	RequestTimeoutSeconds int `koanf:"request_timeout_seconds"`
	// Version is emitted as the X-Service-Version response header.
	Version string `koanf:"version"`
}

func (c ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// TierConfig is a named rate-limit policy.
type TierConfig struct {
	MaxRequests int   `koanf:"max_requests"`
	WindowMS    int64 `koanf:"window_ms"`
}

func (t TierConfig) Window() time.Duration {
	return time.Duration(t.WindowMS) * time.Millisecond
}

type RateLimitConfig struct {
	Tiers map[string]TierConfig `koanf:"tiers"`
	// SweepIdleWindows is the K in the bucket eviction rule: buckets idle
	// longer than window*K are removed by the periodic sweep.
	SweepIdleWindows int `koanf:"sweep_idle_windows"`
	// SweepSchedule is a cron spec for the janitor, e.g. "@every 60s".
	SweepSchedule string `koanf:"sweep_schedule"`
}

type SecurityConfig struct {
	// MaxBodyBytes is the payload size ceiling for mutating requests.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

type MonitorConfig struct {
	// RawRetentionHours bounds how long raw request log entries are kept
	// before being folded into hourly aggregates and dropped.
	RawRetentionHours int `koanf:"raw_retention_hours"`
	// HourlyRetentionHours bounds hourly aggregates before daily folding.
	HourlyRetentionHours int `koanf:"hourly_retention_hours"`
	// DailyRetentionDays bounds daily aggregates.
	DailyRetentionDays int `koanf:"daily_retention_days"`
	// RollupSchedule is a cron spec for the rollup job.
	RollupSchedule string `koanf:"rollup_schedule"`

	// Health thresholds. An exceeded threshold degrades the health status;
	// a doubled one marks the service unhealthy.
	ErrorRateThreshold float64 `koanf:"error_rate_threshold"`
	LatencyP95MS       float64 `koanf:"latency_p95_ms"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // memory, sqlite
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type AuthConfig struct {
	SessionTTLHours int `koanf:"session_ttl_hours"`
}

func (c AuthConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// Load reads configuration from the optional YAML file at path (ignored if
// empty) and the PROFILES_ environment, applying defaults for anything unset.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("PROFILES_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "PROFILES_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	applyDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if len(cfg.RateLimit.Tiers) == 0 {
		cfg.RateLimit.Tiers = DefaultTiers()
	}

	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"server.port":                    8080,
		"server.request_timeout_seconds": 30,
		"server.version":                 "dev",
		"cors.allowed_origins":           []string{"http://localhost:3000"},
		"rate_limit.sweep_idle_windows":  4,
		"rate_limit.sweep_schedule":      "@every 60s",
		"security.max_body_bytes":        1 << 20,
		"monitor.raw_retention_hours":    3,
		"monitor.hourly_retention_hours": 48,
		"monitor.daily_retention_days":   14,
		"monitor.rollup_schedule":        "@every 60s",
		"monitor.error_rate_threshold":   0.05,
		"monitor.latency_p95_ms":         1000,
		"storage.type":                   "memory",
		"storage.sqlite.path":            "./data/gateway.db",
		"auth.session_ttl_hours":         168,
	}
	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}
}

// DefaultTiers returns the built-in rate-limit tiers used when none are
// configured. "search" is generous, "mutate" strict, "agent" in between.
func DefaultTiers() map[string]TierConfig {
	return map[string]TierConfig{
		"search": {MaxRequests: 60, WindowMS: 60_000},
		"agent":  {MaxRequests: 30, WindowMS: 60_000},
		"mutate": {MaxRequests: 10, WindowMS: 60_000},
	}
}
