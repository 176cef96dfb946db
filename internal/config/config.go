// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/wisata/internal/features"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file, a .env file and the environment.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values from defaultConfig()
//  2. Config File: optional config.yaml (see DefaultConfigPaths)
//  3. .env: loaded into the process environment without overriding it
//  4. Environment Variables: mapped explicitly by envTransformFunc
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Registry RegistryConfig `koanf:"registry"`
	Model    ModelConfig    `koanf:"model"`
	Serving  ServingConfig  `koanf:"serving"`
	Cache    CacheConfig    `koanf:"cache"`
	Security SecurityConfig `koanf:"security"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig configures the global zerolog logger.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// Registry types.
const (
	RegistryMLflow = "mlflow"
	RegistryDir    = "dir"
	RegistryNone   = "none"
)

// RegistryConfig selects the model registry and its resilience wrappers.
type RegistryConfig struct {
	// Type is mlflow, dir or none. none serves the baseline only.
	Type string `koanf:"type"`

	// URL is the MLflow tracking server base URL.
	URL   string `koanf:"url"`
	Token string `koanf:"token"`

	ArtifactFile string        `koanf:"artifact_file"`
	Stages       []string      `koanf:"stages"`
	FetchTimeout time.Duration `koanf:"fetch_timeout"`

	// Dir holds <name>.wsm artifacts when Type is dir.
	Dir string `koanf:"dir"`

	Breaker BreakerConfig `koanf:"breaker"`

	// SnapshotEnabled keeps a last-known-good copy of every fetched artifact.
	// SnapshotPath empty means an in-memory store.
	SnapshotEnabled bool          `koanf:"snapshot_enabled"`
	SnapshotPath    string        `koanf:"snapshot_path"`
	SnapshotTTL     time.Duration `koanf:"snapshot_ttl"`
}

// BreakerConfig tunes the circuit breaker around the registry.
type BreakerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	MaxRequests  uint32        `koanf:"max_requests"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio"`
}

// ModelConfig controls model resolution and reloads.
type ModelConfig struct {
	// Priority is the ordered list of registry names to try.
	Priority []string `koanf:"priority"`

	// ReloadInterval triggers a periodic reload; 0 disables it.
	ReloadInterval time.Duration `koanf:"reload_interval"`

	// MinReloadInterval throttles reloads; 0 disables throttling.
	MinReloadInterval time.Duration `koanf:"min_reload_interval"`

	// Priors are the population rating statistics fed into the
	// prior-statistics block of every feature vector. They must match the
	// statistics the registry models were trained with.
	Priors features.Priors `koanf:"priors"`
}

// ServingConfig bounds request handling.
type ServingConfig struct {
	MaxCandidates     int           `koanf:"max_candidates"`
	DefaultTopK       int           `koanf:"default_top_k"`
	MaxTopK           int           `koanf:"max_top_k"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	ParallelThreshold int           `koanf:"parallel_threshold"`
	Workers           int           `koanf:"workers"`
}

// CacheConfig configures the optional response cache.
type CacheConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Backend       string        `koanf:"backend"` // memory or redis
	TTL           time.Duration `koanf:"ttl"`
	Capacity      int           `koanf:"capacity"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
}

// SecurityConfig holds CORS, rate limiting and the admin token secret.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// JWTSecret signs admin tokens accepted by /api/v1/model/reload.
	// Empty leaves the reload endpoint unauthenticated.
	JWTSecret string `koanf:"jwt_secret"`
}

// Load reads configuration using LoadWithKoanf.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
