// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/wisata/internal/features"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/wisata/config.yaml",
	"/etc/wisata/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvPathEnvVar overrides the .env file location.
const DotEnvPathEnvVar = "DOTENV_PATH"

// defaultPriority mirrors resolver.DefaultPriority so config dumps show the full list.
var defaultPriority = []string{
	"tourism-recommendation-model",
	"tourism_recommendation_model",
	"tourism_recommendation_enhanced",
	"tourism_random_forest",
	"tourism_gradient_boosting",
	"tourism_simple_model",
}

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Registry: RegistryConfig{
			Type:         RegistryMLflow,
			URL:          "http://localhost:5000",
			ArtifactFile: "model.wsm",
			Stages:       []string{"None", "Staging", "Production"},
			FetchTimeout: 10 * time.Second,
			Breaker: BreakerConfig{
				Enabled:      true,
				MaxRequests:  3,
				Interval:     time.Minute,
				Timeout:      2 * time.Minute,
				MinRequests:  10,
				FailureRatio: 0.6,
			},
			SnapshotEnabled: false,
			SnapshotTTL:     7 * 24 * time.Hour,
		},
		Model: ModelConfig{
			Priority:          append([]string(nil), defaultPriority...),
			ReloadInterval:    0, // periodic reload is opt-in
			MinReloadInterval: 10 * time.Second,
			Priors:            features.DefaultPriors(),
		},
		Serving: ServingConfig{
			MaxCandidates:     50,
			DefaultTopK:       5,
			MaxTopK:           50,
			RequestTimeout:    5 * time.Second,
			ParallelThreshold: 64,
			Workers:           4,
		},
		Cache: CacheConfig{
			Enabled:  false,
			Backend:  "memory",
			TTL:      5 * time.Minute,
			Capacity: 10000,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in defaults
//  2. Config File: optional YAML config file (if exists)
//  3. Environment Variables: override any mapped setting, including values
//     from a .env file in the working directory
//
// Precedence is ENV > File > Defaults.
func LoadWithKoanf() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads .env (or DOTENV_PATH) into the process environment.
// Variables already set in the real environment win; a missing file is fine.
func loadDotEnv() error {
	path := os.Getenv(DotEnvPathEnvVar)
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"model.priority",
	"registry.stages",
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings while the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_port":        "server.port",
	"http_host":        "server.host",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Registry
	"registry_type":          "registry.type",
	"mlflow_tracking_uri":    "registry.url",
	"mlflow_tracking_token":  "registry.token",
	"mlflow_artifact_file":   "registry.artifact_file",
	"mlflow_stages":          "registry.stages",
	"registry_fetch_timeout": "registry.fetch_timeout",
	"model_dir":              "registry.dir",
	"registry_breaker":       "registry.breaker.enabled",
	"registry_snapshot":      "registry.snapshot_enabled",
	"registry_snapshot_path": "registry.snapshot_path",
	"registry_snapshot_ttl":  "registry.snapshot_ttl",

	// Model
	"model_priority":            "model.priority",
	"model_reload_interval":     "model.reload_interval",
	"model_min_reload_interval": "model.min_reload_interval",

	// Serving
	"max_candidates":     "serving.max_candidates",
	"default_top_k":      "serving.default_top_k",
	"max_top_k":          "serving.max_top_k",
	"request_timeout":    "serving.request_timeout",
	"parallel_threshold": "serving.parallel_threshold",
	"scoring_workers":    "serving.workers",

	// Cache
	"cache_enabled":  "cache.enabled",
	"cache_backend":  "cache.backend",
	"cache_ttl":      "cache.ttl",
	"cache_capacity": "cache.capacity",
	"redis_addr":     "cache.redis_addr",
	"redis_password": "cache.redis_password",
	"redis_db":       "cache.redis_db",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"jwt_secret":          "security.jwt_secret",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - MLFLOW_TRACKING_URI -> registry.url
//   - HTTP_PORT -> server.port
//   - MODEL_PRIORITY -> model.priority
//
// Unmapped variables return "" and are skipped so unrelated environment
// variables never leak into the config.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
