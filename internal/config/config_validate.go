// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/wisata/internal/features"
	"github.com/tomtom215/wisata/internal/logging"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateLogging,
		c.validateRegistry,
		c.validateModel,
		c.validateServing,
		c.validateCache,
		c.validateSecurity,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

var validEnvironments = map[string]bool{
	"development": true,
	"staging":     true,
	"production":  true,
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if !validEnvironments[c.Server.Environment] {
		return fmt.Errorf("ENVIRONMENT must be one of: development, staging, production")
	}
	return nil
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error, fatal, disabled")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// validateRegistry checks the settings of the selected registry type only.
func (c *Config) validateRegistry() error {
	r := &c.Registry
	switch r.Type {
	case RegistryMLflow:
		if r.URL == "" {
			return fmt.Errorf("MLFLOW_TRACKING_URI is required when REGISTRY_TYPE=mlflow")
		}
		if err := validateHTTPURL(r.URL, "MLFLOW_TRACKING_URI"); err != nil {
			return err
		}
		if strings.ContainsAny(r.ArtifactFile, `/\`) || r.ArtifactFile == "" {
			return fmt.Errorf("MLFLOW_ARTIFACT_FILE must be a plain file name")
		}
	case RegistryDir:
		if r.Dir == "" {
			return fmt.Errorf("MODEL_DIR is required when REGISTRY_TYPE=dir")
		}
	case RegistryNone:
		return nil
	default:
		return fmt.Errorf("REGISTRY_TYPE must be one of: mlflow, dir, none")
	}

	if r.FetchTimeout <= 0 {
		return fmt.Errorf("REGISTRY_FETCH_TIMEOUT must be positive")
	}
	if r.Breaker.Enabled {
		if r.Breaker.FailureRatio <= 0 || r.Breaker.FailureRatio > 1 {
			return fmt.Errorf("registry.breaker.failure_ratio must be in (0, 1]")
		}
		if r.Breaker.Timeout <= 0 {
			return fmt.Errorf("registry.breaker.timeout must be positive")
		}
	}
	if r.SnapshotEnabled && r.SnapshotTTL < 0 {
		return fmt.Errorf("REGISTRY_SNAPSHOT_TTL must not be negative")
	}
	return nil
}

func (c *Config) validateModel() error {
	if len(c.Model.Priority) == 0 {
		return fmt.Errorf("MODEL_PRIORITY must list at least one model name")
	}
	seen := make(map[string]bool, len(c.Model.Priority))
	for _, name := range c.Model.Priority {
		if seen[name] {
			return fmt.Errorf("MODEL_PRIORITY contains %q twice", name)
		}
		seen[name] = true
	}
	if c.Model.ReloadInterval < 0 || c.Model.MinReloadInterval < 0 {
		return fmt.Errorf("model reload intervals must not be negative")
	}
	if c.Model.ReloadInterval > 0 && c.Model.ReloadInterval < c.Model.MinReloadInterval {
		return fmt.Errorf("MODEL_RELOAD_INTERVAL (%v) is shorter than MODEL_MIN_RELOAD_INTERVAL (%v)",
			c.Model.ReloadInterval, c.Model.MinReloadInterval)
	}
	return validatePriors(&c.Model.Priors)
}

// validatePriors keeps rating means on the 0-5 scale and spreads, counts
// and the spending ratio positive.
func validatePriors(p *features.Priors) error {
	means := map[string]float64{
		"global_mean":   p.GlobalMean,
		"user_mean":     p.UserMean,
		"place_mean":    p.PlaceMean,
		"category_mean": p.CategoryMean,
		"city_mean":     p.CityMean,
	}
	for name, v := range means {
		if v < 0 || v > 5 {
			return fmt.Errorf("model.priors.%s must be between 0 and 5, got %v", name, v)
		}
	}
	positive := map[string]float64{
		"global_std":     p.GlobalStd,
		"user_std":       p.UserStd,
		"place_std":      p.PlaceStd,
		"user_count":     p.UserCount,
		"place_count":    p.PlaceCount,
		"spending_ratio": p.SpendingRatio,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("model.priors.%s must be positive, got %v", name, v)
		}
	}
	if p.UserRange < 0 || p.UserRange > 5 {
		return fmt.Errorf("model.priors.user_range must be between 0 and 5, got %v", p.UserRange)
	}
	return nil
}

func (c *Config) validateServing() error {
	s := &c.Serving
	if s.MaxCandidates < 1 {
		return fmt.Errorf("MAX_CANDIDATES must be at least 1")
	}
	if s.MaxTopK < 1 {
		return fmt.Errorf("MAX_TOP_K must be at least 1")
	}
	if s.DefaultTopK < 1 || s.DefaultTopK > s.MaxTopK {
		return fmt.Errorf("DEFAULT_TOP_K must be between 1 and MAX_TOP_K (%d)", s.MaxTopK)
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if s.Workers < 1 {
		return fmt.Errorf("SCORING_WORKERS must be at least 1")
	}
	if s.ParallelThreshold < 1 {
		return fmt.Errorf("PARALLEL_THRESHOLD must be at least 1")
	}
	return nil
}

func (c *Config) validateCache() error {
	if !c.Cache.Enabled {
		return nil
	}
	switch c.Cache.Backend {
	case "memory":
		if c.Cache.Capacity < 1 {
			return fmt.Errorf("CACHE_CAPACITY must be at least 1")
		}
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when CACHE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be one of: memory, redis")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	return nil
}

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

// minJWTSecretLength is the shortest accepted HS256 secret.
const minJWTSecretLength = 32

func (c *Config) validateSecurity() error {
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
		}
		if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
		}
	}

	secret := c.Security.JWTSecret
	if secret != "" {
		if len(secret) < minJWTSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
		}
		if containsPlaceholder(secret) {
			return fmt.Errorf("JWT_SECRET contains a placeholder value, set a real secret")
		}
	}
	if secret == "" && c.IsProduction() {
		return fmt.Errorf("JWT_SECRET is required when ENVIRONMENT=production so model reloads are authenticated")
	}
	return nil
}

// HasWildcardCORS reports whether any origin is allowed.
func (c *Config) HasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// placeholderPatterns are values that indicate a secret was never set.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"PLACEHOLDER",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}
