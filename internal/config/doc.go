// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

/*
Package config provides centralized configuration management for Wisata.

Configuration is layered with koanf v2: struct defaults, then an optional
YAML file (CONFIG_PATH or one of DefaultConfigPaths), then environment
variables. A .env file (or DOTENV_PATH) is loaded into the environment
first with godotenv and never overrides variables that are already set.

# Environment Variables

Only variables in the explicit mapping table are read:

Server:
  - HTTP_HOST, HTTP_PORT (default 0.0.0.0:8000)
  - HTTP_TIMEOUT, SHUTDOWN_TIMEOUT
  - ENVIRONMENT: development, staging, production

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

Registry:
  - REGISTRY_TYPE: mlflow (default), dir, none
  - MLFLOW_TRACKING_URI, MLFLOW_TRACKING_TOKEN, MLFLOW_ARTIFACT_FILE, MLFLOW_STAGES
  - REGISTRY_FETCH_TIMEOUT (default 10s)
  - MODEL_DIR: artifact directory for REGISTRY_TYPE=dir
  - REGISTRY_BREAKER, REGISTRY_SNAPSHOT, REGISTRY_SNAPSHOT_PATH, REGISTRY_SNAPSHOT_TTL

Model:
  - MODEL_PRIORITY: comma-separated registry names
  - MODEL_RELOAD_INTERVAL (default 0, disabled), MODEL_MIN_RELOAD_INTERVAL

Serving:
  - MAX_CANDIDATES (50), DEFAULT_TOP_K (5), MAX_TOP_K (50)
  - REQUEST_TIMEOUT, PARALLEL_THRESHOLD, SCORING_WORKERS

Cache:
  - CACHE_ENABLED, CACHE_BACKEND (memory or redis), CACHE_TTL, CACHE_CAPACITY
  - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB

Security:
  - CORS_ORIGINS, RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
  - JWT_SECRET: HS256 secret for admin tokens (required in production)

# Usage Example

	cfg, err := config.Load()
	if err != nil {
	    log.Fatalf("Failed to load config: %v", err)
	}
	srv := &http.Server{Addr: cfg.Server.Addr()}
*/
package config
