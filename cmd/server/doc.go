// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

/*
Package main is the entry point for the Wisata recommendation service.

Wisata scores candidate tourist places for a user with a model resolved from
a model registry, ranks them and serves the result over HTTP to the
recommendation dashboard.

# Application Architecture

	RootSupervisor ("wisata")
	├── ModelSupervisor ("model-layer")
	│   ├── ReloadService (if MODEL_RELOAD_INTERVAL > 0)
	│   └── SweepService (memory response cache only)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Initialization order:

 1. Configuration: koanf v2 (defaults, config.yaml, environment, .env)
 2. Logging: zerolog, JSON or console
 3. Registry: MLflow or directory source, circuit breaker, optional
    BadgerDB last-known-good snapshots
 4. Model resolution: priority list, then the built-in baseline; only a
    failed baseline aborts startup
 5. Scoring engine, serving orchestrator, optional response cache
 6. Chi router with CORS, rate limiting and JWT-guarded reload
 7. Supervisor tree, which runs until SIGINT or SIGTERM

# Example Usage

Local development against an MLflow tracking server:

	export MLFLOW_TRACKING_URI=http://localhost:5000
	./wisata

Without any registry (baseline only):

	export REGISTRY_TYPE=none
	./wisata

Production:

	export ENVIRONMENT=production
	export JWT_SECRET=$(openssl rand -base64 48)
	export CORS_ORIGINS=https://dashboard.example.com
	./wisata

Issue an admin token for POST /model/reload:

	./wisata -issue-token ops-bot -token-ttl 720h
*/
package main
