// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

/*
Package metrics provides Prometheus metrics collection and export for observability.

# Overview

The package provides metrics for:
  - HTTP request latency and throughput
  - Scoring volume, latency and per-candidate inference fallbacks
  - Model resolution outcomes, registry fetches and reloads
  - The active model identity and degraded-mode flag
  - Response cache hit/miss rates
  - Registry circuit breaker state transitions

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8000/metrics

# Alerting

wisata_model_degraded == 1 for longer than one reload interval means the
registry has been unreachable (or every artifact was rejected) and requests
are served by the baseline heuristic.

# Usage

Metrics are registered with promauto at package init. Call the Record*
helpers from the component that owns the event:

	metrics.RecordScoring(len(vectors), fallbacks, time.Since(start))
	metrics.SetActiveModel(am.Name, am.Version, am.Degraded, am.LoadedAt)
*/
package metrics
