// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the serving core:
// - API endpoint latency and throughput
// - Scoring volume, latency and inference fallbacks
// - Model resolution, registry fetches and reloads
// - Response cache efficiency
// - Registry circuit breaker

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being processed",
		},
	)

	// Scoring Metrics
	ScoringRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wisata_scoring_requests_total",
			Help: "Total scoring pipeline runs by operation and outcome",
		},
		[]string{"operation", "outcome"}, // operation: predict, recommend; outcome: ok, validation, timeout, error
	)

	CandidatesScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wisata_candidates_scored_total",
			Help: "Total number of candidate places scored",
		},
	)

	InferenceFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wisata_inference_fallbacks_total",
			Help: "Candidates scored with the average-rating prior after an inference failure",
		},
	)

	ScoringDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wisata_scoring_duration_seconds",
			Help:    "Duration of one batch scoring call",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	// Model Lifecycle Metrics
	ModelResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wisata_model_resolutions_total",
			Help: "Model resolutions by outcome (resolved, baseline, fatal)",
		},
		[]string{"outcome"},
	)

	RegistryFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wisata_registry_fetches_total",
			Help: "Registry fetch attempts by model name and result",
		},
		[]string{"model", "result"}, // result: ok, not_found, unavailable, malformed, timeout
	)

	RegistryFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wisata_registry_fetch_duration_seconds",
			Help:    "Duration of a single registry fetch",
			Buckets: prometheus.DefBuckets,
		},
	)

	ModelReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wisata_model_reloads_total",
			Help: "Model reload requests by result (swapped, failed, throttled)",
		},
		[]string{"result"},
	)

	ActiveModel = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wisata_active_model_info",
			Help: "Currently active model (value is always 1)",
		},
		[]string{"name", "version"},
	)

	ModelDegraded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wisata_model_degraded",
			Help: "1 when serving on the baseline fallback model",
		},
	)

	ModelLoadTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wisata_model_load_timestamp_seconds",
			Help: "Unix time the active model was loaded",
		},
	)

	// Response Cache Metrics
	ResponseCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wisata_response_cache_hits_total",
			Help: "Response cache hits by backend",
		},
		[]string{"backend"},
	)

	ResponseCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wisata_response_cache_misses_total",
			Help: "Response cache misses by backend",
		},
		[]string{"backend"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements active request counter
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordScoring records one batch scoring call.
func RecordScoring(candidates, fallbacks int, duration time.Duration) {
	CandidatesScored.Add(float64(candidates))
	if fallbacks > 0 {
		InferenceFallbacks.Add(float64(fallbacks))
	}
	ScoringDuration.Observe(duration.Seconds())
}

// RecordScoringRequest records the outcome of a predict or recommend call.
func RecordScoringRequest(operation, outcome string) {
	ScoringRequests.WithLabelValues(operation, outcome).Inc()
}

// RecordRegistryFetch records one registry fetch attempt.
func RecordRegistryFetch(model, result string, duration time.Duration) {
	RegistryFetches.WithLabelValues(model, result).Inc()
	RegistryFetchDuration.Observe(duration.Seconds())
}

// RecordModelResolution records how a resolution pass ended.
func RecordModelResolution(outcome string) {
	ModelResolutions.WithLabelValues(outcome).Inc()
}

// RecordModelReload records the result of a reload request.
func RecordModelReload(result string) {
	ModelReloads.WithLabelValues(result).Inc()
}

// SetActiveModel publishes the identity of the newly swapped-in model.
func SetActiveModel(name, version string, degraded bool, loadedAt time.Time) {
	ActiveModel.Reset()
	ActiveModel.WithLabelValues(name, version).Set(1)
	if degraded {
		ModelDegraded.Set(1)
	} else {
		ModelDegraded.Set(0)
	}
	ModelLoadTimestamp.Set(float64(loadedAt.Unix()))
}

// RecordCacheLookup records a response cache hit or miss.
func RecordCacheLookup(backend string, hit bool) {
	if hit {
		ResponseCacheHits.WithLabelValues(backend).Inc()
	} else {
		ResponseCacheMisses.WithLabelValues(backend).Inc()
	}
}
