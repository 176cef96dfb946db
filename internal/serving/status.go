// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package serving

import (
	"context"
	"time"

	"github.com/tomtom215/wisata/internal/features"
	"github.com/tomtom215/wisata/internal/resolver"
)

// Health status values.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Health is the monitoring view of the service.
type Health struct {
	Status        string     `json:"status"`
	ModelUsed     string     `json:"model_used"`
	Degraded      bool       `json:"degraded"`
	LoadTimestamp *time.Time `json:"load_timestamp"`
	ModelLoaded   bool       `json:"model_loaded"`
	APIVersion    string     `json:"api_version"`
	Timestamp     time.Time  `json:"timestamp"`

	// RegistryCircuit is the registry circuit breaker state (closed,
	// half-open, open). Empty when no breaker is configured.
	RegistryCircuit string `json:"registry_circuit,omitempty"`
}

// CircuitReporter reports a circuit breaker state.
// *registry.BreakerRegistry implements it.
type CircuitReporter interface {
	State() string
}

// SetRegistryCircuit adds the registry breaker state to Health.
func (s *Service) SetRegistryCircuit(c CircuitReporter) {
	s.circuit = c
}

// Health reports the active model. It only reads the published pointer and
// never waits on a reload in progress. A service on the baseline is healthy
// and degraded.
func (s *Service) Health() Health {
	h := Health{
		Status:     StatusUnhealthy,
		ModelUsed:  "none",
		APIVersion: APIVersion,
		Timestamp:  s.now(),
	}
	if s.circuit != nil {
		h.RegistryCircuit = s.circuit.State()
	}
	active := s.models.Current()
	if active == nil {
		return h
	}
	loaded := active.LoadedAt
	h.Status = StatusHealthy
	h.ModelUsed = active.Name
	h.Degraded = active.Degraded
	h.LoadTimestamp = &loaded
	h.ModelLoaded = true
	return h
}

// ModelInfo describes the active model.
type ModelInfo struct {
	ModelName     string             `json:"model_name"`
	ModelVersion  string             `json:"model_version"`
	ModelStage    string             `json:"model_stage"`
	RunID         string             `json:"run_id"`
	Source        string             `json:"source"`
	Kind          string             `json:"model_kind"`
	ModelMetrics  map[string]float64 `json:"model_metrics"`
	FeatureCount  int                `json:"feature_count"`
	FeatureNames  []string           `json:"feature_names"`
	LayoutVersion int                `json:"layout_version"`
	Degraded      bool               `json:"degraded"`
	LastUpdated   time.Time          `json:"last_updated"`
}

// ModelInfo returns metadata of the active model or ErrNoModel.
func (s *Service) ModelInfo() (ModelInfo, error) {
	active := s.models.Current()
	if active == nil {
		return ModelInfo{}, ErrNoModel
	}
	m := make(map[string]float64, len(active.Metrics))
	for k, v := range active.Metrics {
		m[k] = v
	}
	return ModelInfo{
		ModelName:     active.Name,
		ModelVersion:  active.Version,
		ModelStage:    active.Stage,
		RunID:         active.RunID,
		Source:        active.Source,
		Kind:          string(active.Kind),
		ModelMetrics:  m,
		FeatureCount:  active.Model.NumFeatures(),
		FeatureNames:  features.Names(),
		LayoutVersion: active.LayoutVersion,
		Degraded:      active.Degraded,
		LastUpdated:   active.LoadedAt,
	}, nil
}

// ReloadResult summarizes a completed reload.
type ReloadResult struct {
	ModelUsed     string             `json:"model_used"`
	ModelVersion  string             `json:"model_version"`
	Outcome       resolver.Outcome   `json:"outcome"`
	Degraded      bool               `json:"degraded"`
	LoadTimestamp time.Time          `json:"load_timestamp"`
	Attempts      []resolver.Attempt `json:"attempts"`
}

// Reload re-runs model resolution and swaps in the result. On error the
// previous model stays active; the error is resolver.ErrFatalStartup,
// resolver.ErrReloadThrottled, resolver.ErrNotStarted or a context error.
func (s *Service) Reload(ctx context.Context) (ReloadResult, error) {
	res, err := s.models.Reload(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("model reload failed, previous model kept")
		return ReloadResult{}, err
	}
	attempts := res.Attempts
	if attempts == nil {
		attempts = []resolver.Attempt{}
	}
	out := ReloadResult{
		Outcome:  res.Outcome,
		Attempts: attempts,
	}
	if res.Active != nil {
		out.ModelUsed = res.Active.Name
		out.ModelVersion = res.Active.Version
		out.Degraded = res.Active.Degraded
		out.LoadTimestamp = res.Active.LoadedAt
	}
	s.logger.Info().
		Str("model", out.ModelUsed).
		Str("version", out.ModelVersion).
		Str("outcome", string(out.Outcome)).
		Bool("degraded", out.Degraded).
		Msg("model reloaded")
	return out, nil
}
