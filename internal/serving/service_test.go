// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package serving

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/wisata/internal/cache"
	"github.com/tomtom215/wisata/internal/features"
	"github.com/tomtom215/wisata/internal/model"
	"github.com/tomtom215/wisata/internal/registry"
	"github.com/tomtom215/wisata/internal/resolver"
	"github.com/tomtom215/wisata/internal/scoring"
	"github.com/tomtom215/wisata/internal/validation"
)

// staticSource serves one fixed model.
type staticSource struct {
	active    *resolver.ActiveModel
	reloadErr error
	reloads   atomic.Int32
}

func (s *staticSource) Current() *resolver.ActiveModel { return s.active }

func (s *staticSource) Reload(_ context.Context) (resolver.Resolution, error) {
	s.reloads.Add(1)
	if s.reloadErr != nil {
		return resolver.Resolution{}, s.reloadErr
	}
	return resolver.Resolution{Outcome: resolver.OutcomeResolved, Active: s.active}, nil
}

// countingModel predicts the place rating feature and counts calls.
type countingModel struct {
	calls atomic.Int32
	delay time.Duration
}

func (m *countingModel) Predict(x []float64) (float64, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return x[features.IdxPlaceRating], nil
}

func (m *countingModel) NumFeatures() int { return features.Arity }
func (m *countingModel) Kind() model.Kind { return "counting" }

func activeModel(m model.Model) *resolver.ActiveModel {
	return &resolver.ActiveModel{
		Name:          "tourism_random_forest",
		Version:       "7",
		Stage:         "Production",
		RunID:         "run-7",
		Source:        "mlflow",
		Kind:          m.Kind(),
		LayoutVersion: features.LayoutVersion,
		Metrics:       map[string]float64{"rmse": 0.81},
		LoadedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Model:         m,
	}
}

// baselineService runs on a manager with no registry, i.e. on the baseline.
func baselineService(t *testing.T, cfg Config) *Service {
	t.Helper()
	mgr := resolver.NewManager(nil, resolver.Config{}, zerolog.Nop())
	if _, err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return NewService(mgr, scoring.NewEngine(scoring.DefaultConfig(), zerolog.Nop()), cfg, zerolog.Nop())
}

func scenarioRequest() *Request {
	return &Request{
		User: features.UserProfile{Age: 28, PreferredCategory: "Culture", BudgetRange: "medium"},
		Places: []features.Place{
			{PlaceID: "a", Category: "Culture", City: "Jakarta", Price: 25000, AverageRating: 4.2, VisitDurationMinutes: 120},
			{PlaceID: "b", Category: "Marine", City: "Bali", Price: 150000, AverageRating: 4.8, VisitDurationMinutes: 180},
		},
	}
}

func TestRecommend_Scenario(t *testing.T) {
	t.Parallel()

	svc := baselineService(t, Config{})
	ctx := context.Background()

	first, err := svc.Recommend(ctx, scenarioRequest(), 1)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(first.Predictions) != 1 {
		t.Fatalf("len(Predictions) = %d, want 1", len(first.Predictions))
	}
	top := first.Predictions[0]
	if top.PlaceID != "a" || top.Rank != 1 {
		t.Errorf("top = %+v, want place a at rank 1", top)
	}
	if first.TotalPlacesEvaluated != 2 {
		t.Errorf("TotalPlacesEvaluated = %d, want 2", first.TotalPlacesEvaluated)
	}
	if first.ModelUsed != model.BaselineName {
		t.Errorf("ModelUsed = %q", first.ModelUsed)
	}
	if first.Summary == nil || first.Summary.TopKRequested != 1 || first.Summary.AveragePredictedRating != top.PredictedRating {
		t.Errorf("Summary = %+v", first.Summary)
	}

	for i := 0; i < 5; i++ {
		again, err := svc.Recommend(ctx, scenarioRequest(), 1)
		if err != nil {
			t.Fatalf("Recommend #%d: %v", i, err)
		}
		if again.Predictions[0] != top {
			t.Fatalf("Recommend #%d = %+v, want %+v", i, again.Predictions[0], top)
		}
	}
}

func TestPredict_InputOrderWithRanks(t *testing.T) {
	t.Parallel()

	svc := baselineService(t, Config{})
	resp, err := svc.Predict(context.Background(), scenarioRequest())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(resp.Predictions) != 2 {
		t.Fatalf("len = %d", len(resp.Predictions))
	}
	if resp.Predictions[0].PlaceID != "a" || resp.Predictions[1].PlaceID != "b" {
		t.Errorf("predictions not in request order: %+v", resp.Predictions)
	}
	if resp.Predictions[0].Rank != 1 || resp.Predictions[1].Rank != 2 {
		t.Errorf("ranks = %d,%d", resp.Predictions[0].Rank, resp.Predictions[1].Rank)
	}
	if resp.TopRecommendation == nil || resp.TopRecommendation.PlaceID != "a" {
		t.Errorf("TopRecommendation = %+v", resp.TopRecommendation)
	}
	if resp.Summary != nil {
		t.Error("predict must not carry a recommendation summary")
	}
	for _, p := range resp.Predictions {
		if p.PredictedRating < scoring.MinRating || p.PredictedRating > scoring.MaxRating {
			t.Errorf("rating %v outside [0,5]", p.PredictedRating)
		}
		if p.ConfidenceScore != scoring.DefaultConfidence {
			t.Errorf("baseline confidence = %v, want %v", p.ConfidenceScore, scoring.DefaultConfidence)
		}
	}
}

func TestService_Validation(t *testing.T) {
	t.Parallel()

	svc := baselineService(t, Config{MaxCandidates: 3})
	ctx := context.Background()

	places := func(n int) []features.Place {
		out := make([]features.Place, n)
		for i := range out {
			out[i] = features.Place{PlaceID: fmt.Sprintf("p%d", i), AverageRating: 4, VisitDurationMinutes: 60}
		}
		return out
	}

	tests := []struct {
		name      string
		req       *Request
		topK      int
		wantField string
		wantMsg   string
	}{
		{"negative age", &Request{User: features.UserProfile{Age: -5}, Places: places(1)}, 5, "user.age", "user.age must be at least 1"},
		{"age too high", &Request{User: features.UserProfile{Age: 130}, Places: places(1)}, 5, "user.age", ""},
		{"bad budget", &Request{User: features.UserProfile{Age: 30, BudgetRange: "luxury"}, Places: places(1)}, 5, "user.budget_range", ""},
		{"too many places", &Request{User: features.UserProfile{Age: 30}, Places: places(4)}, 5, "places", "places must contain at most 3 items"},
		{"duplicate place", &Request{User: features.UserProfile{Age: 30}, Places: append(places(1), places(1)...)}, 5, "places", ""},
		{"rating above 5", &Request{User: features.UserProfile{Age: 30}, Places: []features.Place{
			{PlaceID: "x", AverageRating: 5.5, VisitDurationMinutes: 30},
		}}, 5, "places[0].average_rating", ""},
		{"zero top_k", &Request{User: features.UserProfile{Age: 30}, Places: places(1)}, 0, "top_k", "top_k must be at least 1"},
		{"nil request", nil, 5, "", "request body is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.Recommend(ctx, tt.req, tt.topK)
			var verr *validation.RequestValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want RequestValidationError", err)
			}
			fe := verr.Errors()[0]
			if fe.Field() != tt.wantField {
				t.Errorf("field = %q, want %q", fe.Field(), tt.wantField)
			}
			if tt.wantMsg != "" && fe.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", fe.Error(), tt.wantMsg)
			}
		})
	}
}

func TestService_ValidationLeavesModelUntouched(t *testing.T) {
	t.Parallel()

	m := &countingModel{}
	src := &staticSource{active: activeModel(m)}
	before := src.Current()
	svc := NewService(src, scoring.NewEngine(scoring.DefaultConfig(), zerolog.Nop()), Config{}, zerolog.Nop())

	req := &Request{
		User:   features.UserProfile{Age: -5},
		Places: []features.Place{{PlaceID: "a", AverageRating: 4, VisitDurationMinutes: 60}},
	}
	for _, call := range []func() error{
		func() error { _, err := svc.Predict(context.Background(), req); return err },
		func() error { _, err := svc.Recommend(context.Background(), req, 5); return err },
	} {
		var verr *validation.RequestValidationError
		if err := call(); !errors.As(err, &verr) {
			t.Fatalf("err = %v, want RequestValidationError", err)
		}
	}

	if n := m.calls.Load(); n != 0 {
		t.Errorf("model called %d times for an invalid request", n)
	}
	if src.Current() != before {
		t.Error("active model changed after a rejected request")
	}
	if n := src.reloads.Load(); n != 0 {
		t.Errorf("reloads = %d, want 0", n)
	}
}

// userMeanModel predicts the user-mean prior slot.
type userMeanModel struct{}

func (userMeanModel) Predict(x []float64) (float64, error) { return x[features.IdxUserMean], nil }
func (userMeanModel) NumFeatures() int                     { return features.Arity }
func (userMeanModel) Kind() model.Kind                     { return "user-mean" }

func TestService_SetBuilderPriors(t *testing.T) {
	t.Parallel()

	svc := NewService(&staticSource{active: activeModel(userMeanModel{})},
		scoring.NewEngine(scoring.DefaultConfig(), zerolog.Nop()), Config{}, zerolog.Nop())

	resp, err := svc.Predict(context.Background(), scenarioRequest())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got := resp.Predictions[0].PredictedRating; got != features.DefaultPriors().UserMean {
		t.Errorf("default priors rating = %v", got)
	}

	priors := features.DefaultPriors()
	priors.UserMean = 4.4
	svc.SetBuilder(features.NewBuilder(priors))
	resp, err = svc.Predict(context.Background(), scenarioRequest())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got := resp.Predictions[0].PredictedRating; got != 4.4 {
		t.Errorf("configured priors rating = %v, want 4.4", got)
	}
}

func TestRecommend_TopKBounds(t *testing.T) {
	t.Parallel()

	svc := baselineService(t, Config{MaxTopK: 1})
	ctx := context.Background()

	resp, err := svc.Recommend(ctx, scenarioRequest(), 10)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(resp.Predictions) != 1 {
		t.Errorf("top_k above max should clamp to 1, got %d", len(resp.Predictions))
	}
	if resp.Summary.TopKRequested != 10 {
		t.Errorf("TopKRequested = %d, want the requested 10", resp.Summary.TopKRequested)
	}

	svc = baselineService(t, Config{})
	resp, err = svc.Recommend(ctx, scenarioRequest(), 10)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(resp.Predictions) != 2 {
		t.Errorf("top_k above candidate count should return all, got %d", len(resp.Predictions))
	}
}

func TestService_EmptyPlaces(t *testing.T) {
	t.Parallel()

	svc := baselineService(t, Config{})
	req := &Request{User: features.UserProfile{Age: 30}}

	resp, err := svc.Recommend(context.Background(), req, 5)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if resp.Predictions == nil || len(resp.Predictions) != 0 {
		t.Errorf("Predictions = %#v, want empty non-nil", resp.Predictions)
	}
	if resp.TopRecommendation != nil || resp.TotalPlacesEvaluated != 0 {
		t.Errorf("empty response = %+v", resp)
	}
	if resp.Summary.AveragePredictedRating != 0 {
		t.Errorf("average = %v", resp.Summary.AveragePredictedRating)
	}
}

func TestService_Timeout(t *testing.T) {
	t.Parallel()

	m := &countingModel{delay: 20 * time.Millisecond}
	src := &staticSource{active: activeModel(m)}
	svc := NewService(src, scoring.NewEngine(scoring.Config{}, zerolog.Nop()),
		Config{RequestTimeout: 30 * time.Millisecond}, zerolog.Nop())

	req := &Request{User: features.UserProfile{Age: 30}}
	for i := 0; i < 10; i++ {
		req.Places = append(req.Places, features.Place{PlaceID: fmt.Sprintf("p%d", i), AverageRating: 4, VisitDurationMinutes: 60})
	}

	start := time.Now()
	_, err := svc.Predict(context.Background(), req)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
	if src.Current() == nil {
		t.Error("timeout must not clear the active model")
	}
}

func TestService_ClientCancel(t *testing.T) {
	t.Parallel()

	m := &countingModel{delay: 20 * time.Millisecond}
	src := &staticSource{active: activeModel(m)}
	svc := NewService(src, scoring.NewEngine(scoring.Config{}, zerolog.Nop()),
		Config{RequestTimeout: 10 * time.Second}, zerolog.Nop())

	req := &Request{User: features.UserProfile{Age: 30}}
	for i := 0; i < 10; i++ {
		req.Places = append(req.Places, features.Place{PlaceID: fmt.Sprintf("p%d", i), AverageRating: 4, VisitDurationMinutes: 60})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(30*time.Millisecond, cancel)

	_, err := svc.Predict(ctx, req)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Errorf("client cancel reported as ErrTimeout: %v", err)
	}
	if got := outcome(err); got != "canceled" {
		t.Errorf("outcome = %q, want canceled", got)
	}
}

func TestService_NoModel(t *testing.T) {
	t.Parallel()

	svc := NewService(&staticSource{}, scoring.NewEngine(scoring.DefaultConfig(), zerolog.Nop()), Config{}, zerolog.Nop())

	if _, err := svc.Predict(context.Background(), scenarioRequest()); !errors.Is(err, ErrNoModel) {
		t.Errorf("Predict err = %v, want ErrNoModel", err)
	}
	if _, err := svc.ModelInfo(); !errors.Is(err, ErrNoModel) {
		t.Errorf("ModelInfo err = %v, want ErrNoModel", err)
	}
	h := svc.Health()
	if h.Status != StatusUnhealthy || h.ModelLoaded || h.LoadTimestamp != nil {
		t.Errorf("Health = %+v", h)
	}
}

func TestService_HealthOnBaseline(t *testing.T) {
	t.Parallel()

	svc := baselineService(t, Config{})
	h := svc.Health()
	if h.Status != StatusHealthy || !h.Degraded || !h.ModelLoaded {
		t.Errorf("Health = %+v, want healthy and degraded", h)
	}
	if h.ModelUsed != model.BaselineName || h.LoadTimestamp == nil {
		t.Errorf("Health = %+v", h)
	}
	if h.APIVersion != APIVersion {
		t.Errorf("APIVersion = %q", h.APIVersion)
	}
}

var _ CircuitReporter = (*registry.BreakerRegistry)(nil)

type downRegistry struct{}

func (downRegistry) Fetch(_ context.Context, name string) (*registry.Artifact, error) {
	return nil, fmt.Errorf("%w: %s", registry.ErrUnavailable, name)
}

func TestService_HealthRegistryCircuit(t *testing.T) {
	t.Parallel()

	svc := baselineService(t, Config{})
	if h := svc.Health(); h.RegistryCircuit != "" {
		t.Errorf("RegistryCircuit = %q without a breaker", h.RegistryCircuit)
	}

	breaker := registry.NewBreakerRegistry(downRegistry{}, "serving-health", registry.BreakerConfig{}, zerolog.Nop())
	svc.SetRegistryCircuit(breaker)
	if h := svc.Health(); h.RegistryCircuit != "closed" {
		t.Errorf("RegistryCircuit = %q, want closed", h.RegistryCircuit)
	}
}

func TestService_ModelInfo(t *testing.T) {
	t.Parallel()

	active := activeModel(&countingModel{})
	svc := NewService(&staticSource{active: active}, scoring.NewEngine(scoring.DefaultConfig(), zerolog.Nop()), Config{}, zerolog.Nop())

	info, err := svc.ModelInfo()
	if err != nil {
		t.Fatalf("ModelInfo: %v", err)
	}
	if info.ModelName != "tourism_random_forest" || info.ModelVersion != "7" || info.ModelStage != "Production" {
		t.Errorf("identity = %+v", info)
	}
	if info.FeatureCount != features.Arity || len(info.FeatureNames) != features.Arity {
		t.Errorf("FeatureCount = %d, names = %d", info.FeatureCount, len(info.FeatureNames))
	}
	if info.LayoutVersion != features.LayoutVersion || !info.LastUpdated.Equal(active.LoadedAt) {
		t.Errorf("info = %+v", info)
	}

	info.ModelMetrics["rmse"] = 99
	if active.Metrics["rmse"] != 0.81 {
		t.Error("ModelInfo must copy metrics")
	}
}

func TestService_Reload(t *testing.T) {
	t.Parallel()

	src := &staticSource{active: activeModel(&countingModel{})}
	svc := NewService(src, scoring.NewEngine(scoring.DefaultConfig(), zerolog.Nop()), Config{}, zerolog.Nop())

	res, err := svc.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if res.ModelUsed != "tourism_random_forest" || res.Outcome != resolver.OutcomeResolved || res.Attempts == nil {
		t.Errorf("ReloadResult = %+v", res)
	}

	src.reloadErr = resolver.ErrFatalStartup
	if _, err := svc.Reload(context.Background()); !errors.Is(err, resolver.ErrFatalStartup) {
		t.Errorf("err = %v, want ErrFatalStartup", err)
	}
	if svc.Health().Status != StatusHealthy {
		t.Error("failed reload must keep serving the previous model")
	}
}

func TestService_ReloadOnUnreachableRegistryIsDegraded(t *testing.T) {
	t.Parallel()

	svc := baselineService(t, Config{})
	res, err := svc.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if !res.Degraded || res.Outcome != resolver.OutcomeBaseline {
		t.Errorf("ReloadResult = %+v, want degraded baseline", res)
	}
	if h := svc.Health(); h.Status != StatusHealthy || !h.Degraded {
		t.Errorf("Health = %+v", h)
	}
}

func TestService_ResponseCache(t *testing.T) {
	t.Parallel()

	m := &countingModel{}
	src := &staticSource{active: activeModel(m)}
	svc := NewService(src, scoring.NewEngine(scoring.DefaultConfig(), zerolog.Nop()), Config{}, zerolog.Nop())
	svc.SetCache(cache.NewMemory(16, time.Minute))
	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	ctx := context.Background()

	first, err := svc.Recommend(ctx, scenarioRequest(), 2)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	calls := m.calls.Load()

	clock = clock.Add(time.Minute)
	second, err := svc.Recommend(ctx, scenarioRequest(), 2)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if m.calls.Load() != calls {
		t.Error("second identical request should be served from cache")
	}
	if !second.PredictionTimestamp.Equal(clock) || second.PredictionTimestamp.Equal(first.PredictionTimestamp) {
		t.Errorf("cached PredictionTimestamp = %v, want %v", second.PredictionTimestamp, clock)
	}
	if second.Predictions[0].PlaceID != first.Predictions[0].PlaceID || second.Summary == nil {
		t.Errorf("cached response differs: %+v vs %+v", second, first)
	}

	// a different operation on the same body is a different key
	if _, err := svc.Predict(ctx, scenarioRequest()); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if m.calls.Load() == calls {
		t.Error("predict must not reuse the recommend cache entry")
	}

	// a new model load invalidates by key
	calls = m.calls.Load()
	reloaded := *src.active
	reloaded.LoadedAt = reloaded.LoadedAt.Add(time.Hour)
	src.active = &reloaded
	if _, err := svc.Recommend(ctx, scenarioRequest(), 2); err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if m.calls.Load() == calls {
		t.Error("response computed by the previous model was served after reload")
	}
}
