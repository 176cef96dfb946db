// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/wisata/internal/auth"
	"github.com/tomtom215/wisata/internal/model"
	"github.com/tomtom215/wisata/internal/ranking"
	"github.com/tomtom215/wisata/internal/resolver"
	"github.com/tomtom215/wisata/internal/scoring"
	"github.com/tomtom215/wisata/internal/serving"
)

const testSecret = "api_test_secret_that_is_longer_than_32_chars"

const scenarioBody = `{
	"user": {"age": 28, "preferred_category": "Culture", "budget_range": "medium"},
	"places": [
		{"place_id": "a", "category": "Culture", "city": "Jakarta", "price": 25000, "average_rating": 4.2, "visit_duration_minutes": 120},
		{"place_id": "b", "category": "Marine", "city": "Bali", "price": 150000, "average_rating": 4.8, "visit_duration_minutes": 180}
	]
}`

type testServer struct {
	handler http.Handler
	jwt     *auth.JWTManager
}

type serverOptions struct {
	svc       Service
	withAuth  bool
	rateLimit int
	handler   HandlerConfig
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()

	svc := opts.svc
	if svc == nil {
		mgr := resolver.NewManager(nil, resolver.Config{}, zerolog.Nop())
		if _, err := mgr.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		svc = serving.NewService(mgr, scoring.NewEngine(scoring.DefaultConfig(), zerolog.Nop()), serving.DefaultConfig(), zerolog.Nop())
	}

	var jwtManager *auth.JWTManager
	if opts.withAuth {
		var err error
		jwtManager, err = auth.NewJWTManager(testSecret, time.Hour)
		if err != nil {
			t.Fatalf("NewJWTManager: %v", err)
		}
	}

	limit := opts.rateLimit
	chiMW := NewChiMiddlewareFromSecurity([]string{"*"}, limit, time.Minute, limit == 0)
	router := NewRouter(NewHandler(svc, opts.handler, zerolog.Nop()), chiMW, jwtManager, zerolog.Nop())
	return &testServer{handler: router.SetupChi(), jwt: jwtManager}
}

func (s *testServer) do(method, target, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	if resp.Success || resp.Error == nil {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	return resp
}

func TestHealth_BaselineIsHealthyAndDegraded(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, serverOptions{})
	for _, path := range []string{"/health", "/api/v1/health"} {
		rec := srv.do(http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", path, rec.Code)
		}
		var h serving.Health
		if err := json.Unmarshal(rec.Body.Bytes(), &h); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if h.Status != serving.StatusHealthy || !h.Degraded || h.ModelUsed != model.BaselineName {
			t.Errorf("%s: health = %+v", path, h)
		}
		if h.LoadTimestamp == nil {
			t.Errorf("%s: load_timestamp missing", path)
		}
	}
}

func TestIndex(t *testing.T) {
	t.Parallel()

	rec := newTestServer(t, serverOptions{}).do(http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var idx IndexResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &idx); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if idx.Version != serving.APIVersion || idx.Status != "operational" {
		t.Errorf("index = %+v", idx)
	}
}

func TestPredict(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, serverOptions{})
	for _, path := range []string{"/predict", "/api/v1/predict"} {
		rec := srv.do(http.MethodPost, path, scenarioBody, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d body = %s", path, rec.Code, rec.Body.String())
		}
		var resp ranking.Response
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(resp.Predictions) != 2 || resp.Predictions[0].PlaceID != "a" || resp.Predictions[1].PlaceID != "b" {
			t.Errorf("%s: predictions not in request order: %+v", path, resp.Predictions)
		}
		if resp.TopRecommendation == nil || resp.TopRecommendation.Rank != 1 {
			t.Errorf("%s: top_recommendation = %+v", path, resp.TopRecommendation)
		}
		if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s: security headers missing", path)
		}
	}
}

func TestRecommend_TopK(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, serverOptions{})

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantCount int
	}{
		{"default", "", http.StatusOK, 2},
		{"one", "?top_k=1", http.StatusOK, 1},
		{"more than candidates", "?top_k=40", http.StatusOK, 2},
		{"zero", "?top_k=0", http.StatusBadRequest, 0},
		{"negative", "?top_k=-3", http.StatusBadRequest, 0},
		{"not a number", "?top_k=abc", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := srv.do(http.MethodPost, "/recommend"+tt.query, scenarioBody, nil)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				resp := decodeError(t, rec)
				if resp.Error.Code != ErrCodeValidationFailed {
					t.Errorf("code = %q", resp.Error.Code)
				}
				return
			}
			var resp ranking.Response
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(resp.Predictions) != tt.wantCount {
				t.Errorf("len(predictions) = %d, want %d", len(resp.Predictions), tt.wantCount)
			}
			if resp.Summary == nil || resp.Summary.TotalPlacesEvaluated != 2 {
				t.Errorf("summary = %+v", resp.Summary)
			}
		})
	}
}

func TestRecommend_Deterministic(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, serverOptions{})
	var first []string
	for i := 0; i < 5; i++ {
		rec := srv.do(http.MethodPost, "/api/v1/recommend?top_k=2", scenarioBody, nil)
		var resp ranking.Response
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		var order []string
		for _, p := range resp.Predictions {
			order = append(order, p.PlaceID)
		}
		if first == nil {
			first = order
			continue
		}
		if fmt.Sprint(order) != fmt.Sprint(first) {
			t.Fatalf("run %d order %v != %v", i, order, first)
		}
	}
}

func TestPredict_RequestErrors(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, serverOptions{handler: HandlerConfig{MaxBodyBytes: 2048}})

	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantError string
		wantField string
	}{
		{"empty body", "", http.StatusBadRequest, ErrCodeValidationFailed, "body"},
		{"malformed", `{"user":`, http.StatusBadRequest, ErrCodeBadRequest, ""},
		{"age out of range", `{"user":{"age":-5},"places":[]}`, http.StatusBadRequest, ErrCodeValidationFailed, "user.age"},
		{"wrong type", `{"user":{"age":"old"},"places":[]}`, http.StatusBadRequest, "", ""},
		{"duplicate place ids", `{"user":{"age":30},"places":[
			{"place_id":"x","price":1,"average_rating":3,"visit_duration_minutes":10},
			{"place_id":"x","price":1,"average_rating":3,"visit_duration_minutes":10}]}`,
			http.StatusBadRequest, ErrCodeValidationFailed, "places"},
		{"too large", `{"user":{"age":30},"places":[],"pad":"` + strings.Repeat("x", 4096) + `"}`,
			http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := srv.do(http.MethodPost, "/predict", tt.body, http.Header{"X-Request-Id": {"trace-123"}})
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			resp := decodeError(t, rec)
			if tt.wantError != "" && resp.Error.Code != tt.wantError {
				t.Errorf("code = %q, want %q", resp.Error.Code, tt.wantError)
			}
			if resp.Error.RequestID != "trace-123" {
				t.Errorf("request_id = %q, want propagated header", resp.Error.RequestID)
			}
			if tt.wantField == "" {
				return
			}
			details, _ := resp.Error.Details.(map[string]interface{})
			if field, _ := details["field"].(string); field != tt.wantField {
				t.Errorf("details.field = %v, want %q", details["field"], tt.wantField)
			}
		})
	}
}

func TestPredict_EmptyPlaces(t *testing.T) {
	t.Parallel()

	rec := newTestServer(t, serverOptions{}).do(http.MethodPost, "/predict", `{"user":{"age":40},"places":[]}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{`"predictions":[]`, `"top_recommendation":null`, `"total_places_evaluated":0`} {
		if !strings.Contains(body, want) {
			t.Errorf("body %s missing %s", body, want)
		}
	}
}

func TestModelInfo(t *testing.T) {
	t.Parallel()

	rec := newTestServer(t, serverOptions{}).do(http.MethodGet, "/api/v1/model/info", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var info serving.ModelInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.ModelName != model.BaselineName || info.FeatureCount == 0 || len(info.FeatureNames) != info.FeatureCount {
		t.Errorf("info = %+v", info)
	}
}

func TestReload_Auth(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, serverOptions{withAuth: true})
	admin, _ := srv.jwt.GenerateToken("ops-bot", auth.RoleAdmin)
	viewer, _ := srv.jwt.GenerateToken("dashboard", "viewer")

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantErr  string
	}{
		{"missing token", "", http.StatusUnauthorized, ErrCodeUnauthorized},
		{"bad token", "Bearer garbage", http.StatusUnauthorized, ErrCodeUnauthorized},
		{"viewer", "Bearer " + viewer, http.StatusForbidden, ErrCodeForbidden},
		{"admin", "Bearer " + admin, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := http.Header{}
			if tt.header != "" {
				h.Set("Authorization", tt.header)
			}
			rec := srv.do(http.MethodPost, "/model/reload", "", h)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantErr != "" {
				if got := decodeError(t, rec).Error.Code; got != tt.wantErr {
					t.Errorf("code = %q, want %q", got, tt.wantErr)
				}
				return
			}
			var result serving.ReloadResult
			if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if result.ModelUsed != model.BaselineName || !result.Degraded {
				t.Errorf("reload result = %+v", result)
			}
		})
	}
}

func TestReload_OpenWithoutSecret(t *testing.T) {
	t.Parallel()

	rec := newTestServer(t, serverOptions{}).do(http.MethodPost, "/api/v1/model/reload", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

// stubService returns fixed errors so every mapping can be checked.
type stubService struct {
	err error
}

func (s stubService) Predict(context.Context, *serving.Request) (ranking.Response, error) {
	return ranking.Response{}, s.err
}

func (s stubService) Recommend(context.Context, *serving.Request, int) (ranking.Response, error) {
	return ranking.Response{}, s.err
}

func (s stubService) DefaultTopK() int { return 5 }

func (s stubService) Health() serving.Health {
	return serving.Health{Status: serving.StatusUnhealthy, ModelUsed: "none"}
}

func (s stubService) ModelInfo() (serving.ModelInfo, error) { return serving.ModelInfo{}, s.err }

func (s stubService) Reload(context.Context) (serving.ReloadResult, error) {
	return serving.ReloadResult{}, s.err
}

func TestServiceErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		method   string
		path     string
		wantCode int
		wantErr  string
	}{
		{"timeout", serving.ErrTimeout, http.MethodPost, "/predict", http.StatusGatewayTimeout, ErrCodeTimeout},
		{"no model", serving.ErrNoModel, http.MethodPost, "/recommend", http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{"model info without model", serving.ErrNoModel, http.MethodGet, "/model/info", http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{"throttled reload", resolver.ErrReloadThrottled, http.MethodPost, "/model/reload", http.StatusTooManyRequests, ErrCodeTooManyRequests},
		{"fatal reload", fmt.Errorf("wrap: %w", resolver.ErrFatalStartup), http.MethodPost, "/model/reload", http.StatusInternalServerError, ErrCodeInternalError},
		{"client canceled scoring", fmt.Errorf("scoring with m: %w", context.Canceled), http.MethodPost, "/predict", 499, ErrCodeBadRequest},
		{"unknown", fmt.Errorf("disk on fire"), http.MethodPost, "/predict", http.StatusInternalServerError, ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newTestServer(t, serverOptions{svc: stubService{err: tt.err}})
			rec := srv.do(tt.method, tt.path, scenarioBody, nil)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			resp := decodeError(t, rec)
			if resp.Error.Code != tt.wantErr {
				t.Errorf("code = %q, want %q", resp.Error.Code, tt.wantErr)
			}
			if strings.Contains(resp.Error.Message, "disk on fire") {
				t.Error("internal error text leaked to client")
			}
		})
	}
}

func TestHealth_NoModel(t *testing.T) {
	t.Parallel()

	rec := newTestServer(t, serverOptions{svc: stubService{}}).do(http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, serverOptions{rateLimit: 2})
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, srv.do(http.MethodPost, "/predict", scenarioBody, nil).Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	// The /api/v1 mount shares the same quota.
	rec := srv.do(http.MethodPost, "/api/v1/predict", scenarioBody, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("prefixed route status = %d, want 429", rec.Code)
	}
	if decodeError(t, rec).Error.Code != ErrCodeTooManyRequests {
		t.Error("rate limit rejection not in envelope")
	}

	if got := srv.do(http.MethodGet, "/health", "", nil).Code; got != http.StatusOK {
		t.Errorf("health must not be rate limited, got %d", got)
	}
}

func TestRouting_Fallbacks(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, serverOptions{})

	rec := srv.do(http.MethodGet, "/api/v1/nope", "", nil)
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Error.Code != ErrCodeNotFound {
		t.Errorf("404: status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = srv.do(http.MethodGet, "/predict", "", nil)
	if rec.Code != http.StatusMethodNotAllowed || decodeError(t, rec).Error.Code != ErrCodeMethodNotAllowed {
		t.Errorf("405: status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, serverOptions{})
	srv.do(http.MethodPost, "/predict", scenarioBody, nil)

	rec := srv.do(http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("/predict")) {
		t.Error("metrics output does not mention the predict route")
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, serverOptions{})
	rec := srv.do(http.MethodOptions, "/api/v1/recommend", "", http.Header{
		"Origin":                        {"http://dashboard.local"},
		"Access-Control-Request-Method": {"POST"},
	})
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Errorf("preflight missing Allow-Origin, status %d", rec.Code)
	}
}
