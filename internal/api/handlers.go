// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/wisata/internal/auth"
	"github.com/tomtom215/wisata/internal/logging"
	"github.com/tomtom215/wisata/internal/ranking"
	"github.com/tomtom215/wisata/internal/serving"
)

// Service is the serving surface the handlers need. *serving.Service
// implements it.
type Service interface {
	Predict(ctx context.Context, req *serving.Request) (ranking.Response, error)
	Recommend(ctx context.Context, req *serving.Request, topK int) (ranking.Response, error)
	DefaultTopK() int
	Health() serving.Health
	ModelInfo() (serving.ModelInfo, error)
	Reload(ctx context.Context) (serving.ReloadResult, error)
}

// HandlerConfig bounds request handling at the HTTP layer.
type HandlerConfig struct {
	// MaxBodyBytes caps predict/recommend bodies.
	MaxBodyBytes int64

	// ReloadTimeout bounds one reload triggered over HTTP. It is applied
	// to a context detached from the client connection so a disconnect
	// does not abort a reload halfway.
	ReloadTimeout time.Duration
}

// DefaultHandlerConfig returns the defaults.
func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		MaxBodyBytes:  1 << 20,
		ReloadTimeout: time.Minute,
	}
}

// Handler contains dependencies for API handlers
type Handler struct {
	svc       Service
	cfg       HandlerConfig
	logger    zerolog.Logger
	startTime time.Time
}

// NewHandler creates the API handlers.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(svc Service, cfg HandlerConfig, logger zerolog.Logger) *Handler {
	def := DefaultHandlerConfig()
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if cfg.ReloadTimeout <= 0 {
		cfg.ReloadTimeout = def.ReloadTimeout
	}
	return &Handler{
		svc:       svc,
		cfg:       cfg,
		logger:    logger.With().Str("component", "api").Logger(),
		startTime: time.Now(),
	}
}

// IndexResponse is the body of GET /.
type IndexResponse struct {
	Message       string  `json:"message"`
	Version       string  `json:"version"`
	Status        string  `json:"status"`
	Health        string  `json:"health"`
	Metrics       string  `json:"metrics"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Index describes the service.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	status := "operational"
	if h.svc.Health().Status != serving.StatusHealthy {
		status = "starting"
	}
	NewResponseWriter(w, r).OK(IndexResponse{
		Message:       "Tourism Recommendation API",
		Version:       serving.APIVersion,
		Status:        status,
		Health:        "/health",
		Metrics:       "/metrics",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	})
}

// Health reports the active model. It is 200 while any model, including
// the baseline, is serving and 503 before the first model is published.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	health := h.svc.Health()
	status := http.StatusOK
	if health.Status != serving.StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	NewResponseWriter(w, r).JSON(status, health)
}

// Predict scores every place and returns them in request order.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r, h.cfg.MaxBodyBytes)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	resp, err := h.svc.Predict(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).OK(resp)
}

// Recommend scores, ranks and truncates to ?top_k.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	params, err := parseRecommendParams(r, h.svc.DefaultTopK())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	req, err := decodeRequest(w, r, h.cfg.MaxBodyBytes)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	resp, err := h.svc.Recommend(r.Context(), req, params.TopK)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).OK(resp)
}

// ModelInfo returns metadata of the active model.
func (h *Handler) ModelInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.ModelInfo()
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).OK(info)
}

// ReloadModel re-resolves the active model and blocks until the swap has
// happened or failed.
func (h *Handler) ReloadModel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.cfg.ReloadTimeout)
	defer cancel()

	subject := "anonymous"
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		subject = claims.Subject
	}
	logging.Ctx(r.Context()).Info().Str("subject", subject).Msg("model reload requested")

	result, err := h.svc.Reload(ctx)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).OK(result)
}

// NotFound and MethodNotAllowed keep chi's fallbacks in the envelope.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusNotFound, ErrCodeNotFound, "no route for "+r.Method+" "+r.URL.Path)
}

func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method "+r.Method+" not allowed")
}
