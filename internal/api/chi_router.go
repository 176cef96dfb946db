// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tomtom215/wisata/internal/auth"
	"github.com/tomtom215/wisata/internal/middleware"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	auth          *auth.Middleware
	logger        zerolog.Logger
}

// NewRouter creates a router. A nil jwtManager leaves /model/reload open.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRouter(handler *Handler, chiMW *ChiMiddleware, jwtManager *auth.JWTManager, logger zerolog.Logger) *Router {
	if chiMW == nil {
		chiMW = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		chiMiddleware: chiMW,
		auth:          auth.NewMiddleware(jwtManager, respondAuthError, logger),
		logger:        logger,
	}
}

// SetupChi builds the route tree.
//
// The prediction routes are served both at the root, where the dashboard
// calls them, and under /api/v1.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(router.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(router.handler.NotFound)
	r.MethodNotAllowed(router.handler.MethodNotAllowed)

	r.Get("/", router.handler.Index)
	r.Get("/health", router.handler.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// One limiter for both mounts so the prefix can't double a client's quota.
	serving := router.servingRoutes(router.chiMiddleware.RateLimit())
	r.Group(serving)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", router.handler.Health)
		r.Group(serving)
	})

	return r
}

func (router *Router) servingRoutes(rateLimit func(http.Handler) http.Handler) func(chi.Router) {
	return func(r chi.Router) {
		r.Use(rateLimit)
		r.Use(APISecurityHeaders())
		r.Use(middleware.Compression)

		r.Post("/predict", router.handler.Predict)
		r.Post("/recommend", router.handler.Recommend)
		r.Get("/model/info", router.handler.ModelInfo)
		r.With(router.auth.RequireRole(auth.RoleAdmin)).Post("/model/reload", router.handler.ReloadModel)
	}
}
