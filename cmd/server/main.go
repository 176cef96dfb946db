// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/wisata/internal/api"
	"github.com/tomtom215/wisata/internal/auth"
	"github.com/tomtom215/wisata/internal/config"
	"github.com/tomtom215/wisata/internal/features"
	"github.com/tomtom215/wisata/internal/logging"
	"github.com/tomtom215/wisata/internal/resolver"
	"github.com/tomtom215/wisata/internal/scoring"
	"github.com/tomtom215/wisata/internal/serving"
	"github.com/tomtom215/wisata/internal/supervisor"
	"github.com/tomtom215/wisata/internal/supervisor/services"
)

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	issueToken := flag.String("issue-token", "", "print an admin token for `subject` and exit")
	tokenTTL := flag.Duration("token-ttl", auth.DefaultTokenTTL, "lifetime of the token printed by -issue-token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if *issueToken != "" {
		if err := printToken(cfg.Security.JWTSecret, *issueToken, *tokenTTL); err != nil {
			logging.Fatal().Err(err).Msg("Failed to issue token")
		}
		return
	}

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("registry", cfg.Registry.Type).
		Strs("priority", cfg.Model.Priority).
		Msg("Starting Wisata recommendation service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chain, err := buildRegistry(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize model registry")
	}
	defer chain.close()

	manager := resolver.NewManager(chain.reg, resolver.Config{
		Priority:          cfg.Model.Priority,
		FetchTimeout:      cfg.Registry.FetchTimeout,
		MinReloadInterval: cfg.Model.MinReloadInterval,
	}, logging.WithComponent("resolver"))

	// A registry outage is not fatal here: resolution falls back to the
	// baseline. Only a failed baseline stops startup.
	startCtx, cancelStart := context.WithTimeout(ctx, startupTimeout(cfg))
	res, err := manager.Start(startCtx)
	cancelStart()
	if err != nil {
		if errors.Is(err, resolver.ErrFatalStartup) {
			logging.Fatal().Err(err).Msg("No model could be constructed, refusing to start")
		}
		logging.Fatal().Err(err).Msg("Model resolution aborted")
	}
	for _, a := range res.Attempts {
		logging.Debug().
			Str("model", a.Name).
			Str("result", a.Result).
			Dur("duration", a.Duration).
			Str("error", a.Error).
			Msg("Startup resolution attempt")
	}
	logging.Info().
		Str("model", res.Active.Name).
		Str("version", res.Active.Version).
		Bool("degraded", res.Active.Degraded).
		Msg("Active model published")

	engine := scoring.NewEngine(scoring.Config{
		ParallelThreshold: cfg.Serving.ParallelThreshold,
		Workers:           cfg.Serving.Workers,
	}, logging.WithComponent("scoring"))

	svc := serving.NewService(manager, engine, serving.Config{
		MaxCandidates:  cfg.Serving.MaxCandidates,
		DefaultTopK:    cfg.Serving.DefaultTopK,
		MaxTopK:        cfg.Serving.MaxTopK,
		RequestTimeout: cfg.Serving.RequestTimeout,
	}, logging.WithComponent("serving"))
	svc.SetBuilder(features.NewBuilder(cfg.Model.Priors))
	if chain.breaker != nil {
		svc.SetRegistryCircuit(chain.breaker)
	}

	tree, err := supervisor.NewSupervisorTree(
		logging.NewSlogLogger(logging.WithComponent("supervisor")),
		supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout},
	)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	responseCache, err := buildCache(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize response cache")
	}
	if responseCache != nil {
		defer func() {
			if err := responseCache.Close(); err != nil {
				logging.Err(err).Msg("Error closing response cache")
			}
		}()
		svc.SetCache(responseCache)
		if sweeper, ok := responseCache.(services.Sweeper); ok {
			tree.AddModelService(services.NewSweepService(sweeper, time.Minute, logging.WithComponent("cache")))
		}
		logging.Info().Str("backend", responseCache.Backend()).Dur("ttl", cfg.Cache.TTL).Msg("Response cache enabled")
	}

	if cfg.Model.ReloadInterval > 0 {
		tree.AddModelService(services.NewReloadService(svc, services.ReloadServiceConfig{
			Interval: cfg.Model.ReloadInterval,
			Timeout:  startupTimeout(cfg),
		}, logging.WithComponent("reload")))
	}

	var jwtManager *auth.JWTManager
	if cfg.Security.JWTSecret != "" {
		jwtManager, err = auth.NewJWTManager(cfg.Security.JWTSecret, auth.DefaultTokenTTL)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
		logging.Info().Msg("Model reload requires an admin bearer token")
	} else {
		logging.Warn().Msg("JWT_SECRET is not set: POST /model/reload is open to any caller")
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	if cfg.HasWildcardCORS() && cfg.IsProduction() {
		logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*); restrict it to the dashboard origin in production")
	}

	chiMW := api.NewChiMiddlewareFromSecurity(
		cfg.Security.CORSOrigins,
		cfg.Security.RateLimitReqs,
		cfg.Security.RateLimitWindow,
		cfg.Security.RateLimitDisabled,
	)
	handler := api.NewHandler(svc, api.HandlerConfig{ReloadTimeout: startupTimeout(cfg)}, logging.WithComponent("api"))
	router := api.NewRouter(handler, chiMW, jwtManager, logging.WithComponent("http"))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout, logging.WithComponent("http")))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Err(err).Msg("Supervisor tree stopped with error")
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within the shutdown timeout")
		}
	}
	logging.Info().Msg("Wisata stopped")
}

// startupTimeout bounds one full resolution: every priority name may take
// up to the fetch timeout before the baseline is built.
func startupTimeout(cfg *config.Config) time.Duration {
	n := len(cfg.Model.Priority)
	if n == 0 {
		n = 1
	}
	return time.Duration(n+1) * cfg.Registry.FetchTimeout
}

func printToken(secret, subject string, ttl time.Duration) error {
	manager, err := auth.NewJWTManager(secret, ttl)
	if err != nil {
		return err
	}
	token, err := manager.GenerateToken(subject, auth.RoleAdmin)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, token)
	return err
}
