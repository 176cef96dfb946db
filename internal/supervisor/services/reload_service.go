// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/wisata/internal/serving"
)

// ModelReloader re-resolves the active model. *serving.Service implements it.
type ModelReloader interface {
	Reload(ctx context.Context) (serving.ReloadResult, error)
}

// ReloadServiceConfig configures periodic model reloads.
type ReloadServiceConfig struct {
	// Interval between reloads. Must be positive; main only registers the
	// service when model.reload_interval is set.
	Interval time.Duration

	// Timeout bounds one reload.
	Timeout time.Duration
}

// ReloadService reloads the model on a fixed interval so a newly promoted
// registry version is picked up without an operator call. A failed reload
// keeps the previous model and is retried on the next tick; it never
// stops the service.
type ReloadService struct {
	reloader ModelReloader
	config   ReloadServiceConfig
	logger   zerolog.Logger
}

// NewReloadService creates the service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewReloadService(reloader ModelReloader, cfg ReloadServiceConfig, logger zerolog.Logger) *ReloadService {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	return &ReloadService{
		reloader: reloader,
		config:   cfg,
		logger:   logger.With().Str("service", "model-reload").Logger(),
	}
}

// Serve implements suture.Service.
func (s *ReloadService) Serve(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.config.Interval).Msg("periodic model reload enabled")

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.reload(ctx)
		}
	}
}

func (s *ReloadService) reload(ctx context.Context) {
	reloadCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	start := time.Now()
	result, err := s.reloader.Reload(reloadCtx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("scheduled reload failed, keeping current model")
		return
	}
	s.logger.Debug().
		Str("model", result.ModelUsed).
		Bool("degraded", result.Degraded).
		Dur("duration", time.Since(start)).
		Msg("scheduled reload complete")
}

func (s *ReloadService) String() string {
	return "model-reload"
}
