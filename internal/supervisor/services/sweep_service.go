// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper drops expired entries and reports how many. *cache.Memory
// implements it.
type Sweeper interface {
	Sweep() int
}

// SweepService evicts expired response-cache entries on an interval so
// idle keys don't hold memory until LRU pressure pushes them out.
type SweepService struct {
	sweeper  Sweeper
	interval time.Duration
	logger   zerolog.Logger
}

// NewSweepService creates the service. interval defaults to one minute.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSweepService(sweeper Sweeper, interval time.Duration, logger zerolog.Logger) *SweepService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SweepService{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger.With().Str("service", "cache-sweep").Logger(),
	}
}

// Serve implements suture.Service.
func (s *SweepService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := s.sweeper.Sweep(); n > 0 {
				s.logger.Debug().Int("evicted", n).Msg("expired cache entries removed")
			}
		}
	}
}

func (s *SweepService) String() string {
	return "cache-sweep"
}
