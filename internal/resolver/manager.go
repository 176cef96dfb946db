// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/tomtom215/wisata/internal/metrics"
	"github.com/tomtom215/wisata/internal/registry"
)

var (
	// ErrNotStarted is returned by Reload before Start has published a model.
	ErrNotStarted = errors.New("model manager not started")

	// ErrReloadThrottled is returned when reloads arrive faster than the
	// configured minimum interval.
	ErrReloadThrottled = errors.New("model reload throttled")
)

// Config configures a Manager.
type Config struct {
	// Priority is the ordered list of registry model names.
	Priority []string

	FetchTimeout time.Duration

	// MinReloadInterval throttles Reload. Zero disables throttling.
	MinReloadInterval time.Duration

	Baseline BaselineFunc
}

// Manager owns the process-wide active model. Readers call Current and get
// a complete, immutable snapshot; Reload resolves a replacement and swaps it
// in atomically. No lock is held while a model is in use.
type Manager struct {
	reg      registry.Registry
	priority []string
	opts     Options

	active  atomic.Pointer[ActiveModel]
	group   singleflight.Group
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewManager creates a manager. reg may be nil, in which case the service
// always runs on the baseline.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewManager(reg registry.Registry, cfg Config, logger zerolog.Logger) *Manager {
	priority := cfg.Priority
	if len(priority) == 0 {
		priority = DefaultPriority
	}
	priority = append([]string(nil), priority...)

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.MinReloadInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.MinReloadInterval), 1)
	}

	l := logger.With().Str("component", "model-resolver").Logger()
	return &Manager{
		reg:      reg,
		priority: priority,
		opts: Options{
			FetchTimeout: cfg.FetchTimeout,
			Baseline:     cfg.Baseline,
			Logger:       l,
		},
		limiter: limiter,
		logger:  l,
	}
}

// Start performs the initial resolution and publishes the result. It fails
// only with ErrFatalStartup or when ctx is done before resolution finishes.
func (m *Manager) Start(ctx context.Context) (Resolution, error) {
	res, err := Resolve(ctx, m.reg, m.priority, m.opts)
	if err != nil {
		return res, err
	}
	m.publish(res.Active)
	return res, nil
}

// Current returns the active model, or nil before Start.
func (m *Manager) Current() *ActiveModel {
	return m.active.Load()
}

// Priority returns a copy of the configured lookup order.
func (m *Manager) Priority() []string {
	return append([]string(nil), m.priority...)
}

// Reload re-runs resolution and swaps the result in. Concurrent callers
// share one resolution. On failure the previous model stays active.
//
// The resolution itself runs detached from ctx so that one impatient caller
// cannot abort a reload other callers are waiting on; ctx only bounds how
// long this caller waits.
func (m *Manager) Reload(ctx context.Context) (Resolution, error) {
	if m.active.Load() == nil {
		return Resolution{}, ErrNotStarted
	}
	if !m.limiter.Allow() {
		metrics.RecordModelReload("throttled")
		return Resolution{}, ErrReloadThrottled
	}

	ch := m.group.DoChan("reload", func() (interface{}, error) {
		return m.reload(context.WithoutCancel(ctx))
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return Resolution{}, r.Err
		}
		return r.Val.(Resolution), nil
	case <-ctx.Done():
		return Resolution{}, fmt.Errorf("waiting for model reload: %w", ctx.Err())
	}
}

func (m *Manager) reload(ctx context.Context) (Resolution, error) {
	prev := m.active.Load()
	start := time.Now()

	res, err := Resolve(ctx, m.reg, m.priority, m.opts)
	if err != nil {
		metrics.RecordModelReload("failed")
		m.logger.Error().
			Err(err).
			Str("kept_model", prev.Name).
			Str("kept_version", prev.Version).
			Msg("model reload failed, keeping previous model")
		return res, fmt.Errorf("reload model: %w", err)
	}

	m.publish(res.Active)
	metrics.RecordModelReload(string(res.Outcome))
	m.logger.Info().
		Str("previous_model", prev.Name).
		Str("previous_version", prev.Version).
		Str("model", res.Active.Name).
		Str("version", res.Active.Version).
		Bool("degraded", res.Active.Degraded).
		Dur("duration", time.Since(start)).
		Msg("model reloaded")
	return res, nil
}

func (m *Manager) publish(a *ActiveModel) {
	m.active.Store(a)
	metrics.SetActiveModel(a.Name, a.Version, a.Degraded, a.LoadedAt)
}
