// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/wisata/internal/cache"
	"github.com/tomtom215/wisata/internal/config"
	"github.com/tomtom215/wisata/internal/logging"
	"github.com/tomtom215/wisata/internal/registry"
)

// registryChain is the assembled registry plus the parts main reports on.
type registryChain struct {
	reg     registry.Registry
	breaker *registry.BreakerRegistry
	close   func()
}

// buildRegistry assembles source -> circuit breaker -> snapshot. The
// returned close func releases the snapshot store. A nil registry (type
// "none") makes every resolution land on the baseline.
func buildRegistry(cfg *config.Config) (registryChain, error) {
	noop := func() {}
	rc := cfg.Registry
	logger := logging.WithComponent("registry")

	var reg registry.Registry
	switch rc.Type {
	case config.RegistryNone:
		logger.Warn().Msg("No model registry configured; serving the baseline model")
		return registryChain{close: noop}, nil

	case config.RegistryDir:
		dir, err := registry.NewDirRegistry(rc.Dir)
		if err != nil {
			return registryChain{}, err
		}
		logger.Info().Str("dir", rc.Dir).Msg("Using directory model registry")
		reg = dir

	case config.RegistryMLflow:
		mcfg := registry.DefaultMLflowConfig()
		mcfg.BaseURL = rc.URL
		mcfg.Token = rc.Token
		mcfg.ArtifactFile = rc.ArtifactFile
		mcfg.Stages = rc.Stages
		mcfg.Timeout = rc.FetchTimeout
		client, err := registry.NewMLflowClient(mcfg, logger)
		if err != nil {
			return registryChain{}, err
		}
		logger.Info().Str("url", rc.URL).Strs("stages", rc.Stages).Msg("Using MLflow model registry")
		reg = client

	default:
		return registryChain{}, fmt.Errorf("unknown registry type %q", rc.Type)
	}

	chain := registryChain{close: noop}
	if rc.Breaker.Enabled {
		chain.breaker = registry.NewBreakerRegistry(reg, rc.Type, registry.BreakerConfig{
			MaxRequests:  rc.Breaker.MaxRequests,
			Interval:     rc.Breaker.Interval,
			Timeout:      rc.Breaker.Timeout,
			MinRequests:  rc.Breaker.MinRequests,
			FailureRatio: rc.Breaker.FailureRatio,
		}, logger)
		reg = chain.breaker
	}

	if !rc.SnapshotEnabled {
		chain.reg = reg
		return chain, nil
	}

	store, err := registry.OpenSnapshotStore(rc.SnapshotPath, rc.SnapshotTTL)
	if err != nil {
		return registryChain{}, err
	}
	logger.Info().Str("path", rc.SnapshotPath).Dur("ttl", rc.SnapshotTTL).Msg("Last-known-good model snapshots enabled")
	chain.close = func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing snapshot store")
		}
	}
	chain.reg = registry.NewSnapshotRegistry(reg, store, logger)
	return chain, nil
}

// buildCache returns nil when caching is disabled.
func buildCache(ctx context.Context, cfg *config.Config) (cache.ResponseCache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	return cache.New(ctx, cache.Config{
		Backend:       cfg.Cache.Backend,
		TTL:           cfg.Cache.TTL,
		Capacity:      cfg.Cache.Capacity,
		RedisAddr:     cfg.Cache.RedisAddr,
		RedisPassword: cfg.Cache.RedisPassword,
		RedisDB:       cfg.Cache.RedisDB,
	})
}
