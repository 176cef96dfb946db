// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/wisata/internal/metrics"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Defaults applied when the config leaves a field zero.
const (
	DefaultCapacity  = 10000
	DefaultTTL       = 5 * time.Minute
	DefaultKeyPrefix = "wisata:resp:"
)

// ResponseCache stores encoded responses by key. Implementations must be
// safe for concurrent use. A miss is (nil, false, nil); an error means the
// backend could not answer and callers should compute the response anyway.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Backend() string
	Close() error
}

// Config selects and tunes a backend.
type Config struct {
	Backend  string
	TTL      time.Duration
	Capacity int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
}

// New builds the configured backend.
//
//nolint:gocritic // cfg passed by value, defaults are applied to the copy
func New(ctx context.Context, cfg Config) (ResponseCache, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemory(cfg.Capacity, cfg.TTL), nil
	case BackendRedis:
		return NewRedis(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Memory adapts LRUCache to ResponseCache.
type Memory struct {
	lru *LRUCache
}

// NewMemory returns an in-process LRU response cache.
func NewMemory(capacity int, ttl time.Duration) *Memory {
	return &Memory{lru: NewLRUCache(capacity, ttl)}
}

// Get implements ResponseCache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(key)
	metrics.RecordCacheLookup(BackendMemory, ok)
	return v, ok, nil
}

// Set implements ResponseCache.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.lru.Add(key, value)
	return nil
}

// Backend implements ResponseCache.
func (m *Memory) Backend() string { return BackendMemory }

// Close implements ResponseCache.
func (m *Memory) Close() error {
	m.lru.Clear()
	return nil
}

// Sweep drops expired entries; run it periodically for long-lived caches.
func (m *Memory) Sweep() int {
	return m.lru.CleanupExpired()
}

var (
	_ ResponseCache = (*Memory)(nil)
	_ ResponseCache = (*Redis)(nil)
)
