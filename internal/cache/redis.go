// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/wisata/internal/metrics"
)

// Redis is a ResponseCache shared between replicas.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis connects to cfg.RedisAddr and verifies the connection.
//
//nolint:gocritic // cfg passed by value, defaults are applied to the copy
func NewRedis(ctx context.Context, cfg Config) (*Redis, error) {
	if cfg.RedisAddr == "" {
		return nil, errors.New("redis cache: address is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis cache: ping %s: %w", cfg.RedisAddr, err)
	}

	return &Redis{client: client, ttl: cfg.TTL, prefix: cfg.KeyPrefix}, nil
}

// Get implements ResponseCache.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheLookup(BackendRedis, false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	metrics.RecordCacheLookup(BackendRedis, true)
	return val, true, nil
}

// Set implements ResponseCache.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Backend implements ResponseCache.
func (r *Redis) Backend() string { return BackendRedis }

// Close implements ResponseCache.
func (r *Redis) Close() error {
	return r.client.Close()
}
