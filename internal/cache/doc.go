// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

// Package cache provides the optional response cache for predict and
// recommend.
//
// Two backends implement ResponseCache:
//
//   - memory: an O(1) LRU with TTL, private to the process
//   - redis: go-redis v9, shared between replicas
//
// Keys are produced by GenerateKey from the request plus the identity of the
// active model (name, version, load time), so a reload naturally stops
// serving responses computed by the previous model; no explicit
// invalidation is needed.
//
//	c, err := cache.New(ctx, cache.Config{Backend: "memory", TTL: time.Minute})
//	key, _ := cache.GenerateKey("recommend", keyParts)
//	if body, ok, _ := c.Get(ctx, key); ok {
//	    // serve body
//	}
package cache
