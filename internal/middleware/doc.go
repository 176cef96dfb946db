// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

/*
Package middleware provides transport-level HTTP middleware shared by the
API router.

  - RequestID: assigns or propagates X-Request-ID and stores it in the
    request context for logging and error bodies
  - PrometheusMetrics: request count, latency and in-flight gauge, labelled
    by chi route pattern
  - Compression: gzip for responses of at least MinCompressSize bytes

All middleware uses the func(http.Handler) http.Handler shape so it plugs
directly into chi's r.Use.
*/
package middleware
