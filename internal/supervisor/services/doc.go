// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

// Package services adapts long-running components to suture.Service:
// the HTTP server, the periodic model reload and the response cache
// sweeper. Each Serve returns ctx.Err() on cancellation and an error only
// for failures suture should restart.
package services
