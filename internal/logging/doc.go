// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

// Package logging provides the process-wide zerolog logger.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json", Service: "wisata"})
//	logging.Info().Msg("Server starting")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Registry fetch failed")
//
// Components derive their own logger once and keep it:
//
//	logger := logging.WithComponent("resolver")
//
// # Configuration
//
// Environment Variables (mapped by internal/config):
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false (default: false)
//
// # slog bridge
//
// SlogHandler adapts zerolog to log/slog for libraries that require an
// *slog.Logger, such as the suture supervisor event hook.
//
// Always terminate log chains with .Msg() or .Send(); an unterminated event
// is never written.
package logging
