// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

// Package serving is the request orchestrator. Every predict or recommend
// call runs the same pipeline against one snapshot of the active model:
//
//	validate -> features.BuildBatch -> scoring.Engine.Score -> ranking
//
// Predict returns every candidate in request order with its rank attached.
// Recommend returns the best top_k with a recommendation_summary block.
// Health, ModelInfo and Reload expose the model lifecycle owned by
// resolver.Manager.
//
// Errors callers should distinguish:
//
//   - *validation.RequestValidationError: bad input, nothing was scored
//   - ErrTimeout: the per-request deadline passed
//   - ErrNoModel: called before the resolver published a model
//   - resolver.ErrFatalStartup / ErrReloadThrottled: from Reload only
package serving
