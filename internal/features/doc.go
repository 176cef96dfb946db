// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

// Package features turns a (user profile, candidate place) pair into the
// fixed-arity numeric vector consumed by every model kind.
//
// # Layout
//
// The vector layout is a contract with the trained models. Its shape is
// identified by LayoutVersion and its field order by Names. Models record
// the layout version they were trained against and the resolver refuses to
// activate a model whose version differs.
//
// The first 22 fields carry prior statistics (user, place, category, city
// and global rating statistics plus price interactions). The remaining
// fields encode the request-specific signals:
//
//   - category_match, city_match: 1 match, 0 mismatch, 0.5 no preference
//   - budget_compat: distance of price from the budget band centre in (0,1]
//   - rating_norm: average rating over 5
//   - duration_short/medium/long: one-hot visit duration bucket
//   - age_category: normalized age times category_match
//   - price_norm, duration_log: log-scaled standalone numeric features
//
// # Purity
//
// Building a vector performs no I/O, keeps no state and never fails on
// validated input. Missing optional user fields mean "no preference".
//
// # Usage
//
//	vec := features.BuildFeatureVector(user, place)
//	vecs := features.DefaultBuilder().BuildBatch(user, places)
package features
