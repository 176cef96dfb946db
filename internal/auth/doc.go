// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

// Package auth guards administrative endpoints (model reload) with HS256
// bearer tokens.
//
// Tokens are issued out of band, for example with
//
//	wisata -issue-token ops-bot
//
// and presented as "Authorization: Bearer <token>". When JWT_SECRET is not
// configured the middleware lets every request through; config validation
// refuses that combination in production.
package auth
