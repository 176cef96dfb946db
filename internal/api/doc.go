// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

/*
Package api provides the HTTP surface of the recommendation service.

Routes:

	GET  /                     service index
	GET  /health               active model, degraded flag, load time
	GET  /metrics              Prometheus exposition
	POST /predict              score places, request order
	POST /recommend?top_k=N    score, rank and truncate
	GET  /model/info           active model metadata
	POST /model/reload         re-resolve the model (admin token)

The prediction routes are also mounted under /api/v1. Successful responses
are the bare payload; every failure uses the APIResponse envelope:

	{"success": false, "error": {"code": "VALIDATION_FAILED",
	 "message": "user.age must be at least 1",
	 "details": {"field": "user.age", "tag": "min", "value": -5},
	 "request_id": "..."}}

Status mapping: validation 400, body too large 413, missing or bad token
401, wrong role 403, throttled reload or rate limit 429, no model 503,
deadline exceeded 504, failed reload 500.
*/
package api
