// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared by the process (it caches struct
// metadata). Error field names come from json tags and include the full
// path into nested slices, so clients see "places[2].average_rating" rather
// than Go field names.
//
// # Usage
//
//	type PredictRequest struct {
//	    User   features.UserProfile `json:"user"`
//	    Places []features.Place     `json:"places" validate:"unique=PlaceID,dive"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    // 400 with apiErr.Code == "VALIDATION_FAILED"
//	}
//
// Constraints that depend on configuration (the candidate cap, for example)
// are reported through NewRequestValidationError so every validation failure
// reaches the client in the same shape.
package validation
