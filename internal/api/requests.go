// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wisata/internal/serving"
	"github.com/tomtom215/wisata/internal/validation"
)

// RecommendParams are the query parameters of POST /api/v1/recommend.
type RecommendParams struct {
	TopK int `json:"top_k" validate:"min=1"`
}

// parseRecommendParams reads top_k, defaulting to defaultTopK when absent.
func parseRecommendParams(r *http.Request, defaultTopK int) (RecommendParams, error) {
	params := RecommendParams{TopK: defaultTopK}

	raw := r.URL.Query().Get("top_k")
	if raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return params, validation.NewRequestValidationError(
				"top_k", "int", "", raw, "top_k must be an integer")
		}
		params.TopK = n
	}

	if verr := validation.ValidateStruct(&params); verr != nil {
		return params, verr
	}
	return params, nil
}

// decodeRequest reads a predict/recommend body. Unknown fields are ignored;
// type mismatches are reported as validation errors on the offending field.
func decodeRequest(w http.ResponseWriter, r *http.Request, maxBytes int64) (*serving.Request, error) {
	body := http.MaxBytesReader(w, r.Body, maxBytes)
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, maxErr.Limit)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, validation.NewRequestValidationError(
			"body", "required", "", nil, "request body is required")
	}

	var req serving.Request
	if err := json.Unmarshal(data, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				field = "body"
			}
			return nil, validation.NewRequestValidationError(
				field, "type", typeErr.Type.String(), typeErr.Value,
				fmt.Sprintf("%s must be of type %s", field, typeErr.Type.String()))
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return &req, nil
}
