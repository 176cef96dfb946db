// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/wisata/internal/auth"
	"github.com/tomtom215/wisata/internal/logging"
	"github.com/tomtom215/wisata/internal/resolver"
	"github.com/tomtom215/wisata/internal/serving"
	"github.com/tomtom215/wisata/internal/validation"
)

var (
	// ErrInvalidJSON means the request body could not be decoded.
	ErrInvalidJSON = errors.New("request body is not valid JSON")

	// ErrBodyTooLarge means the request body exceeded Config.MaxBodyBytes.
	ErrBodyTooLarge = errors.New("request body too large")
)

// respondServiceError maps errors from the serving layer onto status codes
// and the error envelope. Unknown errors are logged and reported as 500
// without leaking their text.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)

	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
	case errors.Is(err, ErrBodyTooLarge):
		rw.Error(http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, err.Error())
	case errors.Is(err, ErrInvalidJSON):
		rw.BadRequest(err.Error())
	case errors.Is(err, serving.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		rw.Error(http.StatusGatewayTimeout, ErrCodeTimeout, "request timed out before scoring completed")
	case errors.Is(err, serving.ErrNoModel), errors.Is(err, resolver.ErrNotStarted):
		rw.ServiceUnavailable("no model is loaded")
	case errors.Is(err, resolver.ErrReloadThrottled):
		rw.TooManyRequests("model reload requested too soon after the previous one")
	case errors.Is(err, resolver.ErrFatalStartup):
		logging.Ctx(r.Context()).Error().Err(err).Msg("model reload failed")
		rw.InternalError("model reload failed, previous model kept")
	case errors.Is(err, context.Canceled):
		// Client went away; the status is never seen.
		rw.Error(499, ErrCodeBadRequest, "request canceled")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		rw.InternalError("internal error")
	}
}

// respondAuthError writes auth rejections in the error envelope.
func respondAuthError(w http.ResponseWriter, r *http.Request, err error) {
	status := auth.StatusCode(err)
	code := ErrCodeUnauthorized
	if status == http.StatusForbidden {
		code = ErrCodeForbidden
	} else {
		w.Header().Set("WWW-Authenticate", `Bearer realm="wisata"`)
	}

	message := "authentication required"
	switch {
	case errors.Is(err, auth.ErrForbidden):
		message = "admin role required"
	case errors.Is(err, auth.ErrInvalidToken):
		message = "invalid or expired token"
	}
	NewResponseWriter(w, r).Error(status, code, message)
}
