// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

type contextKey string

// ClaimsContextKey holds the *Claims of an authenticated request.
const ClaimsContextKey contextKey = "claims"

// DenyFunc writes the rejection for err, which wraps ErrMissingToken,
// ErrInvalidToken or ErrForbidden.
type DenyFunc func(w http.ResponseWriter, r *http.Request, err error)

// Middleware guards administrative routes with bearer tokens.
type Middleware struct {
	manager *JWTManager
	deny    DenyFunc
	logger  zerolog.Logger
}

// NewMiddleware creates the middleware. A nil manager disables
// authentication; deny defaults to a plain-text http.Error.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewMiddleware(manager *JWTManager, deny DenyFunc, logger zerolog.Logger) *Middleware {
	if deny == nil {
		deny = defaultDeny
	}
	return &Middleware{
		manager: manager,
		deny:    deny,
		logger:  logger.With().Str("component", "auth").Logger(),
	}
}

// Enabled reports whether tokens are checked.
func (m *Middleware) Enabled() bool {
	return m.manager != nil
}

// RequireRole rejects requests without a valid token carrying role (or
// admin, which implies every role).
func (m *Middleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.manager == nil {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				m.deny(w, r, ErrMissingToken)
				return
			}

			claims, err := m.manager.ValidateToken(token)
			if err != nil {
				m.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("token validation failed")
				m.deny(w, r, err)
				return
			}

			if claims.Role != role && claims.Role != RoleAdmin {
				m.logger.Warn().
					Str("subject", claims.Subject).
					Str("role", claims.Role).
					Str("required", role).
					Msg("request denied")
				m.deny(w, r, ErrForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims stored by RequireRole.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return c, ok
}

// StatusCode maps a deny error to an HTTP status.
func StatusCode(err error) int {
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	return http.StatusUnauthorized
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func defaultDeny(w http.ResponseWriter, _ *http.Request, err error) {
	status := StatusCode(err)
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="wisata"`)
	}
	http.Error(w, http.StatusText(status), status)
}
