// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fleetmanager/internal/logging"
)

// Auth modes accepted by NewMiddleware.
const (
	ModeNone    = "none"
	ModeCognito = "cognito"
)

// Verifier validates a raw bearer token.
type Verifier interface {
	Verify(ctx context.Context, raw string) (*Principal, error)
}

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, code, message string)

// Middleware enforces bearer-token authentication on API routes.
type Middleware struct {
	mode     string
	verifier Verifier
	onError  ErrorWriter
}

// NewMiddleware creates the authentication middleware. A nil onError writes a
// minimal JSON error body.
func NewMiddleware(mode string, verifier Verifier, onError ErrorWriter) *Middleware {
	if onError == nil {
		onError = writeAuthError
	}
	return &Middleware{mode: mode, verifier: verifier, onError: onError}
}

// Authenticate is middleware that enforces authentication
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.mode == ModeNone || r.Method == http.MethodOptions {
			next(w, r)
			return
		}

		raw, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			m.onError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized: missing bearer token")
			return
		}

		principal, err := m.verifier.Verify(r.Context(), raw)
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Token validation failed")
			m.onError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized: invalid token")
			return
		}

		ctx := WithPrincipal(r.Context(), principal)
		ctx = logging.ContextWithUser(ctx, principal.Username)
		next(w, r.WithContext(ctx))
	}
}

// RequireGroup rejects authenticated callers outside group. With auth disabled it is a no-op.
func (m *Middleware) RequireGroup(group string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.mode == ModeNone {
			next(w, r)
			return
		}
		p, ok := PrincipalFromContext(r.Context())
		if !ok || !p.InGroup(group) {
			m.onError(w, r, http.StatusForbidden, "FORBIDDEN", "Forbidden: insufficient permissions")
			return
		}
		next(w, r)
	}
}

// bearerToken extracts the token from an Authorization header. Cognito-fronted
// UIs also send the raw id token without a scheme, which is accepted too.
func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found {
		if strings.EqualFold(header, "Bearer") {
			return "", false
		}
		return header, true
	}
	if !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeAuthError(w http.ResponseWriter, _ *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}

// IsAuthError reports whether err came from token verification.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrMissingToken)
}
