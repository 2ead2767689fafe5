// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package api

import (
	"strings"

	"github.com/tomtom215/fleetmanager/internal/auth"
	"github.com/tomtom215/fleetmanager/internal/config"
)

// Router sets up HTTP routes using Chi router.
type Router struct {
	handler       *Handler
	middleware    *auth.Middleware
	chiMiddleware *ChiMiddleware
	basePath      string
	writeGroup    string
}

// NewRouter creates a new router with all routes configured
func NewRouter(handler *Handler, middleware *auth.Middleware, cfg *config.Config) *Router {
	sec := cfg.Security
	chiMw := NewChiMiddlewareFromSecurity(
		sec.CORSOrigins,
		sec.RateLimitReqs,
		sec.RateLimitWindow,
		sec.RateLimitDisabled,
	)

	return &Router{
		handler:       handler,
		middleware:    middleware,
		chiMiddleware: chiMw,
		basePath:      normalizeBasePath(cfg.Server.BasePath),
		writeGroup:    sec.Cognito.WriteGroup,
	}
}

// normalizeBasePath turns "", "/" and "api/" into "/" and "/api".
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return "/"
	}
	return "/" + p
}
