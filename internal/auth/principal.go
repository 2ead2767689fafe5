// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package auth

import (
	"context"
	"slices"
	"time"
)

type contextKey string

const principalContextKey contextKey = "principal"

// Principal is the authenticated caller.
type Principal struct {
	Subject   string
	Username  string
	Email     string
	Groups    []string
	TokenUse  string
	ExpiresAt time.Time
}

// InGroup reports whether the principal belongs to the named Cognito group.
func (p *Principal) InGroup(group string) bool {
	return slices.Contains(p.Groups, group)
}

func principalFromClaims(c *CognitoClaims) *Principal {
	p := &Principal{
		Subject:  c.Subject,
		Username: c.Username,
		Email:    c.Email,
		Groups:   c.Groups,
		TokenUse: c.TokenUse,
	}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Time
	}
	if p.Username == "" {
		p.Username = c.Subject
	}
	return p
}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext returns the principal stored by the middleware, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	return p, ok && p != nil
}
