// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/fleetmanager/internal/config"
)

// Verification errors. Callers receive them wrapped with detail.
var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// clockSkew is the leeway applied to exp, nbf and iat.
const clockSkew = 30 * time.Second

// CognitoClaims are the claims carried by Cognito user pool id and access tokens.
type CognitoClaims struct {
	jwt.RegisteredClaims
	TokenUse string   `json:"token_use"`
	ClientID string   `json:"client_id,omitempty"`
	Username string   `json:"cognito:username,omitempty"`
	Email    string   `json:"email,omitempty"`
	Groups   []string `json:"cognito:groups,omitempty"`
	Scope    string   `json:"scope,omitempty"`
}

// VerifierConfig configures a CognitoVerifier.
type VerifierConfig struct {
	Issuer    string
	JWKSURL   string
	ClientIDs []string
	TokenUse  string
	CacheTTL  time.Duration
}

// VerifierConfigFromCognito derives issuer and JWKS URL from the user pool settings.
func VerifierConfigFromCognito(cfg config.CognitoConfig) VerifierConfig {
	issuer := fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", cfg.Region, cfg.UserPoolID)
	return VerifierConfig{
		Issuer:    issuer,
		JWKSURL:   issuer + "/.well-known/jwks.json",
		ClientIDs: cfg.ClientIDs,
		TokenUse:  cfg.TokenUse,
		CacheTTL:  cfg.JWKSCacheTTL,
	}
}

// CognitoVerifier validates RS256 tokens issued by one Cognito user pool.
type CognitoVerifier struct {
	issuer    string
	tokenUse  string
	clientIDs []string
	keys      *JWKSCache
	parser    *jwt.Parser
}

// NewCognitoVerifier creates a verifier. A nil client uses a default HTTP client.
func NewCognitoVerifier(cfg VerifierConfig, client *http.Client) *CognitoVerifier {
	tokenUse := cfg.TokenUse
	if tokenUse == "" {
		tokenUse = "id"
	}
	return &CognitoVerifier{
		issuer:    cfg.Issuer,
		tokenUse:  tokenUse,
		clientIDs: cfg.ClientIDs,
		keys:      NewJWKSCache(cfg.JWKSURL, client, cfg.CacheTTL),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(clockSkew),
		),
	}
}

// Verify parses and validates a raw token and returns the authenticated principal.
func (v *CognitoVerifier) Verify(ctx context.Context, raw string) (*Principal, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}

	claims := &CognitoClaims{}
	_, err := v.parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("token missing kid header")
		}
		return v.keys.GetKey(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.TokenUse != v.tokenUse {
		return nil, fmt.Errorf("%w: token_use %q, want %q", ErrInvalidToken, claims.TokenUse, v.tokenUse)
	}
	if err := v.checkClient(claims); err != nil {
		return nil, err
	}

	return principalFromClaims(claims), nil
}

// checkClient matches aud (id tokens) or client_id (access tokens) against the allowed app clients.
// An empty allow list accepts any client of the pool.
func (v *CognitoVerifier) checkClient(claims *CognitoClaims) error {
	if len(v.clientIDs) == 0 {
		return nil
	}

	var presented []string
	if claims.TokenUse == "access" {
		presented = []string{claims.ClientID}
	} else {
		presented = claims.Audience
	}
	for _, id := range presented {
		if slices.Contains(v.clientIDs, id) {
			return nil
		}
	}
	return fmt.Errorf("%w: client not allowed", ErrInvalidToken)
}
