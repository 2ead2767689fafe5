// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/fleetmanager/internal/config"
)

const testIssuer = "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_TestPool"

// testPool serves a JWKS document for one RSA key and signs tokens with it.
type testPool struct {
	key     *rsa.PrivateKey
	kid     string
	srv     *httptest.Server
	fetches atomic.Int32
}

func newTestPool(t *testing.T) *testPool {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	p := &testPool{key: key, kid: "test-kid-1"}
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": p.kid,
				"alg": "RS256",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	}))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *testPool) verifier(tokenUse string, clients ...string) *CognitoVerifier {
	return NewCognitoVerifier(VerifierConfig{
		Issuer:    testIssuer,
		JWKSURL:   p.srv.URL,
		ClientIDs: clients,
		TokenUse:  tokenUse,
		CacheTTL:  time.Hour,
	}, p.srv.Client())
}

func (p *testPool) sign(t *testing.T, claims *CognitoClaims, kid string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(p.key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

func idClaims(aud string, exp time.Duration) *CognitoClaims {
	now := time.Now()
	return &CognitoClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   "0f6c4a1e-0000-4000-8000-000000000001",
			Audience:  jwt.ClaimStrings{aud},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(exp)),
		},
		TokenUse: "id",
		Username: "fleet-operator",
		Email:    "operator@example.com",
		Groups:   []string{"fleet-admins"},
	}
}

func TestCognitoVerifierAcceptsValidIDToken(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	v := pool.verifier("id", "client-a")

	p, err := v.Verify(context.Background(), pool.sign(t, idClaims("client-a", time.Hour), pool.kid))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if p.Username != "fleet-operator" {
		t.Errorf("Username = %q, want fleet-operator", p.Username)
	}
	if !p.InGroup("fleet-admins") {
		t.Error("expected fleet-admins group")
	}
	if p.ExpiresAt.IsZero() {
		t.Error("ExpiresAt should be set")
	}
}

func TestCognitoVerifierRejects(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)

	wrongIssuer := idClaims("client-a", time.Hour)
	wrongIssuer.Issuer = "https://cognito-idp.us-east-1.amazonaws.com/other"

	accessToken := idClaims("", time.Hour)
	accessToken.Audience = nil
	accessToken.TokenUse = "access"
	accessToken.ClientID = "client-a"

	noExp := idClaims("client-a", time.Hour)
	noExp.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"expired", pool.sign(t, idClaims("client-a", -time.Hour), pool.kid)},
		{"missing exp", pool.sign(t, noExp, pool.kid)},
		{"wrong issuer", pool.sign(t, wrongIssuer, pool.kid)},
		{"wrong audience", pool.sign(t, idClaims("client-b", time.Hour), pool.kid)},
		{"access token for id verifier", pool.sign(t, accessToken, pool.kid)},
		{"missing kid", pool.sign(t, idClaims("client-a", time.Hour), "")},
		{"unknown kid", pool.sign(t, idClaims("client-a", time.Hour), "rotated-away")},
	}

	v := pool.verifier("id", "client-a")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Verify(context.Background(), tt.token); err == nil {
				t.Fatal("Verify() should fail")
			}
		})
	}
}

func TestCognitoVerifierRejectsHMAC(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, idClaims("client-a", time.Hour))
	tok.Header["kid"] = pool.kid
	signed, err := tok.SignedString([]byte("shared-secret-shared-secret-1234"))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	_, err = pool.verifier("id", "client-a").Verify(context.Background(), signed)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestCognitoVerifierAccessToken(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	claims := idClaims("", time.Hour)
	claims.Audience = nil
	claims.TokenUse = "access"
	claims.ClientID = "client-a"

	p, err := pool.verifier("access", "client-a").Verify(context.Background(), pool.sign(t, claims, pool.kid))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if p.TokenUse != "access" {
		t.Errorf("TokenUse = %q, want access", p.TokenUse)
	}
}

func TestCognitoVerifierAnyClientWhenUnrestricted(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	if _, err := pool.verifier("id").Verify(context.Background(), pool.sign(t, idClaims("whatever", time.Hour), pool.kid)); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
}

func TestJWKSCacheReusesKeys(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	v := pool.verifier("id", "client-a")
	token := pool.sign(t, idClaims("client-a", time.Hour), pool.kid)

	for i := 0; i < 5; i++ {
		if _, err := v.Verify(context.Background(), token); err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
	}
	if got := pool.fetches.Load(); got != 1 {
		t.Errorf("JWKS fetched %d times, want 1", got)
	}

	// An unknown kid right after a fetch must not hammer the endpoint.
	_, _ = v.Verify(context.Background(), pool.sign(t, idClaims("client-a", time.Hour), "unknown"))
	if got := pool.fetches.Load(); got != 1 {
		t.Errorf("JWKS fetched %d times after unknown kid, want 1", got)
	}
}

func TestJWKSCacheFetchFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cache := NewJWKSCache(srv.URL, srv.Client(), time.Hour)
	if _, err := cache.GetKey(context.Background(), "kid"); err == nil {
		t.Fatal("GetKey() should fail when the endpoint is down")
	}
}

func TestVerifierConfigFromCognito(t *testing.T) {
	t.Parallel()

	vc := VerifierConfigFromCognito(config.CognitoConfig{
		Region:     "eu-west-1",
		UserPoolID: "eu-west-1_abc",
		ClientIDs:  []string{"c1"},
		TokenUse:   "id",
	})
	if vc.Issuer != "https://cognito-idp.eu-west-1.amazonaws.com/eu-west-1_abc" {
		t.Errorf("Issuer = %q", vc.Issuer)
	}
	if vc.JWKSURL != vc.Issuer+"/.well-known/jwks.json" {
		t.Errorf("JWKSURL = %q", vc.JWKSURL)
	}
}
