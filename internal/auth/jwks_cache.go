// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fleetmanager/internal/logging"
)

// ErrKeyNotFound is returned when the key set has no key for a token's kid.
var ErrKeyNotFound = errors.New("signing key not found")

// minForcedRefresh limits refreshes triggered by unknown key ids.
const minForcedRefresh = 30 * time.Second

// JWKSCache caches the user pool's RSA signing keys with TTL support.
// An unknown kid forces a refresh so rotated keys are picked up before the TTL
// expires, at most once per minForcedRefresh.
type JWKSCache struct {
	uri        string
	httpClient *http.Client
	ttl        time.Duration

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	fetched time.Time
}

// NewJWKSCache creates a new JWKS cache.
func NewJWKSCache(uri string, client *http.Client, ttl time.Duration) *JWKSCache {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if ttl == 0 {
		ttl = time.Hour
	}
	return &JWKSCache{
		uri:        uri,
		httpClient: client,
		ttl:        ttl,
		keys:       make(map[string]*rsa.PublicKey),
	}
}

// GetKey retrieves a key by ID, refreshing the cache if needed.
func (c *JWKSCache) GetKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	age := time.Since(c.fetched)
	c.mu.RUnlock()

	if ok && age <= c.ttl {
		return key, nil
	}
	if !ok && age < minForcedRefresh {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
	}

	keys, err := c.refresh(ctx, ok)
	if err != nil {
		// A stale key is still better than rejecting every request while the pool endpoint is down.
		if ok {
			logging.Warn().Err(err).Str("kid", kid).Msg("JWKS refresh failed, using cached key")
			return key, nil
		}
		return nil, err
	}

	key, ok = keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
	}
	return key, nil
}

// refresh fetches the key set. When expiredOnly is set another goroutine's
// fresh fetch is reused instead of fetching again.
func (c *JWKSCache) refresh(ctx context.Context, expiredOnly bool) (map[string]*rsa.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	age := time.Since(c.fetched)
	if len(c.keys) > 0 && ((expiredOnly && age <= c.ttl) || age < minForcedRefresh) {
		return c.keys, nil
	}

	keys, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.keys = keys
	c.fetched = time.Now()
	logging.Debug().Str("uri", c.uri).Int("keys", len(keys)).Msg("JWKS refreshed")
	return c.keys, nil
}

type jwkSet struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		Alg string `json:"alg"`
		Use string `json:"use"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (c *JWKSCache) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.uri, http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("JWKS fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS fetch failed with status %d", resp.StatusCode)
	}

	var set jwkSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := rsaPublicKey(k.N, k.E)
		if err != nil {
			logging.Warn().Err(err).Str("kid", k.Kid).Msg("Skipping malformed JWK")
			continue
		}
		keys[k.Kid] = pub
	}
	return keys, nil
}

func rsaPublicKey(nEnc, eEnc string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(nEnc, "="))
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(eEnc, "="))
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	if len(eBytes) == 0 || len(eBytes) > 4 {
		return nil, errors.New("exponent out of range")
	}

	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}

// URI returns the JWKS endpoint URI.
func (c *JWKSCache) URI() string {
	return c.uri
}
