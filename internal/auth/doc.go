// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

/*
Package auth authenticates API callers with Amazon Cognito user pool tokens.

Key Components:

  - JWKSCache: caches the pool's RSA signing keys, refreshing on TTL expiry
    and on unknown key ids
  - CognitoVerifier: validates RS256 signature, issuer, expiry, token_use and
    the app client (aud for id tokens, client_id for access tokens)
  - Middleware: extracts the bearer token, stores the Principal in the request
    context and renders 401/403 through an injected ErrorWriter

The issuer is https://cognito-idp.{region}.amazonaws.com/{userPoolId} and the key
set is served from {issuer}/.well-known/jwks.json.

With AUTH_MODE=none the middleware passes every request through.
*/
package auth
