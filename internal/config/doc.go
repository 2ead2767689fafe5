// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

/*
Package config provides centralized configuration management for Fleetmanager.

Configuration is loaded in three layers by LoadWithKoanf, each overriding the
previous one:
  - Built-in defaults (defaultConfig)
  - An optional YAML file (CONFIG_PATH, config.yaml, /etc/fleetmanager/config.yaml)
  - Environment variables

# Configuration Structure

  - ServerConfig: HTTP listener, timeouts and the optional base path
  - SecurityConfig: Cognito token verification, CORS and rate limiting
  - SearchConfig: search domain endpoint, SigV4 signing, index names, circuit breaker
  - OTAConfig: Commands Lambda name and IoT job listing
  - ParamsConfig: /config backend (SSM Parameter Store or local Badger)
  - DashboardConfig and ChartsConfig: aggregate defaults
  - IngestConfig: NATS telemetry ingestion
  - LoggingConfig: zerolog level and format

# Environment Variables

Only variables listed in envMappings are read. Common ones:
  - HTTP_PORT (default: 8080)
  - ES_ENDPOINT, ES_REGION, ES_SIGN_REQUESTS
  - AWS_REGION (default: us-east-1)
  - AUTH_MODE (cognito or none), COGNITO_USER_POOL_ID, COGNITO_CLIENT_IDS
  - COGNITO_WRITE_GROUP (group allowed to create OTA jobs and write parameters)
  - COMMANDS_FUNCTION_NAME
  - PARAMS_BACKEND (ssm or badger), PARAMS_BADGER_PATH, PARAMS_GC_INTERVAL, PARAMS_CACHE_TTL
  - INGEST_ENABLED, NATS_URL
  - AUDIT_ENABLED, AUDIT_PATH, AUDIT_RETENTION_DAYS
  - LOG_LEVEL, LOG_FORMAT

Comma-separated values are accepted for CORS_ORIGINS and COGNITO_CLIENT_IDS.

# Validation

Validate fails fast with an error naming the offending environment variable.
AUTH_MODE=none and wildcard CORS are both rejected when ENVIRONMENT=production.
*/
package config
