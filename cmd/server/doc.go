// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

/*
Package main is the entry point for the fleetmanager server.

Fleetmanager serves the fleet management UI: vehicle maps and details, trip
and event history, dashboard aggregates, OTA software update jobs and UI
configuration parameters. Vehicle data lives in an Elasticsearch/OpenSearch
compatible search domain. OTA jobs go through AWS IoT Jobs and a Commands
Lambda. Parameters live in SSM Parameter Store or a local BadgerDB.
Optionally the server also ingests device telemetry from NATS.

# Application Architecture

	RootSupervisor ("fleetmanager")
	├── StorageSupervisor ("storage-layer")
	│   ├── param-store-gc (PARAMS_BACKEND=badger)
	│   └── audit-retention (AUDIT_PATH set)
	├── IngestSupervisor ("ingest-layer")
	│   └── ingest-subscriber (INGEST_ENABLED=true)
	└── APISupervisor ("api-layer")
	    └── http-server

Initialization order:

 1. Configuration: Koanf v2 (defaults, optional YAML file, environment)
 2. Logging: zerolog, JSON or console
 3. AWS SDK config: default credential chain and region
 4. Search client: optional SigV4 signing, gobreaker circuit breaker
 5. Domain services: fleet, dashboard, OTA, parameter store, audit trail
 6. Authentication: Cognito JWT verification or none
 7. Chi router with CORS, rate limiting and Prometheus middleware
 8. Supervisor tree, run until SIGINT or SIGTERM

# Configuration

Priority: environment variables > config file > defaults.

	HTTP_PORT=8080
	API_BASE_PATH=/api
	ES_ENDPOINT=https://search-fleet.us-east-1.es.amazonaws.com
	ES_SIGN_REQUESTS=true
	AUTH_MODE=cognito
	COGNITO_USER_POOL_ID=us-east-1_AbCdEf
	COGNITO_CLIENT_IDS=abc123
	COMMANDS_FUNCTION_NAME=cdf-commands
	PARAMS_BACKEND=ssm
	INGEST_ENABLED=true
	NATS_URL=nats://nats:4222

See internal/config for the complete list.

# Signal Handling

On SIGINT or SIGTERM the tree cancels every service:

 1. The HTTP server stops accepting connections and drains in-flight requests
 2. The ingest subscriber drains its NATS subscriptions
 3. Queued audit events are flushed, then the Badger stores are closed
 4. Services that outlived the shutdown timeout are reported

# Usage Examples

Local development against a local search node without auth:

	export AUTH_MODE=none PARAMS_BACKEND=badger PARAMS_BADGER_PATH=./data/params
	export ES_ENDPOINT=http://localhost:9200
	go run ./cmd/server

# See Also

  - internal/api: HTTP handlers and routing
  - internal/config: configuration management
  - internal/supervisor: process supervision
  - internal/ingest: NATS telemetry ingestion
*/
package main
