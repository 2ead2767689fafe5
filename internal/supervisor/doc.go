// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

/*
Package supervisor runs the long-lived parts of fleetmanager under suture v4.

# Overview

Services are grouped into three layers so a failure in one does not restart
the others:

	RootSupervisor ("fleetmanager")
	├── StorageSupervisor ("storage-layer")
	│   ├── PeriodicService "param-store-gc" (PARAMS_BACKEND=badger)
	│   └── PeriodicService "audit-retention" (AUDIT_PATH set)
	├── IngestSupervisor ("ingest-layer")
	│   └── ingest.Subscriber (INGEST_ENABLED=true)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A NATS outage puts only the subscriber into restart backoff; the HTTP API
keeps serving reads from the search domain.

# Logging

Supervisor events (start, failure, backoff, restart) go through sutureslog to
an slog.Logger. main.go passes logging.NewSlogLogger() so those events land in
the same zerolog stream as everything else.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddIngestService(subscriber)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

# See Also

  - internal/supervisor/services: suture.Service wrappers
  - github.com/thejerf/suture/v4
*/
package supervisor
