// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

/*
Package search is a small client for Elasticsearch and OpenSearch compatible
domains.

It covers the four calls the service needs: _search, _bulk,
_update_by_query and single document PUT. Requests against an AWS managed
domain are signed with SigV4 when Config.Sign is set.

Every call goes through a circuit breaker named "search". Replies with a 4xx
status are returned as *Error and do not count towards tripping the breaker;
5xx and transport failures do. While the breaker is open calls fail fast with
ErrCircuitOpen. Nothing is retried.

Usage:

	client, err := search.NewClient(search.Config{Endpoint: "http://localhost:9200"})
	if err != nil {
		return err
	}
	resp, err := client.Search(ctx, "latest_telemetry", query)
*/
package search
