// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package search

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrCircuitOpen is returned when the breaker rejects a call without contacting the domain.
var ErrCircuitOpen = errors.New("search domain unavailable: circuit open")

// Error is a non-2xx reply from the search domain.
type Error struct {
	Status int
	Type   string
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("search: %s (status %d)", e.Type, e.Status)
	}
	return fmt.Sprintf("search: %s: %s (status %d)", e.Type, e.Reason, e.Status)
}

// Response is the decoded body of a _search call.
type Response struct {
	Took         int                        `json:"took"`
	TimedOut     bool                       `json:"timed_out"`
	Hits         Hits                       `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations,omitempty"`
}

// Hits is the hits envelope of a search response.
type Hits struct {
	Total Total `json:"total"`
	Hits  []Hit `json:"hits"`
}

// Total is the hit count. Older domains report a bare number, newer ones an object.
type Total struct {
	Value    int    `json:"value"`
	Relation string `json:"relation,omitempty"`
}

// UnmarshalJSON accepts both `123` and `{"value":123,"relation":"eq"}`.
func (t *Total) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] != '{' {
		t.Relation = "eq"
		return json.Unmarshal(b, &t.Value)
	}
	type plain Total
	return json.Unmarshal(b, (*plain)(t))
}

// Hit is one matching document.
type Hit struct {
	Index  string          `json:"_index"`
	ID     string          `json:"_id"`
	Source json.RawMessage `json:"_source"`
	Sort   []interface{}   `json:"sort,omitempty"`
}

// Decode unmarshals the hit's _source into v.
func (h Hit) Decode(v interface{}) error {
	if len(h.Source) == 0 {
		return fmt.Errorf("hit %s has no _source", h.ID)
	}
	return json.Unmarshal(h.Source, v)
}

// Aggregation unmarshals the named aggregation into v. It returns false when absent.
func (r *Response) Aggregation(name string, v interface{}) (bool, error) {
	raw, ok := r.Aggregations[name]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("aggregation %s: %w", name, err)
	}
	return true, nil
}

// BulkItem is one index action of a _bulk request. An empty ID lets the domain assign one.
type BulkItem struct {
	Index    string
	ID       string
	Document interface{}
}

// errorBody is the error envelope returned by the domain.
type errorBody struct {
	Error json.RawMessage `json:"error"`
}

type errorDetail struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// parseError builds an *Error from a non-2xx reply.
func parseError(status int, body []byte) *Error {
	e := &Error{Status: status, Type: "http_error"}

	var env errorBody
	if err := json.Unmarshal(body, &env); err != nil || len(env.Error) == 0 {
		e.Reason = truncate(string(body), 256)
		return e
	}

	var detail errorDetail
	if err := json.Unmarshal(env.Error, &detail); err == nil && detail.Type != "" {
		e.Type = detail.Type
		e.Reason = detail.Reason
		return e
	}

	// Some proxies return "error": "message".
	var msg string
	if err := json.Unmarshal(env.Error, &msg); err == nil {
		e.Reason = msg
	}
	return e
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
