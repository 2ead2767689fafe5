// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/goccy/go-json"

	"github.com/tomtom215/fleetmanager/internal/logging"
	"github.com/tomtom215/fleetmanager/internal/metrics"
)

// maxResponseBytes caps how much of a reply is read into memory.
const maxResponseBytes = 64 << 20

// Config configures a Client.
type Config struct {
	Endpoint string
	Region   string
	Service  string
	Sign     bool
	Timeout  time.Duration
	Breaker  BreakerSettings

	// Credentials is required when Sign is true.
	Credentials aws.CredentialsProvider
	// HTTPClient overrides the default client. Used by tests.
	HTTPClient *http.Client
}

// Client talks to an Elasticsearch/OpenSearch compatible domain.
type Client struct {
	endpoint string
	client   *http.Client
	signer   requestSigner
	breaker  *breaker
}

// NewClient creates a search client.
func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid search endpoint %q", cfg.Endpoint)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	c := &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		client:   httpClient,
	}

	if cfg.Sign {
		if cfg.Credentials == nil {
			return nil, errors.New("request signing enabled but no AWS credentials provider configured")
		}
		c.signer = NewSigV4Signer(cfg.Credentials, cfg.Region, cfg.Service)
	}

	settings := cfg.Breaker
	if settings.MaxRequests == 0 {
		settings = DefaultBreakerSettings()
	}
	c.breaker = newBreaker("search", settings)

	return c, nil
}

// BreakerState reports the breaker state: closed, half-open or open.
func (c *Client) BreakerState() string {
	return c.breaker.State()
}

// Search runs query against index.
func (c *Client) Search(ctx context.Context, index string, query interface{}) (*Response, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("encode search query: %w", err)
	}

	raw, err := c.do(ctx, "search", index, http.MethodGet, "/"+url.PathEscape(index)+"/_search", "application/json", body)
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	metrics.RecordSearchHits(index, len(resp.Hits.Hits))
	return &resp, nil
}

type bulkAction struct {
	Index bulkMeta `json:"index"`
}

type bulkMeta struct {
	Index string `json:"_index"`
	ID    string `json:"_id,omitempty"`
}

type bulkResponse struct {
	Errors bool                          `json:"errors"`
	Items  []map[string]bulkItemResponse `json:"items"`
}

type bulkItemResponse struct {
	Index  string          `json:"_index"`
	ID     string          `json:"_id"`
	Status int             `json:"status"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// Bulk indexes items with a single _bulk call. It fails if any item failed.
func (c *Client) Bulk(ctx context.Context, items []BulkItem) error {
	if len(items) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, item := range items {
		if err := enc.Encode(bulkAction{Index: bulkMeta{Index: item.Index, ID: item.ID}}); err != nil {
			return fmt.Errorf("encode bulk action: %w", err)
		}
		if err := enc.Encode(item.Document); err != nil {
			return fmt.Errorf("encode bulk document for %s: %w", item.Index, err)
		}
	}

	raw, err := c.do(ctx, "bulk", items[0].Index, http.MethodPost, "/_bulk", "application/x-ndjson", buf.Bytes())
	if err != nil {
		return err
	}

	var resp bulkResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if !resp.Errors {
		return nil
	}

	failed := 0
	var first *bulkItemResponse
	for _, entry := range resp.Items {
		for _, r := range entry {
			if len(r.Error) == 0 && r.Status < 300 {
				continue
			}
			failed++
			if first == nil {
				first = &r
			}
		}
	}
	if first == nil {
		return errors.New("bulk request reported errors")
	}
	return fmt.Errorf("bulk request: %d of %d items failed, first %s/%s (status %d): %s",
		failed, len(items), first.Index, first.ID, first.Status, string(first.Error))
}

// UpdateByQuery runs an _update_by_query against index. Version conflicts are skipped.
func (c *Client) UpdateByQuery(ctx context.Context, index string, body interface{}, refresh bool) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode update_by_query: %w", err)
	}

	path := "/" + url.PathEscape(index) + "/_update_by_query?conflicts=proceed"
	if refresh {
		path += "&refresh=true"
	}

	_, err = c.do(ctx, "update_by_query", index, http.MethodPost, path, "application/json", payload)
	return err
}

// Index stores doc under id, replacing any existing document.
func (c *Client) Index(ctx context.Context, index, id string, doc interface{}) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	path := "/" + url.PathEscape(index) + "/_doc/" + url.PathEscape(id)
	_, err = c.do(ctx, "index", index, http.MethodPut, path, "application/json", payload)
	return err
}

// Ping checks the domain is reachable. It bypasses the breaker.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.send(ctx, http.MethodGet, "/", "", nil)
	return err
}

// do sends one request through the breaker and records metrics.
func (c *Client) do(ctx context.Context, operation, index, method, path, contentType string, body []byte) ([]byte, error) {
	start := time.Now()

	raw, err := c.breaker.execute(func() ([]byte, error) {
		return c.send(ctx, method, path, contentType, body)
	})

	metrics.RecordSearch(operation, index, statusLabel(err), time.Since(start))
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("operation", operation).Str("index", index).Msg("search request failed")
		return nil, err
	}
	return raw, nil
}

// send performs the HTTP round trip.
func (c *Client) send(ctx context.Context, method, path, contentType string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	if c.signer != nil {
		if err := c.signer.Sign(ctx, req, body); err != nil {
			return nil, err
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseError(resp.StatusCode, raw)
	}
	return raw, nil
}

func statusLabel(err error) string {
	if err == nil {
		return "success"
	}
	if errors.Is(err, ErrCircuitOpen) {
		return "rejected"
	}
	var se *Error
	if errors.As(err, &se) {
		return strconv.Itoa(se.Status)
	}
	return "error"
}
