// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.Cognito.Region = "us-east-1"
	cfg.Security.Cognito.UserPoolID = "us-east-1_pool"
	cfg.Search.Region = "us-east-1"
	return cfg
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults with pool", mutate: func(*Config) {}},
		{name: "auth none in development", mutate: func(c *Config) { c.Security.AuthMode = "none" }},
		{
			name:    "auth none in production",
			mutate:  func(c *Config) { c.Security.AuthMode = "none"; c.Server.Environment = "production" },
			wantErr: "AUTH_MODE=none",
		},
		{
			name:    "unknown auth mode",
			mutate:  func(c *Config) { c.Security.AuthMode = "basic" },
			wantErr: "AUTH_MODE must be one of",
		},
		{
			name:    "wildcard cors in production",
			mutate:  func(c *Config) { c.Server.Environment = "prod" },
			wantErr: "CORS_ORIGINS",
		},
		{
			name: "explicit cors in production",
			mutate: func(c *Config) {
				c.Server.Environment = "production"
				c.Security.CORSOrigins = []string{"https://fleet.example.com"}
			},
		},
		{
			name:    "bad token use",
			mutate:  func(c *Config) { c.Security.Cognito.TokenUse = "refresh" },
			wantErr: "COGNITO_TOKEN_USE",
		},
		{
			name:    "rate limit window too small",
			mutate:  func(c *Config) { c.Security.RateLimitWindow = time.Millisecond },
			wantErr: "RATE_LIMIT_WINDOW",
		},
		{
			name: "rate limit disabled skips bounds",
			mutate: func(c *Config) {
				c.Security.RateLimitDisabled = true
				c.Security.RateLimitReqs = 0
			},
		},
		{
			name:    "endpoint with path",
			mutate:  func(c *Config) { c.Search.Endpoint = "https://search.example.com/es" },
			wantErr: "ES_ENDPOINT",
		},
		{
			name:    "signing without region",
			mutate:  func(c *Config) { c.Search.Sign = true; c.Search.Region = "" },
			wantErr: "ES_REGION",
		},
		{
			name:    "empty index name",
			mutate:  func(c *Config) { c.Search.Indexes.DTC = " " },
			wantErr: "ES_INDEX_DTC",
		},
		{
			name:    "breaker ratio out of range",
			mutate:  func(c *Config) { c.Search.Breaker.FailureRatio = 1.5 },
			wantErr: "ES_BREAKER_FAILURE_RATIO",
		},
		{
			name:    "ota page size",
			mutate:  func(c *Config) { c.OTA.PageSize = 0 },
			wantErr: "OTA_PAGE_SIZE",
		},
		{
			name:    "badger without path",
			mutate:  func(c *Config) { c.Params.Backend = "badger"; c.Params.BadgerPath = "" },
			wantErr: "PARAMS_BADGER_PATH",
		},
		{
			name:    "charts week out of range",
			mutate:  func(c *Config) { c.Charts.StartWeek = 60 },
			wantErr: "CHARTS_START_WEEK",
		},
		{
			name:    "ingest bad nats url",
			mutate:  func(c *Config) { c.Ingest.Enabled = true; c.Ingest.NATSURL = "http://nats" },
			wantErr: "NATS_URL",
		},
		{
			name:    "negative param cache ttl",
			mutate:  func(c *Config) { c.Params.CacheTTL = -time.Second },
			wantErr: "PARAMS_CACHE_TTL",
		},
		{
			name:    "audit retention zero",
			mutate:  func(c *Config) { c.Audit.RetentionDays = 0 },
			wantErr: "AUDIT_RETENTION_DAYS",
		},
		{
			name:    "audit disabled skips retention check",
			mutate:  func(c *Config) { c.Audit.Enabled = false; c.Audit.RetentionDays = 0 },
			wantErr: "",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "LOG_LEVEL",
		},
		{
			name:    "base path without slash",
			mutate:  func(c *Config) { c.Server.BasePath = "api" },
			wantErr: "API_BASE_PATH",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvironmentHelpers(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	if !cfg.IsDevelopment() || cfg.IsProduction() {
		t.Error("empty environment should be development")
	}
	cfg.Server.Environment = "PROD"
	if !cfg.IsProduction() {
		t.Error("PROD should be production")
	}
}

func TestShouldWarnAboutCORS(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if !cfg.ShouldWarnAboutCORS() {
		t.Error("wildcard origins with cognito auth should warn")
	}
	cfg.Security.AuthMode = "none"
	if cfg.ShouldWarnAboutCORS() {
		t.Error("no warning expected without auth")
	}
}
