// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Security.AuthMode != "cognito" {
		t.Errorf("Security.AuthMode = %q, want cognito", cfg.Security.AuthMode)
	}
	if cfg.Security.Cognito.TokenUse != "id" {
		t.Errorf("Security.Cognito.TokenUse = %q, want id", cfg.Security.Cognito.TokenUse)
	}
	if cfg.Search.Indexes.Latest != "latest_telemetry" {
		t.Errorf("Search.Indexes.Latest = %q, want latest_telemetry", cfg.Search.Indexes.Latest)
	}
	if cfg.Search.Indexes.Shared != "shared_cardata" {
		t.Errorf("Search.Indexes.Shared = %q, want shared_cardata", cfg.Search.Indexes.Shared)
	}
	if cfg.Search.ListSize != 10000 {
		t.Errorf("Search.ListSize = %d, want 10000", cfg.Search.ListSize)
	}
	if cfg.Search.Breaker.FailureRatio != 0.6 {
		t.Errorf("Search.Breaker.FailureRatio = %v, want 0.6", cfg.Search.Breaker.FailureRatio)
	}
	if cfg.OTA.MaxStatusDevices != 20 {
		t.Errorf("OTA.MaxStatusDevices = %d, want 20", cfg.OTA.MaxStatusDevices)
	}
	if cfg.OTA.TemplateID != "OtaUpdate" {
		t.Errorf("OTA.TemplateID = %q, want OtaUpdate", cfg.OTA.TemplateID)
	}
	if cfg.Dashboard.PageSize != 15 {
		t.Errorf("Dashboard.PageSize = %d, want 15", cfg.Dashboard.PageSize)
	}
	if cfg.Charts.Year != 2020 || cfg.Charts.StartWeek != 40 || cfg.Charts.Weeks != 4 {
		t.Errorf("Charts = %+v, want 2020/40/4", cfg.Charts)
	}
	if cfg.Ingest.Enabled {
		t.Error("Ingest.Enabled should be false by default")
	}
	if cfg.Params.Backend != "ssm" {
		t.Errorf("Params.Backend = %q, want ssm", cfg.Params.Backend)
	}
	if !cfg.Audit.Enabled || cfg.Audit.RetentionDays != 90 {
		t.Errorf("Audit = %+v, want enabled with 90 day retention", cfg.Audit)
	}
	if cfg.Params.CacheTTL != time.Minute {
		t.Errorf("Params.CacheTTL = %v, want 1m", cfg.Params.CacheTTL)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

// TestEnvTransformFunc verifies environment variable name transformations
func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"HTTP_PORT", "server.port"},
		{"ES_ENDPOINT", "search.endpoint"},
		{"es_endpoint", "search.endpoint"},
		{"ES_INDEX_CARDATA", "search.indexes.cardata"},
		{"COGNITO_USER_POOL_ID", "security.cognito.user_pool_id"},
		{"COGNITO_CLIENT_IDS", "security.cognito.client_ids"},
		{"COMMANDS_FUNCTION_NAME", "ota.commands_function"},
		{"PARAMS_BACKEND", "params.backend"},
		{"NATS_URL", "ingest.nats_url"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := envTransformFunc(tt.input); got != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

// TestFindConfigFile verifies config file discovery
func TestFindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("env var path", func(t *testing.T) {
		customPath := filepath.Join(tmpDir, "custom.yaml")
		if err := os.WriteFile(customPath, []byte("server:\n  port: 9000\n"), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}
		t.Setenv(ConfigPathEnvVar, customPath)
		if got := findConfigFile(); got != customPath {
			t.Errorf("findConfigFile() = %q, want %q", got, customPath)
		}
	})

	t.Run("missing env var path falls through", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, "/non/existent/config.yaml")
		if got := findConfigFile(); got == "/non/existent/config.yaml" {
			t.Error("findConfigFile() returned a path that does not exist")
		}
	})
}

// TestLoadWithKoanfEnvVars verifies that environment variables override defaults
func TestLoadWithKoanfEnvVars(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("AUTH_MODE", "none")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ES_ENDPOINT", "https://search.example.com")
	t.Setenv("ES_INDEX_TRIP", "trips-v2")
	t.Setenv("DASHBOARD_LOOKBACK", "48h")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Search.Endpoint != "https://search.example.com" {
		t.Errorf("Search.Endpoint = %q", cfg.Search.Endpoint)
	}
	if cfg.Search.Indexes.Trip != "trips-v2" {
		t.Errorf("Search.Indexes.Trip = %q, want trips-v2", cfg.Search.Indexes.Trip)
	}
	if cfg.Search.Indexes.Event != "event" {
		t.Errorf("Search.Indexes.Event = %q, want default event", cfg.Search.Indexes.Event)
	}
	if cfg.Dashboard.Lookback != 48*time.Hour {
		t.Errorf("Dashboard.Lookback = %v, want 48h", cfg.Dashboard.Lookback)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if strings.Join(cfg.Security.CORSOrigins, "|") != strings.Join(want, "|") {
		t.Errorf("Security.CORSOrigins = %v, want %v", cfg.Security.CORSOrigins, want)
	}
	if cfg.Search.Region != cfg.AWS.Region {
		t.Errorf("Search.Region = %q, want fallback to AWS region %q", cfg.Search.Region, cfg.AWS.Region)
	}
}

// TestLoadWithKoanfConfigFile verifies loading from a YAML file
func TestLoadWithKoanfConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 7000
security:
  auth_mode: cognito
  cognito:
    region: eu-west-1
    user_pool_id: eu-west-1_abc123
    client_ids: ["client-a"]
ota:
  commands_function: fleet-commands
params:
  backend: badger
  badger_path: /tmp/params
`
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, configPath)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Security.Cognito.UserPoolID != "eu-west-1_abc123" {
		t.Errorf("Cognito.UserPoolID = %q", cfg.Security.Cognito.UserPoolID)
	}
	if cfg.Security.Cognito.Region != "eu-west-1" {
		t.Errorf("Cognito.Region = %q, want eu-west-1", cfg.Security.Cognito.Region)
	}
	if len(cfg.Security.Cognito.ClientIDs) != 1 || cfg.Security.Cognito.ClientIDs[0] != "client-a" {
		t.Errorf("Cognito.ClientIDs = %v", cfg.Security.Cognito.ClientIDs)
	}
	if cfg.OTA.CommandsFunction != "fleet-commands" {
		t.Errorf("OTA.CommandsFunction = %q", cfg.OTA.CommandsFunction)
	}
	if cfg.Params.Backend != "badger" {
		t.Errorf("Params.Backend = %q, want badger", cfg.Params.Backend)
	}
}

// TestLoadWithKoanfEnvOverridesFile verifies the environment layer wins over the file layer
func TestLoadWithKoanfEnvOverridesFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := "security:\n  auth_mode: none\nserver:\n  port: 7000\nlogging:\n  level: warn\n"
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, configPath)
	t.Setenv("HTTP_PORT", "9999")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999 from env", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn from file", cfg.Logging.Level)
	}
}

// TestLoadWithKoanfValidation verifies that invalid layered config is rejected
func TestLoadWithKoanfValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "cognito without pool",
			env:     map[string]string{"AUTH_MODE": "cognito"},
			wantErr: "COGNITO_USER_POOL_ID",
		},
		{
			name:    "invalid port",
			env:     map[string]string{"AUTH_MODE": "none", "HTTP_PORT": "70000"},
			wantErr: "HTTP_PORT",
		},
		{
			name:    "unknown params backend",
			env:     map[string]string{"AUTH_MODE": "none", "PARAMS_BACKEND": "etcd"},
			wantErr: "PARAMS_BACKEND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(ConfigPathEnvVar, "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadWithKoanf()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
