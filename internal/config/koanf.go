// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/fleetmanager/config.yaml",
	"/etc/fleetmanager/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with every default applied. The file and
// environment layers override these values.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			BasePath:        "",
			Environment:     "development",
		},
		Security: SecurityConfig{
			AuthMode: "cognito",
			Cognito: CognitoConfig{
				TokenUse:     "id",
				JWKSCacheTTL: time.Hour,
			},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		Search: SearchConfig{
			Endpoint: "http://localhost:9200",
			Sign:     false,
			Timeout:  30 * time.Second,
			ListSize: 10000,
			Indexes: IndexConfig{
				Latest:  "latest_telemetry",
				CarData: "cardata",
				Shared:  "shared_cardata",
				Trip:    "trip",
				Event:   "event",
				DTC:     "dtc",
				Anomaly: "anomaly",
			},
			Breaker: BreakerConfig{
				MaxRequests:  3,
				Interval:     time.Minute,
				Timeout:      2 * time.Minute,
				MinRequests:  10,
				FailureRatio: 0.6,
			},
		},
		OTA: OTAConfig{
			CommandsFunction: "",
			TemplateID:       "OtaUpdate",
			PageSize:         50,
			MaxStatusDevices: 20,
		},
		Params: ParamsConfig{
			Backend:    "ssm",
			BadgerPath: "/data/params",
			GCInterval: 10 * time.Minute,
			CacheTTL:   time.Minute,
		},
		Dashboard: DashboardConfig{
			PageSize: 15,
			Lookback: 24 * time.Hour,
		},
		Charts: ChartsConfig{
			Year:                2020,
			StartWeek:           40,
			Weeks:               4,
			EfficiencyThreshold: 35,
		},
		Ingest: IngestConfig{
			Enabled:       false,
			NATSURL:       "nats://127.0.0.1:4222",
			SubjectPrefix: "fleet",
			QueueGroup:    "fleet-ingest",
			Workers:       8,
			Timeout:       30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:       true,
			Path:          "",
			RetentionDays: 90,
			BufferSize:    256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration in three layers, each overriding the previous:
//  1. Defaults from defaultConfig
//  2. Optional YAML config file
//  3. Environment variables listed in envMappings
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.applyFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyFallbacks fills region fields that default to the shared AWS region.
func (c *Config) applyFallbacks() {
	if c.Search.Region == "" {
		c.Search.Region = c.AWS.Region
	}
	if c.Security.Cognito.Region == "" {
		c.Security.Cognito.Region = c.AWS.Region
	}
}

// findConfigFile returns the first existing config file, or "" when none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths lists config paths that accept comma-separated env values.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.cognito.client_ids",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to koanf paths.
// Unmapped variables are ignored so unrelated environment cannot leak into config.
var envMappings = map[string]string{
	// Server
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"api_base_path":         "server.base_path",
	"environment":           "server.environment",

	// Security
	"auth_mode":              "security.auth_mode",
	"cognito_region":         "security.cognito.region",
	"cognito_user_pool_id":   "security.cognito.user_pool_id",
	"cognito_client_ids":     "security.cognito.client_ids",
	"cognito_token_use":      "security.cognito.token_use",
	"cognito_jwks_cache_ttl": "security.cognito.jwks_cache_ttl",
	"cognito_write_group":    "security.cognito.write_group",
	"rate_limit_requests":    "security.rate_limit_reqs",
	"rate_limit_window":      "security.rate_limit_window",
	"disable_rate_limit":     "security.rate_limit_disabled",
	"cors_origins":           "security.cors_origins",

	// AWS
	"aws_region": "aws.region",

	// Search
	"es_endpoint":              "search.endpoint",
	"es_region":                "search.region",
	"es_sign_requests":         "search.sign",
	"es_timeout":               "search.timeout",
	"es_list_size":             "search.list_size",
	"es_index_latest":          "search.indexes.latest",
	"es_index_cardata":         "search.indexes.cardata",
	"es_index_shared":          "search.indexes.shared",
	"es_index_trip":            "search.indexes.trip",
	"es_index_event":           "search.indexes.event",
	"es_index_dtc":             "search.indexes.dtc",
	"es_index_anomaly":         "search.indexes.anomaly",
	"es_breaker_max_requests":  "search.breaker.max_requests",
	"es_breaker_interval":      "search.breaker.interval",
	"es_breaker_timeout":       "search.breaker.timeout",
	"es_breaker_min_requests":  "search.breaker.min_requests",
	"es_breaker_failure_ratio": "search.breaker.failure_ratio",

	// OTA
	"commands_function_name": "ota.commands_function",
	"ota_template_id":        "ota.template_id",
	"ota_page_size":          "ota.page_size",
	"ota_max_status_devices": "ota.max_status_devices",

	// Parameter store
	"params_backend":     "params.backend",
	"params_badger_path": "params.badger_path",
	"params_gc_interval": "params.gc_interval",
	"params_cache_ttl":   "params.cache_ttl",

	// Dashboard and charts
	"dashboard_page_size":         "dashboard.page_size",
	"dashboard_lookback":          "dashboard.lookback",
	"charts_year":                 "charts.year",
	"charts_start_week":           "charts.start_week",
	"charts_weeks":                "charts.weeks",
	"charts_efficiency_threshold": "charts.efficiency_threshold",

	// Ingestion
	"ingest_enabled":        "ingest.enabled",
	"nats_url":              "ingest.nats_url",
	"ingest_subject_prefix": "ingest.subject_prefix",
	"ingest_queue_group":    "ingest.queue_group",
	"ingest_workers":        "ingest.workers",
	"ingest_timeout":        "ingest.timeout",

	// Audit
	"audit_enabled":        "audit.enabled",
	"audit_path":           "audit.path",
	"audit_retention_days": "audit.retention_days",
	"audit_buffer_size":    "audit.buffer_size",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - ES_ENDPOINT -> search.endpoint
//   - COGNITO_USER_POOL_ID -> security.cognito.user_pool_id
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
