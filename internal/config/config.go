// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	AWS       AWSConfig       `koanf:"aws"`
	Search    SearchConfig    `koanf:"search"`
	OTA       OTAConfig       `koanf:"ota"`
	Params    ParamsConfig    `koanf:"params"`
	Dashboard DashboardConfig `koanf:"dashboard"`
	Charts    ChartsConfig    `koanf:"charts"`
	Ingest    IngestConfig    `koanf:"ingest"`
	Audit     AuditConfig     `koanf:"audit"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// BasePath mounts every fleet route under a prefix, e.g. "/api".
	BasePath    string `koanf:"base_path"`
	Environment string `koanf:"environment"`
}

// SecurityConfig holds authentication, CORS and rate limiting settings.
type SecurityConfig struct {
	// AuthMode is "cognito" (bearer tokens from a Cognito user pool) or "none".
	AuthMode          string        `koanf:"auth_mode"`
	Cognito           CognitoConfig `koanf:"cognito"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// CognitoConfig identifies the user pool whose tokens are accepted.
type CognitoConfig struct {
	Region     string   `koanf:"region"`
	UserPoolID string   `koanf:"user_pool_id"`
	ClientIDs  []string `koanf:"client_ids"`
	// TokenUse is the accepted token_use claim: "id" (what the UI sends) or "access".
	TokenUse     string        `koanf:"token_use"`
	JWKSCacheTTL time.Duration `koanf:"jwks_cache_ttl"`
	// WriteGroup, when set, is the cognito:groups entry required to create
	// OTA jobs and write parameters.
	WriteGroup string `koanf:"write_group"`
}

// AWSConfig holds settings shared by every AWS SDK client.
type AWSConfig struct {
	Region string `koanf:"region"`
}

// SearchConfig holds the search domain connection and index names.
type SearchConfig struct {
	Endpoint string        `koanf:"endpoint"`
	Region   string        `koanf:"region"`
	Sign     bool          `koanf:"sign"`
	Timeout  time.Duration `koanf:"timeout"`
	// ListSize is the page size used by the unpaginated vehicle filter query.
	ListSize int           `koanf:"list_size"`
	Indexes  IndexConfig   `koanf:"indexes"`
	Breaker  BreakerConfig `koanf:"breaker"`
}

// IndexConfig names every index the service reads or writes.
type IndexConfig struct {
	Latest  string `koanf:"latest"`
	CarData string `koanf:"cardata"`
	Shared  string `koanf:"shared"`
	Trip    string `koanf:"trip"`
	Event   string `koanf:"event"`
	DTC     string `koanf:"dtc"`
	Anomaly string `koanf:"anomaly"`
}

// BreakerConfig tunes the circuit breaker in front of the search domain.
type BreakerConfig struct {
	MaxRequests  uint32        `koanf:"max_requests"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio"`
}

// OTAConfig holds the Commands Lambda and IoT Jobs settings.
type OTAConfig struct {
	CommandsFunction string `koanf:"commands_function"`
	TemplateID       string `koanf:"template_id"`
	PageSize         int32  `koanf:"page_size"`
	MaxStatusDevices int    `koanf:"max_status_devices"`
}

// ParamsConfig selects the parameter store backend behind /config.
type ParamsConfig struct {
	// Backend is "ssm" or "badger".
	Backend    string `koanf:"backend"`
	BadgerPath string `koanf:"badger_path"`
	// GCInterval is how often the Badger value log is compacted.
	GCInterval time.Duration `koanf:"gc_interval"`
	// CacheTTL keeps reads in memory for this long. Zero disables caching.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// DashboardConfig holds dashboard aggregate defaults.
type DashboardConfig struct {
	PageSize int           `koanf:"page_size"`
	Lookback time.Duration `koanf:"lookback"`
}

// ChartsConfig holds the default weekly stats window.
type ChartsConfig struct {
	Year                int     `koanf:"year"`
	StartWeek           int     `koanf:"start_week"`
	Weeks               int     `koanf:"weeks"`
	EfficiencyThreshold float64 `koanf:"efficiency_threshold"`
}

// IngestConfig holds the NATS ingestion settings.
type IngestConfig struct {
	Enabled       bool          `koanf:"enabled"`
	NATSURL       string        `koanf:"nats_url"`
	SubjectPrefix string        `koanf:"subject_prefix"`
	QueueGroup    string        `koanf:"queue_group"`
	Workers       int           `koanf:"workers"`
	Timeout       time.Duration `koanf:"timeout"`
}

// AuditConfig holds the audit trail settings for fleet write operations.
type AuditConfig struct {
	Enabled bool `koanf:"enabled"`
	// Path is a BadgerDB directory for persisted events. Empty logs only.
	Path          string `koanf:"path"`
	RetentionDays int    `koanf:"retention_days"`
	BufferSize    int    `koanf:"buffer_size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from defaults, the optional YAML file and the environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
