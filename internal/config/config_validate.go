// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateSecurity,
		c.validateSearch,
		c.validateOTA,
		c.validateParams,
		c.validateDashboard,
		c.validateCharts,
		c.validateIngest,
		c.validateAudit,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("API_BASE_PATH must start with '/', got: %s", c.Server.BasePath)
	}
	return nil
}

// validateSecurity validates security configuration
func (c *Config) validateSecurity() error {
	if err := c.validateAuthMode(); err != nil {
		return err
	}
	if err := c.validateCORS(); err != nil {
		return err
	}
	if err := c.validateRateLimits(); err != nil {
		return err
	}
	if c.Security.AuthMode == "cognito" {
		return c.validateCognito()
	}
	return nil
}

// validAuthModes defines the allowed authentication modes
var validAuthModes = map[string]bool{
	"none":    true,
	"cognito": true,
}

// validateAuthMode checks if auth mode is valid
func (c *Config) validateAuthMode() error {
	if !validAuthModes[c.Security.AuthMode] {
		return fmt.Errorf("AUTH_MODE must be one of: none, cognito")
	}
	if c.Security.AuthMode == "none" && c.IsProduction() {
		return fmt.Errorf("AUTH_MODE=none is not allowed when ENVIRONMENT=production. " +
			"Set AUTH_MODE=cognito or use ENVIRONMENT=development for testing purposes")
	}
	return nil
}

// validateCognito validates the user pool settings used to verify bearer tokens
func (c *Config) validateCognito() error {
	cog := c.Security.Cognito
	if cog.UserPoolID == "" {
		return fmt.Errorf("COGNITO_USER_POOL_ID is required when AUTH_MODE is cognito")
	}
	if cog.Region == "" {
		return fmt.Errorf("COGNITO_REGION or AWS_REGION is required when AUTH_MODE is cognito")
	}
	if cog.TokenUse != "id" && cog.TokenUse != "access" {
		return fmt.Errorf("COGNITO_TOKEN_USE must be one of: id, access")
	}
	if cog.JWKSCacheTTL < time.Minute {
		return fmt.Errorf("COGNITO_JWKS_CACHE_TTL must be at least 1m")
	}
	return nil
}

// validateCORS rejects wildcard origins in production while tokens are required.
func (c *Config) validateCORS() error {
	if c.Security.AuthMode != "none" && c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production with authentication enabled. " +
			"Set specific origins: CORS_ORIGINS=https://fleet.example.com " +
			"or use ENVIRONMENT=development for testing purposes")
	}
	return nil
}

// hasWildcardCORS checks if CORS is configured with wildcard origins
func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if CORS configuration has security concerns
// that should be logged at startup
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.AuthMode != "none" && c.hasWildcardCORS()
}

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

// validateRateLimits validates rate limiting configuration bounds.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// validateSearch validates the search domain connection and breaker settings
func (c *Config) validateSearch() error {
	if err := validateHTTPURL(c.Search.Endpoint, "ES_ENDPOINT"); err != nil {
		return fmt.Errorf("ES_ENDPOINT is invalid: %w", err)
	}
	if c.Search.Sign && c.Search.Region == "" {
		return fmt.Errorf("ES_REGION or AWS_REGION is required when ES_SIGN_REQUESTS=true")
	}
	if c.Search.ListSize < 1 || c.Search.ListSize > 10000 {
		return fmt.Errorf("ES_LIST_SIZE must be between 1 and 10000")
	}
	if err := c.validateIndexes(); err != nil {
		return err
	}
	return c.validateBreaker()
}

// validateIndexes ensures every index has a name
func (c *Config) validateIndexes() error {
	idx := c.Search.Indexes
	names := []struct {
		env, value string
	}{
		{"ES_INDEX_LATEST", idx.Latest},
		{"ES_INDEX_CARDATA", idx.CarData},
		{"ES_INDEX_SHARED", idx.Shared},
		{"ES_INDEX_TRIP", idx.Trip},
		{"ES_INDEX_EVENT", idx.Event},
		{"ES_INDEX_DTC", idx.DTC},
		{"ES_INDEX_ANOMALY", idx.Anomaly},
	}
	for _, n := range names {
		if strings.TrimSpace(n.value) == "" {
			return fmt.Errorf("%s must not be empty", n.env)
		}
	}
	return nil
}

// validateBreaker validates circuit breaker tuning
func (c *Config) validateBreaker() error {
	b := c.Search.Breaker
	if b.MaxRequests == 0 {
		return fmt.Errorf("ES_BREAKER_MAX_REQUESTS must be at least 1")
	}
	if b.Timeout <= 0 {
		return fmt.Errorf("ES_BREAKER_TIMEOUT must be positive")
	}
	if b.FailureRatio <= 0 || b.FailureRatio > 1 {
		return fmt.Errorf("ES_BREAKER_FAILURE_RATIO must be in (0, 1]")
	}
	return nil
}

// validateOTA validates OTA job settings
func (c *Config) validateOTA() error {
	if c.OTA.TemplateID == "" {
		return fmt.Errorf("OTA_TEMPLATE_ID must not be empty")
	}
	if c.OTA.PageSize < 1 || c.OTA.PageSize > 250 {
		return fmt.Errorf("OTA_PAGE_SIZE must be between 1 and 250")
	}
	if c.OTA.MaxStatusDevices < 1 {
		return fmt.Errorf("OTA_MAX_STATUS_DEVICES must be at least 1")
	}
	return nil
}

// validateParams validates the parameter store backend selection
func (c *Config) validateParams() error {
	if c.Params.CacheTTL < 0 {
		return fmt.Errorf("PARAMS_CACHE_TTL must not be negative")
	}
	switch c.Params.Backend {
	case "ssm":
		return nil
	case "badger":
		if c.Params.BadgerPath == "" {
			return fmt.Errorf("PARAMS_BADGER_PATH is required when PARAMS_BACKEND=badger")
		}
		if c.Params.GCInterval < 0 {
			return fmt.Errorf("PARAMS_GC_INTERVAL must not be negative")
		}
		return nil
	default:
		return fmt.Errorf("PARAMS_BACKEND must be one of: ssm, badger")
	}
}

// validateAudit validates audit trail settings
func (c *Config) validateAudit() error {
	if !c.Audit.Enabled {
		return nil
	}
	if c.Audit.RetentionDays < 1 {
		return fmt.Errorf("AUDIT_RETENTION_DAYS must be at least 1")
	}
	if c.Audit.BufferSize < 1 {
		return fmt.Errorf("AUDIT_BUFFER_SIZE must be at least 1")
	}
	return nil
}

// validateDashboard validates dashboard defaults
func (c *Config) validateDashboard() error {
	if c.Dashboard.PageSize < 1 || c.Dashboard.PageSize > 10000 {
		return fmt.Errorf("DASHBOARD_PAGE_SIZE must be between 1 and 10000")
	}
	if c.Dashboard.Lookback <= 0 {
		return fmt.Errorf("DASHBOARD_LOOKBACK must be positive")
	}
	return nil
}

// validateCharts validates the default weekly stats window
func (c *Config) validateCharts() error {
	if c.Charts.StartWeek < 1 || c.Charts.StartWeek > 53 {
		return fmt.Errorf("CHARTS_START_WEEK must be between 1 and 53")
	}
	if c.Charts.Weeks < 1 || c.Charts.Weeks > 52 {
		return fmt.Errorf("CHARTS_WEEKS must be between 1 and 52")
	}
	if c.Charts.Year < 1970 {
		return fmt.Errorf("CHARTS_YEAR must be 1970 or later")
	}
	return nil
}

// validateIngest validates NATS ingestion settings (only if enabled)
func (c *Config) validateIngest() error {
	if !c.Ingest.Enabled {
		return nil
	}
	if err := validateNATSURL(c.Ingest.NATSURL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	if c.Ingest.SubjectPrefix == "" {
		return fmt.Errorf("INGEST_SUBJECT_PREFIX must not be empty when INGEST_ENABLED=true")
	}
	if c.Ingest.Workers < 1 || c.Ingest.Workers > 256 {
		return fmt.Errorf("INGEST_WORKERS must be between 1 and 256")
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment returns true if the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}
