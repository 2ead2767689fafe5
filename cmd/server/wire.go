// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/tomtom215/fleetmanager/internal/api"
	"github.com/tomtom215/fleetmanager/internal/audit"
	"github.com/tomtom215/fleetmanager/internal/auth"
	"github.com/tomtom215/fleetmanager/internal/config"
	"github.com/tomtom215/fleetmanager/internal/dashboard"
	"github.com/tomtom215/fleetmanager/internal/fleet"
	"github.com/tomtom215/fleetmanager/internal/ingest"
	"github.com/tomtom215/fleetmanager/internal/logging"
	"github.com/tomtom215/fleetmanager/internal/ota"
	"github.com/tomtom215/fleetmanager/internal/paramstore"
	"github.com/tomtom215/fleetmanager/internal/search"
	"github.com/tomtom215/fleetmanager/internal/supervisor"
	"github.com/tomtom215/fleetmanager/internal/supervisor/services"
)

const (
	// gcDiscardRatio is the stale fraction above which a value log file is rewritten.
	gcDiscardRatio = 0.5
	// paramCacheSize bounds the parameter read cache.
	paramCacheSize = 64
	// auditRetentionInterval is how often expired audit events are deleted.
	auditRetentionInterval = 6 * time.Hour
)

// app holds every component built from configuration.
type app struct {
	search    *search.Client
	closers   []io.Closer
	gc        *services.PeriodicService
	retention *services.PeriodicService
	ingest    *ingest.Subscriber
	handler   http.Handler
}

func loadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	return awsCfg, nil
}

func newSearchClient(cfg *config.Config, awsCfg aws.Config) (*search.Client, error) {
	region := cfg.Search.Region
	if region == "" {
		region = cfg.AWS.Region
	}
	b := cfg.Search.Breaker
	return search.NewClient(search.Config{
		Endpoint: cfg.Search.Endpoint,
		Region:   region,
		Service:  "es",
		Sign:     cfg.Search.Sign,
		Timeout:  cfg.Search.Timeout,
		Breaker: search.BreakerSettings{
			MaxRequests:  b.MaxRequests,
			Interval:     b.Interval,
			Timeout:      b.Timeout,
			MinRequests:  b.MinRequests,
			FailureRatio: b.FailureRatio,
		},
		Credentials: awsCfg.Credentials,
	})
}

func newParamStore(cfg *config.Config, awsCfg aws.Config) (paramstore.Store, *paramstore.BadgerStore, error) {
	switch cfg.Params.Backend {
	case "badger":
		store, err := paramstore.OpenBadger(cfg.Params.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return paramstore.NewSSMStore(ssm.NewFromConfig(awsCfg)), nil, nil
	}
}

// newAuditLogger returns nil when auditing is disabled. Without a path events
// only reach the application log.
func newAuditLogger(cfg *config.Config) (*audit.Logger, *audit.BadgerStore, error) {
	if !cfg.Audit.Enabled {
		return nil, nil, nil
	}
	var store *audit.BadgerStore
	if cfg.Audit.Path != "" {
		var err error
		store, err = audit.OpenBadgerStore(cfg.Audit.Path)
		if err != nil {
			return nil, nil, err
		}
	}
	logCfg := audit.DefaultConfig()
	logCfg.BufferSize = cfg.Audit.BufferSize
	if store == nil {
		return audit.NewLogger(nil, logCfg), nil, nil
	}
	return audit.NewLogger(store, logCfg), store, nil
}

func newAuthMiddleware(cfg *config.Config) *auth.Middleware {
	var verifier auth.Verifier
	switch cfg.Security.AuthMode {
	case auth.ModeCognito:
		verifier = auth.NewCognitoVerifier(
			auth.VerifierConfigFromCognito(cfg.Security.Cognito),
			&http.Client{Timeout: 10 * time.Second},
		)
		logging.Info().
			Str("user_pool_id", cfg.Security.Cognito.UserPoolID).
			Str("token_use", cfg.Security.Cognito.TokenUse).
			Msg("Cognito authentication enabled")
	case auth.ModeNone:
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: Authentication is DISABLED (AUTH_MODE=none)")
		logging.Warn().Msg("  Every fleet endpoint, OTA job creation included, is public.")
		logging.Warn().Msg("  Use only for local development or isolated networks.")
		logging.Warn().Msg("============================================================")
	}
	return auth.NewMiddleware(cfg.Security.AuthMode, verifier, api.WriteError)
}

// build wires configuration into services, the HTTP handler and the optional
// background services.
func build(ctx context.Context, cfg *config.Config) (*app, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	searchClient, err := newSearchClient(cfg, awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create search client: %w", err)
	}

	idx := cfg.Search.Indexes
	fleetSvc := fleet.NewService(searchClient, fleet.Indexes{
		Latest:  idx.Latest,
		CarData: idx.CarData,
		Trip:    idx.Trip,
		Event:   idx.Event,
	}, cfg.Search.ListSize)

	dashSvc := dashboard.NewService(searchClient, dashboard.Indexes{
		Latest:  idx.Latest,
		CarData: idx.CarData,
	}, dashboard.Config{
		PageSize:            cfg.Dashboard.PageSize,
		Lookback:            cfg.Dashboard.Lookback,
		EfficiencyThreshold: cfg.Charts.EfficiencyThreshold,
	})

	otaSvc := ota.NewService(iot.NewFromConfig(awsCfg), lambda.NewFromConfig(awsCfg), searchClient, ota.Config{
		CommandsFunction: cfg.OTA.CommandsFunction,
		TemplateID:       cfg.OTA.TemplateID,
		PageSize:         cfg.OTA.PageSize,
		MaxStatusDevices: cfg.OTA.MaxStatusDevices,
		LatestIndex:      idx.Latest,
	})

	params, badgerStore, err := newParamStore(cfg, awsCfg)
	if err != nil {
		return nil, err
	}
	if cfg.Params.CacheTTL > 0 {
		params = paramstore.NewCachedStore(params, paramCacheSize, cfg.Params.CacheTTL)
	}

	a := &app{search: searchClient}
	if badgerStore != nil {
		a.closers = append(a.closers, badgerStore)
		a.gc = services.NewPeriodicService("param-store-gc", cfg.Params.GCInterval, func(ctx context.Context) error {
			return badgerStore.CollectGarbage(ctx, gcDiscardRatio)
		})
	}

	auditLogger, auditStore, err := newAuditLogger(cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	var auditor api.Auditor
	if auditLogger != nil {
		auditor = auditLogger
		// Close the logger before its store so queued events are flushed.
		a.closers = append(a.closers, auditLogger)
	}
	if auditStore != nil {
		a.closers = append(a.closers, auditStore)
		a.retention = services.NewPeriodicService("audit-retention", auditRetentionInterval,
			audit.Retention(auditStore, cfg.Audit.RetentionDays))
	}

	if cfg.Ingest.Enabled {
		proc := ingest.NewProcessor(searchClient, otaSvc, ingest.Indexes{
			Latest:  idx.Latest,
			CarData: idx.CarData,
			Shared:  idx.Shared,
			Trip:    idx.Trip,
			Event:   idx.Event,
			DTC:     idx.DTC,
			Anomaly: idx.Anomaly,
		})
		a.ingest = ingest.NewSubscriber(ingest.SubscriberConfig{
			URL:           cfg.Ingest.NATSURL,
			SubjectPrefix: cfg.Ingest.SubjectPrefix,
			QueueGroup:    cfg.Ingest.QueueGroup,
			Workers:       cfg.Ingest.Workers,
			Timeout:       cfg.Ingest.Timeout,
		}, proc)
	}

	handler := api.NewHandler(api.Services{
		Fleet:     fleetSvc,
		Dashboard: dashSvc,
		OTA:       otaSvc,
		Params:    params,
		Search:    searchClient,
		Audit:     auditor,
	}, cfg.Charts)
	a.handler = api.NewRouter(handler, newAuthMiddleware(cfg), cfg).SetupChi()

	return a, nil
}

// register adds the app's services to the supervisor tree.
func (a *app) register(tree *supervisor.SupervisorTree, server *http.Server, shutdownTimeout time.Duration) {
	if a.gc != nil {
		tree.AddStorageService(a.gc)
		logging.Info().Msg("Parameter store GC added to supervisor tree")
	}
	if a.retention != nil {
		tree.AddStorageService(a.retention)
		logging.Info().Msg("Audit retention added to supervisor tree")
	}
	if a.ingest != nil {
		tree.AddIngestService(a.ingest)
		logging.Info().Strs("subjects", a.ingest.Subjects()).Msg("Ingest subscriber added to supervisor tree")
	} else {
		logging.Info().Msg("Telemetry ingestion disabled (INGEST_ENABLED=false)")
	}
	tree.AddAPIService(services.NewHTTPServerService(server, shutdownTimeout))
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing resource")
		}
	}
}
