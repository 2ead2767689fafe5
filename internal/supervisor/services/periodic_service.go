// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/fleetmanager/internal/logging"
)

// Task is one run of a periodic job.
type Task func(ctx context.Context) error

// PeriodicService runs a Task on a fixed interval. A failed run is logged
// and retried on the next tick; the service only returns when ctx ends.
//
// It backs the Badger value log compaction of the local parameter store:
//
//	gc := func(ctx context.Context) error { return store.CollectGarbage(ctx, 0.5) }
//	tree.AddStorageService(services.NewPeriodicService("param-store-gc", 10*time.Minute, gc))
type PeriodicService struct {
	name     string
	interval time.Duration
	task     Task
}

// NewPeriodicService creates a periodic service.
func NewPeriodicService(name string, interval time.Duration, task Task) *PeriodicService {
	return &PeriodicService{name: name, interval: interval, task: task}
}

// Serve implements suture.Service. A non-positive interval disables the
// service permanently.
func (p *PeriodicService) Serve(ctx context.Context) error {
	if p.interval <= 0 {
		logging.Info().Str("service", p.name).Msg("Periodic service disabled")
		return suture.ErrDoNotRestart
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.run(ctx); err != nil {
				logging.Warn().Err(err).Str("service", p.name).Msg("Periodic task failed")
			}
		}
	}
}

// run invokes the task once, turning a panic into an error so one bad run
// does not count as a service failure.
func (p *PeriodicService) run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", p.name, r)
		}
	}()
	if err := p.task(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// String names the service in supervisor events.
func (p *PeriodicService) String() string {
	return p.name
}
