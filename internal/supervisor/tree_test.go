// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// fakeService fails the first `fails` runs, then blocks until canceled.
type fakeService struct {
	name   string
	fails  int32
	starts atomic.Int32
	stops  atomic.Int32
}

var _ suture.Service = (*fakeService)(nil)

func (f *fakeService) Serve(ctx context.Context) error {
	n := f.starts.Add(1)
	defer f.stops.Add(1)
	if n <= f.fails {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeService) String() string { return f.name }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewSupervisorTree_Defaults(t *testing.T) {
	t.Parallel()

	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("NewSupervisorTree() error = %v", err)
	}
	if tree.Root() == nil {
		t.Fatal("root supervisor is nil")
	}
	if tree.config != DefaultTreeConfig() {
		t.Errorf("config = %+v, want defaults %+v", tree.config, DefaultTreeConfig())
	}

	custom, _ := NewSupervisorTree(quietLogger(), TreeConfig{FailureThreshold: 2, ShutdownTimeout: time.Second})
	if custom.config.FailureThreshold != 2 || custom.config.ShutdownTimeout != time.Second {
		t.Errorf("explicit values overwritten: %+v", custom.config)
	}
	if custom.config.FailureDecay != 30 || custom.config.FailureBackoff != 15*time.Second {
		t.Errorf("zero values not defaulted: %+v", custom.config)
	}
}

func TestSupervisorTree_StartsEveryLayer(t *testing.T) {
	t.Parallel()

	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	storage := &fakeService{name: "param-store-gc"}
	ingest := &fakeService{name: "ingest-subscriber"}
	api := &fakeService{name: "http-server"}
	tree.AddStorageService(storage)
	tree.AddIngestService(ingest)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	for _, svc := range []*fakeService{storage, ingest, api} {
		svc := svc
		waitFor(t, func() bool { return svc.starts.Load() >= 1 })
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop")
	}
	for _, svc := range []*fakeService{storage, ingest, api} {
		if svc.stops.Load() != svc.starts.Load() {
			t.Errorf("%s: starts = %d, stops = %d", svc.name, svc.starts.Load(), svc.stops.Load())
		}
	}
}

func TestSupervisorTree_RestartsFailingIngest(t *testing.T) {
	t.Parallel()

	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})
	flaky := &fakeService{name: "ingest-subscriber", fails: 2}
	api := &fakeService{name: "http-server"}
	tree.AddIngestService(flaky)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	waitFor(t, func() bool { return flaky.starts.Load() >= 3 })
	if api.starts.Load() != 1 {
		t.Errorf("api starts = %d, want 1: ingest failures must not restart the api layer", api.starts.Load())
	}

	cancel()
	<-errCh
}

func TestSupervisorTree_RemoveIngestService(t *testing.T) {
	t.Parallel()

	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	svc := &fakeService{name: "ingest-subscriber"}
	token := tree.AddIngestService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	waitFor(t, func() bool { return svc.starts.Load() == 1 })
	if err := tree.RemoveIngestService(token); err != nil {
		t.Fatalf("RemoveIngestService() error = %v", err)
	}
	waitFor(t, func() bool { return svc.stops.Load() == 1 })

	cancel()
	<-errCh
}
