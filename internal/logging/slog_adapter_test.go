// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSlogHandlerWritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	defer Init(DefaultConfig())

	logger := slog.New(NewSlogHandler(zerolog.New(&buf)))
	logger.Warn("service restarted", "service", "ingest", "attempt", 2)

	output := buf.String()
	for _, want := range []string{`"level":"warn"`, `"service":"ingest"`, `"attempt":2`, "service restarted"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output: %s", want, output)
		}
	}
}

func TestSlogHandlerGroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	defer Init(DefaultConfig())

	logger := slog.New(NewSlogHandler(zerolog.New(&buf))).
		With("supervisor", "root").
		WithGroup("event")
	logger.Info("terminated", "name", "api-layer")

	output := buf.String()
	if !strings.Contains(output, `"event.supervisor":"root"`) && !strings.Contains(output, `"supervisor":"root"`) {
		t.Errorf("expected supervisor attr in output: %s", output)
	}
	if !strings.Contains(output, `"event.name":"api-layer"`) {
		t.Errorf("expected grouped key in output: %s", output)
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := slogToZerologLevel(tt.in); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
