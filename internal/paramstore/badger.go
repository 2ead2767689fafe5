// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package paramstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/fleetmanager/internal/logging"
	"github.com/tomtom215/fleetmanager/internal/metrics"
)

const keyPrefix = "param:"

// BadgerStore keeps parameters in a local BadgerDB, for deployments without
// Parameter Store.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a parameter database at path. An empty path
// keeps everything in memory.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().Str("path", path).Bool("in_memory", path == "").Msg("Parameter store opened")
	return &BadgerStore{db: db}, nil
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func key(name string) []byte {
	return []byte(keyPrefix + name)
}

// Get reads a parameter by name.
func (s *BadgerStore) Get(_ context.Context, name string) (p Parameter, err error) {
	defer func() { metrics.RecordParamOperation("badger", "get", err) }()

	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get parameter: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	if err != nil {
		return Parameter{}, err
	}
	return p, nil
}

// Put validates and writes a parameter, overwriting any previous value.
func (s *BadgerStore) Put(_ context.Context, p Parameter) (err error) {
	defer func() { metrics.RecordParamOperation("badger", "put", err) }()

	if err := p.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal parameter: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(p.Name), data)
	})
}

// CollectGarbage rewrites value log files until no file has more than
// discardRatio of stale data. In-memory databases have nothing to collect.
func (s *BadgerStore) CollectGarbage(_ context.Context, discardRatio float64) error {
	rewrites := 0
	for {
		err := s.db.RunValueLogGC(discardRatio)
		switch {
		case err == nil:
			rewrites++
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrGCInMemoryMode):
			if rewrites > 0 {
				logging.Debug().Int("rewrites", rewrites).Msg("Parameter store value log compacted")
			}
			return nil
		default:
			return fmt.Errorf("value log GC: %w", err)
		}
	}
}
