// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package audit

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/fleetmanager/internal/logging"
)

const keyPrefix = "audit:"

// BadgerStore keeps audit events in a local BadgerDB, ordered by time.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = (*BadgerStore)(nil)

// OpenBadgerStore opens (or creates) an audit database at path. An empty
// path keeps everything in memory.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open audit BadgerDB: %w", err)
	}

	logging.Info().Str("path", path).Bool("in_memory", path == "").Msg("Audit store opened")
	return &BadgerStore{db: db}, nil
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// timeKey is the key prefix for events at t. Zero-padded nanoseconds keep
// byte order equal to time order.
func timeKey(t time.Time) []byte {
	return []byte(fmt.Sprintf("%s%020d:", keyPrefix, t.UnixNano()))
}

// Save persists an audit event.
func (s *BadgerStore) Save(_ context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	k := append(timeKey(event.Timestamp), event.ID...)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, data)
	})
}

// DeleteBefore removes events older than cutoff.
func (s *BadgerStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	limit := timeKey(cutoff)
	var keys [][]byte

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().KeyCopy(nil)
			if bytes.Compare(k, limit) >= 0 {
				break
			}
			keys = append(keys, k)
		}
		return ctx.Err()
	})
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return 0, fmt.Errorf("delete audit event: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush audit deletes: %w", err)
	}
	return int64(len(keys)), nil
}
