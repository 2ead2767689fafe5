// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package paramstore

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/fleetmanager/internal/cache"
)

// CachedStore fronts another Store with a TTL cache. Every UI page load
// reads the same few parameters, and Parameter Store throttles GetParameter.
// Concurrent misses for one name share a single backend read.
type CachedStore struct {
	next  Store
	cache *cache.LRU[Parameter]
	group singleflight.Group

	// gens counts completed Puts per name. A read only fills the cache if
	// no Put finished while it was in flight.
	mu   sync.Mutex
	gens map[string]uint64
}

// NewCachedStore caches up to size parameters for ttl.
func NewCachedStore(next Store, size int, ttl time.Duration) *CachedStore {
	return &CachedStore{
		next:  next,
		cache: cache.NewLRU[Parameter](size, ttl),
		gens:  make(map[string]uint64),
	}
}

// Get returns a cached parameter or reads it through. Misses are not cached.
// The shared backend read is not tied to any one caller's context; each
// caller stops waiting when its own ctx is done.
func (s *CachedStore) Get(ctx context.Context, name string) (Parameter, error) {
	if p, ok := s.cache.Get(name); ok {
		return p, nil
	}

	readCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(name, func() (interface{}, error) {
		s.mu.Lock()
		gen := s.gens[name]
		s.mu.Unlock()

		p, err := s.next.Get(readCtx, name)
		if err != nil {
			return Parameter{}, err
		}

		s.mu.Lock()
		if s.gens[name] == gen {
			s.cache.Add(name, p)
		}
		s.mu.Unlock()
		return p, nil
	})

	select {
	case <-ctx.Done():
		return Parameter{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Parameter{}, res.Err
		}
		return res.Val.(Parameter), nil
	}
}

// Put writes through and drops the cached copy. Reads already in flight
// neither refill the cache nor are joined by later callers.
func (s *CachedStore) Put(ctx context.Context, p Parameter) error {
	if err := s.next.Put(ctx, p); err != nil {
		return err
	}
	s.mu.Lock()
	s.gens[p.Name]++
	s.cache.Remove(p.Name)
	s.mu.Unlock()
	s.group.Forget(p.Name)
	return nil
}
