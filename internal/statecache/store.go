// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package statecache persists the most recent auth snapshot across CLI runs.
// It wraps a pluggable key-value backend (OS keychain, state-dir file, or
// in-memory for tests) with an expiry policy and subscriber notification.
//
// Storage failures never propagate: a broken backend degrades the cache to
// "always empty" and the rest of the pipeline runs uncached.
package statecache

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"stockpulse/cli/internal/auth"
	"stockpulse/cli/internal/httperrors"
)

// CacheKey is the backend key under which the envelope is stored. Other
// readers of the same store must treat the value as opaque JSON.
const CacheKey = "auth_state_cache"

// EnvelopeVersion is bumped when the serialized layout changes.
const EnvelopeVersion = "1.0"

// DefaultMaxAge is the expiry threshold for cached snapshots.
const DefaultMaxAge = 5 * time.Minute

// envelope is the serialized layout of a cache entry.
type envelope struct {
	AuthState auth.Snapshot `json:"authState"`
	Timestamp int64         `json:"timestamp"`
	Version   string        `json:"version"`
}

// Store is the persisted auth-state cache. All mutation of the underlying
// key goes through Save and Clear; no other component may write it directly.
type Store struct {
	mu     sync.Mutex
	kv     KV
	maxAge time.Duration
	subs   map[int]func(*auth.Snapshot)
	nextID int
	log    hclog.Logger
	now    func() time.Time
}

// New creates a store over the given backend. A nil backend is allowed and
// yields a store that always loads nil, per the degraded-storage contract.
func New(kv KV, log hclog.Logger) *Store {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Store{
		kv:     kv,
		maxAge: DefaultMaxAge,
		subs:   make(map[int]func(*auth.Snapshot)),
		log:    log.Named("statecache"),
		now:    time.Now,
	}
}

// SetMaxAge reconfigures the expiry threshold.
func (s *Store) SetMaxAge(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.maxAge = d
	}
}

// Save serializes the snapshot and writes it to the backend, then notifies
// subscribers. Storage failures are logged and swallowed.
func (s *Store) Save(snap *auth.Snapshot) {
	if snap == nil {
		return
	}
	s.mu.Lock()
	if s.kv != nil {
		env := envelope{
			AuthState: *snap,
			Timestamp: s.now().UnixMilli(),
			Version:   EnvelopeVersion,
		}
		data, err := json.Marshal(env)
		if err == nil {
			err = s.kv.Set(CacheKey, data)
		}
		if err != nil {
			serr := &httperrors.StorageError{Op: "save", Err: err}
			s.log.Warn("could not persist auth state", "error", serr)
		}
	}
	s.mu.Unlock()

	s.notify(snap)
}

// Load reads the cached snapshot. It returns nil when the entry is absent,
// malformed, or older than the configured max age; expired entries are
// deleted as a side effect. A successfully loaded snapshot is re-tagged with
// cache provenance and medium confidence, and its Age is populated.
func (s *Store) Load() *auth.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kv == nil {
		return nil
	}
	data, err := s.kv.Get(CacheKey)
	if err != nil {
		serr := &httperrors.StorageError{Op: "load", Err: err}
		s.log.Warn("could not read auth state cache", "error", serr)
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.log.Warn("discarding malformed auth state cache", "error", err)
		_ = s.kv.Delete(CacheKey)
		return nil
	}

	age := s.now().Sub(time.UnixMilli(env.Timestamp))
	if age > s.maxAge {
		s.log.Debug("auth state cache expired", "age", age, "max_age", s.maxAge)
		if err := s.kv.Delete(CacheKey); err != nil {
			s.log.Warn("could not delete expired auth state", "error", err)
		}
		return nil
	}

	snap := env.AuthState
	snap.Source = auth.SourceCache
	snap.Confidence = auth.ConfidenceMedium
	snap.Age = age
	return &snap
}

// Clear deletes the cached entry and notifies subscribers with nil.
func (s *Store) Clear() {
	s.mu.Lock()
	if s.kv != nil {
		if err := s.kv.Delete(CacheKey); err != nil {
			serr := &httperrors.StorageError{Op: "clear", Err: err}
			s.log.Warn("could not clear auth state cache", "error", serr)
		}
	}
	s.mu.Unlock()

	s.notify(nil)
}

// Subscribe registers a listener invoked on every Save and Clear. The
// listener is also invoked immediately with the current state, so late
// subscribers observe the same value as early ones. The returned function
// unsubscribes.
func (s *Store) Subscribe(fn func(*auth.Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	// Replay-on-subscribe.
	fn(s.Load())

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify(snap *auth.Snapshot) {
	s.mu.Lock()
	fns := make([]func(*auth.Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
