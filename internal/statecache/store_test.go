// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

package statecache

import (
	"encoding/json"
	"testing"
	"time"

	"stockpulse/cli/internal/auth"
)

func newTestStore(t *testing.T) (*Store, *MemoryKV) {
	t.Helper()
	kv := NewMemoryKV()
	return New(kv, nil), kv
}

func TestSaveAndLoad(t *testing.T) {
	s, _ := newTestStore(t)

	snap := auth.NewSnapshot(&auth.User{ID: "u1", Email: "u1@example.com"}, auth.SourceNormalCheck, auth.ConfidenceHigh)
	s.Save(snap)

	got := s.Load()
	if got == nil {
		t.Fatal("Load returned nil after Save")
	}
	if got.User == nil || got.User.ID != "u1" {
		t.Errorf("loaded user = %+v, want id u1", got.User)
	}
	if got.Source != auth.SourceCache {
		t.Errorf("loaded source = %q, want cache", got.Source)
	}
	if got.Confidence != auth.ConfidenceMedium {
		t.Errorf("loaded confidence = %q, want medium", got.Confidence)
	}
	if got.Age < 0 {
		t.Errorf("loaded age = %v, want >= 0", got.Age)
	}
}

func TestLoadExpiredDeletesEntry(t *testing.T) {
	s, kv := newTestStore(t)

	snap := auth.NewSnapshot(&auth.User{ID: "u1"}, auth.SourceNormalCheck, auth.ConfidenceHigh)
	s.Save(snap)

	// Rewind the store clock so the entry is just past max age.
	base := time.Now()
	s.now = func() time.Time { return base.Add(DefaultMaxAge + time.Millisecond) }

	if got := s.Load(); got != nil {
		t.Errorf("expired entry was returned: %+v", got)
	}

	// The stale entry must also be gone from the backend.
	data, err := kv.Get(CacheKey)
	if err != nil {
		t.Fatalf("backend get: %v", err)
	}
	if data != nil {
		t.Error("expired entry was not deleted from backend")
	}
}

func TestLoadMalformed(t *testing.T) {
	s, kv := newTestStore(t)

	if err := kv.Set(CacheKey, []byte("{not json")); err != nil {
		t.Fatalf("seed backend: %v", err)
	}
	if got := s.Load(); got != nil {
		t.Errorf("malformed entry was returned: %+v", got)
	}
}

func TestLoadAbsent(t *testing.T) {
	s, _ := newTestStore(t)
	if got := s.Load(); got != nil {
		t.Errorf("Load on empty store = %+v, want nil", got)
	}
}

func TestClearNotifiesNil(t *testing.T) {
	s, _ := newTestStore(t)
	s.Save(auth.NewSnapshot(&auth.User{ID: "u1"}, auth.SourceNormalCheck, auth.ConfidenceHigh))

	var calls []*auth.Snapshot
	unsub := s.Subscribe(func(snap *auth.Snapshot) {
		calls = append(calls, snap)
	})
	defer unsub()

	s.Clear()

	// First call is the replay with the saved snapshot, second is the clear.
	if len(calls) != 2 {
		t.Fatalf("got %d notifications, want 2", len(calls))
	}
	if calls[0] == nil {
		t.Error("replay notification was nil, want saved snapshot")
	}
	if calls[1] != nil {
		t.Errorf("clear notification = %+v, want nil", calls[1])
	}
	if got := s.Load(); got != nil {
		t.Errorf("Load after Clear = %+v, want nil", got)
	}
}

func TestSubscribeReplayOnEmptyStore(t *testing.T) {
	s, _ := newTestStore(t)

	replayed := false
	var replayValue *auth.Snapshot = &auth.Snapshot{} // sentinel, overwritten
	unsub := s.Subscribe(func(snap *auth.Snapshot) {
		replayed = true
		replayValue = snap
	})
	defer unsub()

	if !replayed {
		t.Fatal("subscriber was not invoked at subscribe time")
	}
	if replayValue != nil {
		t.Errorf("replay value = %+v, want nil for empty store", replayValue)
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	s, _ := newTestStore(t)

	count := 0
	unsub := s.Subscribe(func(*auth.Snapshot) { count++ })
	unsub()

	s.Save(auth.NewSnapshot(nil, auth.SourceNormalCheck, auth.ConfidenceHigh))
	if count != 1 { // only the replay
		t.Errorf("got %d notifications after unsubscribe, want 1", count)
	}
}

func TestSaveStorageFailureDegrades(t *testing.T) {
	kv := NewMemoryKV()
	kv.FailWrites = true
	s := New(kv, nil)

	// Must not panic or propagate.
	s.Save(auth.NewSnapshot(&auth.User{ID: "u1"}, auth.SourceNormalCheck, auth.ConfidenceHigh))

	if got := s.Load(); got != nil {
		t.Errorf("Load = %+v, want nil when writes fail", got)
	}
}

func TestNilBackendAlwaysNil(t *testing.T) {
	s := New(nil, nil)
	s.Save(auth.NewSnapshot(&auth.User{ID: "u1"}, auth.SourceNormalCheck, auth.ConfidenceHigh))
	if got := s.Load(); got != nil {
		t.Errorf("Load with nil backend = %+v, want nil", got)
	}
	s.Clear() // must not panic
}

func TestEnvelopeLayout(t *testing.T) {
	// Independent readers depend on the serialized layout; pin it.
	s, kv := newTestStore(t)
	s.Save(auth.NewSnapshot(&auth.User{ID: "u1"}, auth.SourceNormalCheck, auth.ConfidenceHigh))

	data, err := kv.Get(CacheKey)
	if err != nil || data == nil {
		t.Fatalf("backend get: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	for _, field := range []string{"authState", "timestamp", "version"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("envelope missing field %q", field)
		}
	}
	var version string
	if err := json.Unmarshal(raw["version"], &version); err != nil || version != EnvelopeVersion {
		t.Errorf("envelope version = %q, want %q", version, EnvelopeVersion)
	}
}

func TestSetMaxAge(t *testing.T) {
	s, _ := newTestStore(t)
	s.SetMaxAge(10 * time.Millisecond)

	s.Save(auth.NewSnapshot(&auth.User{ID: "u1"}, auth.SourceNormalCheck, auth.ConfidenceHigh))

	base := time.Now()
	s.now = func() time.Time { return base.Add(50 * time.Millisecond) }

	if got := s.Load(); got != nil {
		t.Errorf("entry older than configured max age was returned: %+v", got)
	}
}
