// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeChecker counts status calls and returns a scripted result.
type fakeChecker struct {
	calls atomic.Int32
	user  *User
	err   error
	delay time.Duration
}

func (f *fakeChecker) AuthStatus(ctx context.Context) (*User, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.user, f.err
}

func TestPreloadNoCookiesResolvesOffline(t *testing.T) {
	check := &fakeChecker{user: &User{ID: "u1"}}
	p := NewPreloader(check, func() string { return "" }, nil)

	start := time.Now()
	p.Start()
	snap := p.Wait(context.Background(), time.Second)
	elapsed := time.Since(start)

	if snap == nil {
		t.Fatal("Wait returned nil")
	}
	if snap.Authenticated {
		t.Error("snapshot should be unauthenticated")
	}
	if snap.Source != SourceCookieCheck {
		t.Errorf("source = %q, want cookie_check", snap.Source)
	}
	if snap.Confidence != ConfidenceHigh {
		t.Errorf("confidence = %q, want high", snap.Confidence)
	}
	if elapsed > 50*time.Millisecond {
		t.Errorf("offline resolve took %v, want <50ms", elapsed)
	}
	if n := check.calls.Load(); n != 0 {
		t.Errorf("status endpoint called %d times, want 0", n)
	}
}

func TestPreloadIdempotent(t *testing.T) {
	check := &fakeChecker{user: &User{ID: "u1"}}
	p := NewPreloader(check, func() string { return "stockpulse_session=abc" }, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Start()
		}()
	}
	wg.Wait()

	snap := p.Wait(context.Background(), time.Second)
	if snap == nil || !snap.Authenticated {
		t.Fatalf("snapshot = %+v, want authenticated", snap)
	}
	if snap.Source != SourceAPIPreload {
		t.Errorf("source = %q, want api_preload", snap.Source)
	}
	if n := check.calls.Load(); n != 1 {
		t.Errorf("status endpoint called %d times, want exactly 1", n)
	}
}

func TestPreloadFailureConfidence(t *testing.T) {
	check := &fakeChecker{err: errors.New("connection refused")}
	p := NewPreloader(check, func() string { return "stockpulse_session=abc" }, nil)

	p.Start()
	snap := p.Wait(context.Background(), time.Second)

	if snap == nil {
		t.Fatal("Wait returned nil")
	}
	if snap.Authenticated || snap.User != nil {
		t.Errorf("snapshot = %+v, want unauthenticated", snap)
	}
	if snap.Source != SourcePreloadFailed {
		t.Errorf("source = %q, want preload_failed", snap.Source)
	}
	if snap.Confidence != ConfidenceLow {
		t.Errorf("confidence = %q, want low (cookies were present)", snap.Confidence)
	}
	if snap.Error == "" {
		t.Error("snapshot should carry the failure description")
	}
}

func TestWaitTimeoutReturnsNil(t *testing.T) {
	check := &fakeChecker{user: &User{ID: "u1"}, delay: 500 * time.Millisecond}
	p := NewPreloader(check, func() string { return "stockpulse_session=abc" }, nil)

	p.Start()
	snap := p.Wait(context.Background(), 20*time.Millisecond)
	if snap != nil {
		t.Errorf("Wait during slow check = %+v, want nil", snap)
	}

	// The preload itself still completes and later waiters see the result.
	snap = p.Wait(context.Background(), time.Second)
	if snap == nil || !snap.Authenticated {
		t.Errorf("late Wait = %+v, want authenticated snapshot", snap)
	}
}

func TestPreloadedNilBeforeStart(t *testing.T) {
	p := NewPreloader(&fakeChecker{}, func() string { return "" }, nil)
	if got := p.Preloaded(); got != nil {
		t.Errorf("Preloaded before Start = %+v, want nil", got)
	}
}
