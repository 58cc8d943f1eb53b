// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"stockpulse/cli/internal/httperrors"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 2 {
			return &httperrors.TransientNetworkError{Err: errors.New("blip")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryOnlyTransient(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return &httperrors.SessionConfigError{Status: 403, Message: "nope"}
	})
	var sessionErr *httperrors.SessionConfigError
	if !errors.As(err, &sessionErr) {
		t.Fatalf("got %T, want *SessionConfigError", err)
	}
	if calls != 1 {
		t.Errorf("non-transient error retried: calls = %d, want 1", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return &httperrors.TransientNetworkError{Err: errors.New("down")}
	})
	if !httperrors.IsTransient(err) {
		t.Fatalf("got %T, want transient", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryRespectsContext(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	start := time.Now()
	_ = p.Do(ctx, func() error {
		calls++
		return &httperrors.TransientNetworkError{Err: errors.New("down")}
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1 with cancelled context", calls)
	}
	if time.Since(start) > time.Second {
		t.Error("Do blocked despite cancelled context")
	}
}
