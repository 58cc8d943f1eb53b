// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"time"

	"stockpulse/cli/internal/httperrors"
)

// RetryPolicy is an explicit bounded retry schedule for transient network
// failures. It replaces ad hoc retry-with-longer-timeout recursion: the
// attempt count and backoff are configuration, not call-site behavior.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy retries transient failures twice after the first
// attempt, starting at half a second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond}
}

// Do calls fn up to MaxAttempts times with exponential backoff starting at
// BaseDelay. Only transient network errors are retried; any other error
// returns immediately. The function respects context cancellation between
// retries.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = fn()
		if err == nil || !httperrors.IsTransient(err) {
			return err
		}

		// Don't sleep after the last failed attempt.
		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return err
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return err
}
