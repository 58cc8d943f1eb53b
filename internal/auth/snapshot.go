// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package auth holds the leaf types of the authentication pipeline: the
// reconciled snapshot with its provenance, the session-cookie heuristic, the
// typed event bus, and the boot-time preloader.
package auth

import "time"

// Source records where a snapshot came from. It drives logging and
// reconciliation decisions only; it is never shown to end users.
type Source string

const (
	// SourceCookieCheck means the snapshot was derived offline from the
	// absence of a likely session cookie.
	SourceCookieCheck Source = "cookie_check"
	// SourceAPIPreload means the boot-time preloader verified the state
	// against the backend.
	SourceAPIPreload Source = "api_preload"
	// SourceCache means the snapshot was read from the persisted state cache.
	SourceCache Source = "cache"
	// SourcePreloadFailed means the preloader's network check failed and the
	// snapshot is a pessimistic placeholder.
	SourcePreloadFailed Source = "preload_failed"
	// SourceNormalCheck means the reconciler performed a direct status check.
	SourceNormalCheck Source = "normal_check"
)

// Confidence is the qualitative trust level of a snapshot. Low-confidence
// snapshots trigger a background re-validation; high-confidence ones do not.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// User is the authenticated account as returned by the backend. Identity is
// opaque to the reconciliation pipeline; only ID participates in dedup logic.
type User struct {
	ID               string `json:"id"`
	Email            string `json:"email,omitempty"`
	Name             string `json:"name,omitempty"`
	Picture          string `json:"picture,omitempty"`
	SubscriptionTier string `json:"subscriptionTier,omitempty"`
}

// Snapshot is the reconciled authentication state record. Exactly one
// snapshot is authoritative at any time: the most recently reconciled one.
type Snapshot struct {
	Authenticated bool       `json:"isAuthenticated"`
	User          *User      `json:"user"`
	Source        Source     `json:"source"`
	Confidence    Confidence `json:"confidence"`
	// Timestamp is the creation time in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
	// Error carries the failure description for preload_failed snapshots.
	Error string `json:"error,omitempty"`

	// Age is derived at read time (now - Timestamp). Never persisted.
	Age time.Duration `json:"-"`
}

// NewSnapshot builds a snapshot stamped with the current time.
// Authenticated is forced to agree with the presence of a user record.
func NewSnapshot(user *User, source Source, confidence Confidence) *Snapshot {
	return &Snapshot{
		Authenticated: user != nil,
		User:          user,
		Source:        source,
		Confidence:    confidence,
		Timestamp:     time.Now().UnixMilli(),
	}
}

// AgeAt returns the snapshot age relative to now.
func (s *Snapshot) AgeAt(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(s.Timestamp))
}
