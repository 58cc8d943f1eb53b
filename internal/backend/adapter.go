// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backend provides the REST client for the StockPulse backend.
// It defines the API contract the auth pipeline depends on and an HTTP
// implementation that manages the session cookie and CSRF token lifecycle.
package backend

import (
	"context"

	"stockpulse/cli/internal/auth"
)

// API defines backend operations the CLI depends on.
// Implementations may call real HTTP endpoints or provide fakes for tests.
type API interface {
	// AuthStatus validates the current session and returns the associated
	// user, or nil when the session is anonymous.
	AuthStatus(ctx context.Context) (*auth.User, error)
	// Logout invalidates the current session on the backend.
	Logout(ctx context.Context) error
	// VerifyGoogleCredential exchanges an identity-provider credential for a
	// backend session. The returned CSRF token may be empty; callers then
	// fetch one via EnsureCSRF.
	VerifyGoogleCredential(ctx context.Context, credential string) (*auth.User, string, error)
	// AdminStatus reports whether the current user has admin privileges.
	AdminStatus(ctx context.Context) (bool, error)
	// EnsureCSRF initializes the CSRF token if not already initialized.
	// Idempotent: a present token is never refetched.
	EnsureCSRF(ctx context.Context) error
	// ClearCSRF forgets the CSRF token locally.
	ClearCSRF()
	// CookieHeader returns the current session cookie header, for the
	// offline cookie heuristic.
	CookieHeader() string
	// GetVersion returns the backend version string. No authentication
	// required; doubles as a connectivity check.
	GetVersion(ctx context.Context) (string, error)
}

var _ API = (*HTTP)(nil)

// SecretStore persists the session cookie and CSRF token between runs.
// *keychain.Manager satisfies this.
type SecretStore interface {
	LoadSessionCookie() (string, error)
	SaveSessionCookie(cookie string) error
	LoadCSRFToken() (string, error)
	SaveCSRFToken(token string) error
	ClearSession() error
}
