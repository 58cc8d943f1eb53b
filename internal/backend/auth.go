// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"net/http"

	"stockpulse/cli/internal/auth"
)

// AuthStatus calls GET /api/auth/status and returns the session's user, or
// nil when the session is anonymous. Errors are always classified into the
// httperrors taxonomy.
func (h *HTTP) AuthStatus(ctx context.Context) (*auth.User, error) {
	var out struct {
		User *auth.User `json:"user"`
	}
	if err := h.doJSON(ctx, http.MethodGet, h.endpoints.Status, nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Logout calls POST /api/auth/logout to invalidate the server session. The
// response body is ignored beyond success/failure.
func (h *HTTP) Logout(ctx context.Context) error {
	return h.doJSON(ctx, http.MethodPost, h.endpoints.Logout, nil, nil)
}

// VerifyGoogleCredential calls POST /api/auth/google/verify to exchange an
// identity-provider credential for a backend session. The backend may return
// the CSRF token inline; when it does, the token is adopted immediately.
func (h *HTTP) VerifyGoogleCredential(ctx context.Context, credential string) (*auth.User, string, error) {
	payload := map[string]string{"credential": credential}
	var out struct {
		User      *auth.User `json:"user"`
		CSRFToken string     `json:"csrfToken"`
	}
	if err := h.doJSON(ctx, http.MethodPost, h.endpoints.GoogleVerify, payload, &out); err != nil {
		return nil, "", err
	}
	if out.CSRFToken != "" {
		h.setCSRF(out.CSRFToken)
	}
	return out.User, out.CSRFToken, nil
}

// AdminStatus calls GET /api/auth/admin-status for the current session.
func (h *HTTP) AdminStatus(ctx context.Context) (bool, error) {
	var out struct {
		IsAdmin bool `json:"isAdmin"`
	}
	if err := h.doJSON(ctx, http.MethodGet, h.endpoints.AdminStatus, nil, &out); err != nil {
		return false, err
	}
	return out.IsAdmin, nil
}

// EnsureCSRF fetches and stores a CSRF token if none is initialized yet.
// Idempotent: an existing token is kept as-is.
func (h *HTTP) EnsureCSRF(ctx context.Context) error {
	if h.csrf() != "" {
		return nil
	}
	var out struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := h.doJSON(ctx, http.MethodGet, h.endpoints.CSRFToken, nil, &out); err != nil {
		return err
	}
	if out.CSRFToken != "" {
		h.setCSRF(out.CSRFToken)
	}
	return nil
}
