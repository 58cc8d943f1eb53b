// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

package reconcile

import (
	"context"

	"stockpulse/cli/internal/auth"
	"stockpulse/cli/internal/httperrors"
)

// Logout invalidates the server session best-effort and unconditionally
// clears all local state: user, errors, admin flags, the persisted cache,
// and the CSRF token. The identity provider is asked to revoke and disable
// auto-select; failures there are logged, not fatal. A logoutSuccess event
// is published exactly once per call.
func (r *Reconciler) Logout(ctx context.Context) {
	if err := r.api.Logout(ctx); err != nil {
		// Remote invalidation is best-effort; local clearing proceeds.
		r.log.Debug("remote logout failed, clearing local state anyway", "error", err)
	}

	r.mu.Lock()
	r.user = nil
	r.lastErr = nil
	r.blocked = false
	r.clearAdminLocked()
	r.lastSnap = nil
	r.phase = PhaseSettled
	r.loading = false
	r.mu.Unlock()

	r.store.Clear()
	r.api.ClearCSRF()

	if r.identity != nil {
		r.identity.DisableAutoSelect()
		if err := r.identity.Revoke(ctx); err != nil {
			r.log.Debug("identity provider revoke failed", "error", err)
		}
	}

	r.bus.Publish(auth.Event{Type: auth.EventLogoutSuccess})
}

// LoginWithCredential exchanges an identity-provider credential for a
// backend session and adopts the resulting user. The backend may return the
// CSRF token inline; otherwise one is fetched. A loginSuccess event is
// published on success.
func (r *Reconciler) LoginWithCredential(ctx context.Context, credential string) (*auth.User, error) {
	user, csrfToken, err := r.api.VerifyGoogleCredential(ctx, credential)
	if err != nil {
		r.mu.Lock()
		r.lastErr = err
		r.loading = false
		r.phase = PhaseSettled
		r.mu.Unlock()
		return nil, err
	}
	if user == nil {
		err := &httperrors.GenericAuthError{Message: "credential verification returned no user"}
		r.mu.Lock()
		r.lastErr = err
		r.loading = false
		r.phase = PhaseSettled
		r.mu.Unlock()
		return nil, err
	}

	snap := auth.NewSnapshot(user, auth.SourceNormalCheck, auth.ConfidenceHigh)
	r.mu.Lock()
	r.user = user
	r.lastErr = nil
	r.lastSnap = snap
	r.phase = PhaseSettled
	r.loading = false
	r.mu.Unlock()

	r.store.Save(snap)

	if csrfToken == "" {
		if err := r.api.EnsureCSRF(ctx); err != nil {
			r.log.Warn("could not initialize CSRF token after login", "error", err)
		}
	}

	r.bus.Publish(auth.Event{Type: auth.EventLoginSuccess, Snapshot: snap})
	r.bus.Publish(auth.Event{Type: auth.EventStateChanged, Snapshot: snap})

	r.maybeCheckAdmin(ctx, user.ID)
	return user, nil
}
