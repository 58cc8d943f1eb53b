// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package reconcile merges the persisted auth-state cache, the boot-time
// preloader, and live backend checks into one authoritative view of the
// current session. It owns the event bus that notifies the rest of the CLI
// of login, logout, and state changes.
package reconcile

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/time/rate"

	"stockpulse/cli/internal/auth"
	"stockpulse/cli/internal/httperrors"
	"stockpulse/cli/internal/statecache"
)

// Phase is the reconciler's lifecycle state.
type Phase string

const (
	PhaseInit      Phase = "init"
	PhaseResolving Phase = "resolving"
	PhaseSettled   Phase = "settled"
)

// Backend is the slice of the backend API the reconciler depends on.
// *backend.HTTP satisfies this.
type Backend interface {
	AuthStatus(ctx context.Context) (*auth.User, error)
	Logout(ctx context.Context) error
	VerifyGoogleCredential(ctx context.Context, credential string) (*auth.User, string, error)
	AdminStatus(ctx context.Context) (bool, error)
	EnsureCSRF(ctx context.Context) error
	ClearCSRF()
	GetVersion(ctx context.Context) (string, error)
}

// IdentityRevoker is the slice of the identity provider used during logout.
type IdentityRevoker interface {
	DisableAutoSelect()
	Revoke(ctx context.Context) error
}

// Config holds the reconciler timing parameters. The diagnostic windows are
// configurable rather than hard-coded; the shipped defaults (60s / 120s) are
// inherited heuristics with no stronger rationale.
type Config struct {
	// PreloadWait bounds how long a mount waits for the preloader.
	PreloadWait time.Duration
	// RecheckAge is the cached-snapshot age beyond which a background
	// re-validation is scheduled even for medium confidence.
	RecheckAge time.Duration
	// Cold delays apply to direct checks with no preload context; warm
	// delays when a preload ran first. The jitter keeps a burst of process
	// starts from tripping the backend's abuse defenses.
	ColdDelayMin, ColdDelayMax time.Duration
	WarmDelayMin, WarmDelayMax time.Duration
	// SessionDiagEvery rate-limits the diagnostic probe after a session
	// misconfiguration (403); NetworkDiagEvery after a transport failure.
	SessionDiagEvery time.Duration
	NetworkDiagEvery time.Duration
}

// DefaultConfig returns the production timing parameters.
func DefaultConfig() Config {
	return Config{
		PreloadWait:      time.Second,
		RecheckAge:       time.Minute,
		ColdDelayMin:     500 * time.Millisecond,
		ColdDelayMax:     1500 * time.Millisecond,
		WarmDelayMin:     100 * time.Millisecond,
		WarmDelayMax:     400 * time.Millisecond,
		SessionDiagEvery: time.Minute,
		NetworkDiagEvery: 2 * time.Minute,
	}
}

// View is the reconciled state exposed to consumers. Consumers only read;
// all mutation happens through Resolve, Logout, and LoginWithCredential.
type View struct {
	User     *auth.User
	Loading  bool
	Err      error
	Blocked  bool
	IsAdmin  bool
	Phase    Phase
	Snapshot *auth.Snapshot
}

// Reconciler is the auth-state controller. It is explicitly constructed and
// injected; there are no package-level instances.
type Reconciler struct {
	api      Backend
	store    *statecache.Store
	pre      *auth.Preloader
	identity IdentityRevoker
	bus      *auth.Bus
	cfg      Config
	log      hclog.Logger

	mu            sync.Mutex
	phase         Phase
	user          *auth.User
	loading       bool
	lastErr       error
	blocked       bool
	isAdmin       bool
	lastSnap      *auth.Snapshot
	adminChecked  map[string]struct{}
	adminInFlight map[string]struct{}

	sessionDiag *rate.Limiter
	networkDiag *rate.Limiter

	bg sync.WaitGroup
}

// New creates a reconciler. pre and identity may be nil; store must not be.
func New(api Backend, store *statecache.Store, pre *auth.Preloader, identity IdentityRevoker, cfg Config, log hclog.Logger) *Reconciler {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if cfg.PreloadWait <= 0 {
		cfg.PreloadWait = DefaultConfig().PreloadWait
	}
	if cfg.RecheckAge <= 0 {
		cfg.RecheckAge = DefaultConfig().RecheckAge
	}
	sessionEvery := cfg.SessionDiagEvery
	if sessionEvery <= 0 {
		sessionEvery = DefaultConfig().SessionDiagEvery
	}
	networkEvery := cfg.NetworkDiagEvery
	if networkEvery <= 0 {
		networkEvery = DefaultConfig().NetworkDiagEvery
	}
	return &Reconciler{
		api:           api,
		store:         store,
		pre:           pre,
		identity:      identity,
		bus:           auth.NewBus(),
		cfg:           cfg,
		log:           log.Named("reconcile"),
		phase:         PhaseInit,
		loading:       true,
		adminChecked:  make(map[string]struct{}),
		adminInFlight: make(map[string]struct{}),
		sessionDiag:   rate.NewLimiter(rate.Every(sessionEvery), 1),
		networkDiag:   rate.NewLimiter(rate.Every(networkEvery), 1),
	}
}

// Events returns the typed event bus for login/logout/state notifications.
func (r *Reconciler) Events() *auth.Bus { return r.bus }

// State returns the current reconciled view.
func (r *Reconciler) State() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return View{
		User:     r.user,
		Loading:  r.loading,
		Err:      r.lastErr,
		Blocked:  r.blocked,
		IsAdmin:  r.isAdmin,
		Phase:    r.phase,
		Snapshot: r.lastSnap,
	}
}

// Close waits for any background re-validation to finish.
func (r *Reconciler) Close() {
	r.bg.Wait()
}

// Resolve establishes the authoritative auth state: cache first, then the
// preloader (bounded wait), then a direct status check. Loading reaches
// false on every path. The returned error reflects the direct-check outcome
// only; cache and preload adoption never fail.
func (r *Reconciler) Resolve(ctx context.Context) error {
	r.mu.Lock()
	r.phase = PhaseResolving
	r.loading = true
	r.mu.Unlock()

	// Fastest source: the persisted cache. Adopt immediately and only
	// re-validate in the background when trust is low or the entry is aging.
	if snap := r.store.Load(); snap != nil {
		r.log.Debug("adopting cached auth state",
			"authenticated", snap.Authenticated, "age", snap.Age)
		r.adopt(snap)
		if snap.Confidence == auth.ConfidenceLow || snap.Age > r.cfg.RecheckAge {
			r.backgroundRecheck()
		}
		return nil
	}

	// Second source: the boot-time preloader, bounded by PreloadWait.
	if r.pre != nil {
		if snap := r.pre.Wait(ctx, r.cfg.PreloadWait); snap != nil && snap.Confidence != auth.ConfidenceNone {
			r.log.Debug("adopting preloaded auth state",
				"source", snap.Source, "confidence", snap.Confidence)
			r.adopt(snap)
			r.store.Save(snap)
			if snap.Confidence == auth.ConfidenceLow || snap.Source == auth.SourcePreloadFailed {
				r.backgroundRecheck()
			}
			return nil
		}
	}

	// Neither source available: go to the backend directly.
	warm := r.pre != nil && r.pre.Preloaded() != nil
	return r.check(ctx, warm)
}

// adopt installs a snapshot as the authoritative state and settles.
func (r *Reconciler) adopt(snap *auth.Snapshot) {
	r.mu.Lock()
	r.user = snap.User
	if snap.User == nil {
		r.clearAdminLocked()
	}
	r.lastSnap = snap
	r.phase = PhaseSettled
	r.loading = false
	r.mu.Unlock()

	r.bus.Publish(auth.Event{Type: auth.EventStateChanged, Snapshot: snap})

	// The admin sub-check is a network call; adopting a snapshot must not
	// block on it.
	if snap.User != nil {
		userID := snap.User.ID
		r.bg.Add(1)
		go func() {
			defer r.bg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			r.maybeCheckAdmin(ctx, userID)
		}()
	}
}

// check performs the direct status check ("normal check" path) including the
// randomized pre-call delay and full error classification.
func (r *Reconciler) check(ctx context.Context, warm bool) error {
	r.mu.Lock()
	if r.blocked {
		// A blocked address never retries automatically.
		r.loading = false
		r.mu.Unlock()
		return r.lastErr
	}
	r.loading = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.loading = false
		r.phase = PhaseSettled
		r.mu.Unlock()
	}()

	if err := r.throttle(ctx, warm); err != nil {
		return err
	}

	user, err := r.api.AuthStatus(ctx)
	if err != nil {
		return r.handleCheckError(ctx, err)
	}

	snap := auth.NewSnapshot(user, auth.SourceNormalCheck, auth.ConfidenceHigh)
	r.mu.Lock()
	r.user = user
	r.lastErr = nil
	if user == nil {
		r.clearAdminLocked()
	}
	r.lastSnap = snap
	r.mu.Unlock()

	r.store.Save(snap)
	r.bus.Publish(auth.Event{Type: auth.EventStateChanged, Snapshot: snap})

	if user != nil {
		if err := r.api.EnsureCSRF(ctx); err != nil {
			r.log.Warn("could not initialize CSRF token", "error", err)
		}
		r.maybeCheckAdmin(ctx, user.ID)
	}
	return nil
}

// throttle applies the randomized pre-check delay.
func (r *Reconciler) throttle(ctx context.Context, warm bool) error {
	min, max := r.cfg.ColdDelayMin, r.cfg.ColdDelayMax
	if warm {
		min, max = r.cfg.WarmDelayMin, r.cfg.WarmDelayMax
	}
	if max <= 0 {
		return nil
	}
	delay := min
	if span := max - min; span > 0 {
		delay += rand.N(span)
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return httperrors.ClassifyTransport(ctx.Err())
	}
}

// handleCheckError maps a classified status-check failure onto reconciled
// state per the error taxonomy.
func (r *Reconciler) handleCheckError(ctx context.Context, err error) error {
	var blocked *httperrors.BlockedError
	if errors.As(err, &blocked) {
		// Terminal: surface, force logged-out, never retry or diagnose.
		r.log.Warn("backend reports this address as blocked")
		r.mu.Lock()
		r.blocked = true
		r.lastErr = err
		r.user = nil
		r.clearAdminLocked()
		r.mu.Unlock()
		return err
	}

	var sessionErr *httperrors.SessionConfigError
	if errors.As(err, &sessionErr) {
		r.log.Warn("session rejected, forcing logged-out state", "error", err)
		r.mu.Lock()
		r.user = nil
		r.lastErr = err
		r.clearAdminLocked()
		r.mu.Unlock()
		if r.sessionDiag.Allow() {
			r.runDiagnostics(ctx, "session")
		}
		return err
	}

	if httperrors.IsTransient(err) {
		// A connectivity blip must not visibly log the user out.
		r.log.Debug("transient network failure, preserving auth state", "error", err)
		r.mu.Lock()
		r.lastErr = err
		r.mu.Unlock()
		if r.networkDiag.Allow() {
			r.runDiagnostics(ctx, "network")
		}
		return err
	}

	r.log.Warn("status check failed", "error", err)
	r.mu.Lock()
	r.user = nil
	r.lastErr = err
	r.clearAdminLocked()
	r.mu.Unlock()
	return err
}

// runDiagnostics probes basic connectivity and refreshes the CSRF token,
// logging the findings. It is rate-limited by the caller.
func (r *Reconciler) runDiagnostics(ctx context.Context, kind string) {
	version, err := r.api.GetVersion(ctx)
	if err != nil {
		r.log.Info("diagnostic: backend unreachable", "kind", kind, "error", err)
		return
	}
	r.log.Info("diagnostic: backend reachable", "kind", kind, "backend_version", version)

	if kind == "session" {
		// A stale CSRF token is the usual cause of a non-blocked 403.
		r.api.ClearCSRF()
		if err := r.api.EnsureCSRF(ctx); err != nil {
			r.log.Info("diagnostic: CSRF token refresh failed", "error", err)
		} else {
			r.log.Info("diagnostic: CSRF token refreshed")
		}
	}
}

// backgroundRecheck re-validates the adopted state without blocking the
// caller. Skipped entirely for blocked addresses.
func (r *Reconciler) backgroundRecheck() {
	r.mu.Lock()
	if r.blocked {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.bg.Add(1)
	go func() {
		defer r.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = r.check(ctx, true)
	}()
}

// maybeCheckAdmin runs the admin-status sub-check once per user id. An
// in-flight marker absorbs duplicate invocations racing within one resolve;
// a checked marker stops re-checking the same user across re-resolves.
func (r *Reconciler) maybeCheckAdmin(ctx context.Context, userID string) {
	r.mu.Lock()
	if _, done := r.adminChecked[userID]; done {
		r.mu.Unlock()
		return
	}
	if _, running := r.adminInFlight[userID]; running {
		r.mu.Unlock()
		return
	}
	r.adminInFlight[userID] = struct{}{}
	r.mu.Unlock()

	isAdmin, err := r.api.AdminStatus(ctx)
	if err != nil {
		// Fail closed on a privilege flag.
		r.log.Debug("admin status check failed, defaulting to non-admin", "error", err)
		isAdmin = false
	}

	r.mu.Lock()
	delete(r.adminInFlight, userID)
	r.adminChecked[userID] = struct{}{}
	// Only apply if the same user is still current.
	if r.user != nil && r.user.ID == userID {
		r.isAdmin = isAdmin
	}
	r.mu.Unlock()
}

// clearAdminLocked resets admin state when the user becomes null.
// Caller must hold r.mu.
func (r *Reconciler) clearAdminLocked() {
	r.isAdmin = false
	r.adminChecked = make(map[string]struct{})
}
