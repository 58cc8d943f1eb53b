// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// StatusChecker is the single backend operation the preloader needs.
type StatusChecker interface {
	AuthStatus(ctx context.Context) (*User, error)
}

// Preloader produces a best-effort auth snapshot at process start, before
// any command logic runs. It combines the cookie heuristic with at most one
// optimistic status check: when no session cookie is present the doomed
// network request is skipped entirely.
//
// Start is idempotent; concurrent callers share one in-flight check and
// observe the same resolved snapshot.
type Preloader struct {
	check        StatusChecker
	cookieSource func() string
	checkTimeout time.Duration
	log          hclog.Logger

	once    sync.Once
	done    chan struct{}
	mu      sync.Mutex
	result  *Snapshot
	started time.Time
}

// NewPreloader creates a preloader. cookieSource returns the current raw
// cookie header for the heuristic; it is called once, at preload start.
func NewPreloader(check StatusChecker, cookieSource func() string, log hclog.Logger) *Preloader {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Preloader{
		check:        check,
		cookieSource: cookieSource,
		checkTimeout: 5 * time.Second,
		log:          log.Named("preload"),
		done:         make(chan struct{}),
	}
}

// Start kicks off the preload in the background. Repeated calls are no-ops;
// the first result sticks.
func (p *Preloader) Start() {
	p.once.Do(func() {
		p.mu.Lock()
		p.started = time.Now()
		p.mu.Unlock()
		go p.run()
	})
}

func (p *Preloader) run() {
	hasCookies := HasLikelySessionCookie(p.cookieSource())
	if !hasCookies {
		// No session cookie means no session; skip the doomed request.
		p.log.Debug("no session cookie, resolving unauthenticated offline")
		p.resolve(NewSnapshot(nil, SourceCookieCheck, ConfidenceHigh))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.checkTimeout)
	defer cancel()

	user, err := p.check.AuthStatus(ctx)
	if err != nil {
		confidence := ConfidenceMedium
		if hasCookies {
			// A cookie was present but the check failed; the user may well
			// still be authenticated.
			confidence = ConfidenceLow
		}
		snap := NewSnapshot(nil, SourcePreloadFailed, confidence)
		snap.Error = err.Error()
		p.log.Debug("preload status check failed", "error", err, "confidence", confidence)
		p.resolve(snap)
		return
	}

	p.log.Debug("preload status check succeeded",
		"authenticated", user != nil, "elapsed", time.Since(p.started))
	p.resolve(NewSnapshot(user, SourceAPIPreload, ConfidenceHigh))
}

func (p *Preloader) resolve(snap *Snapshot) {
	p.mu.Lock()
	p.result = snap
	p.mu.Unlock()
	close(p.done)
}

// Preloaded returns the resolved snapshot, or nil while the preload is still
// in flight (or was never started).
func (p *Preloader) Preloaded() *Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

// Wait blocks until the preload resolves, the timeout elapses, or ctx is
// cancelled, and returns whatever state is available at that point (possibly
// nil). It never returns an error; a timed-out preload simply yields nil.
func (p *Preloader) Wait(ctx context.Context, timeout time.Duration) *Snapshot {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.done:
	case <-timer.C:
	case <-ctx.Done():
	}
	return p.Preloaded()
}
