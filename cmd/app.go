// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"

	"stockpulse/cli/internal/auth"
	"stockpulse/cli/internal/backend"
	"stockpulse/cli/internal/config"
	"stockpulse/cli/internal/identity"
	"stockpulse/cli/internal/keychain"
	"stockpulse/cli/internal/logging"
	"stockpulse/cli/internal/reconcile"
	"stockpulse/cli/internal/statecache"
)

// app bundles the wired components every command works against. Each command
// invocation builds its own app; nothing is shared through package state.
type app struct {
	cfg   config.Config
	log   hclog.Logger
	keys  *keychain.Manager
	store *statecache.Store
	api   backend.API
	pre   *auth.Preloader
	rec   *reconcile.Reconciler
}

// newApp loads configuration and wires the full auth pipeline. The preloader
// is started immediately so its optimistic status check overlaps with
// whatever the command does next.
func newApp() *app {
	cfg, err := config.Load()
	log := logging.New(cfg.LogLevel)
	if err != nil {
		log.Warn("could not load config, using defaults", "error", err)
	}

	var keys *keychain.Manager
	var secrets backend.SecretStore
	if km, kerr := keychain.NewManager(); kerr == nil {
		keys = km
		secrets = km
	} else {
		log.Debug("keychain unavailable, session will not persist", "error", kerr)
	}

	api := backend.New(cfg.BaseURL, backend.Options{
		Timeout: cfg.HTTPTimeout(),
		Retry: backend.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
		},
		Secrets: secrets,
		Logger:  log,
	})

	store := statecache.New(statecache.Open(log), log)
	store.SetMaxAge(cfg.CacheMaxAge())

	pre := auth.NewPreloader(api, api.CookieHeader, log)
	pre.Start()

	a := &app{
		cfg:   cfg,
		log:   log,
		keys:  keys,
		store: store,
		api:   api,
		pre:   pre,
	}
	a.rec = reconcile.New(api, store, pre, nil, a.reconcileConfig(), log)
	return a
}

// connectIdentity wires the Google provider into the reconciler. Returns nil
// when the provider cannot be initialized (no client id configured, or OIDC
// discovery unreachable); commands degrade accordingly.
func (a *app) connectIdentity(ctx context.Context) *identity.Google {
	var store identity.TokenStore
	if a.keys != nil {
		store = a.keys
	}
	g, err := identity.NewGoogle(ctx, a.cfg.Google.ClientID, a.cfg.Google.ClientSecret, store, a.log)
	if err != nil {
		a.log.Debug("google identity provider unavailable", "error", err)
		return nil
	}
	a.rec = reconcile.New(a.api, a.store, a.pre, g, a.reconcileConfig(), a.log)
	return g
}

func (a *app) reconcileConfig() reconcile.Config {
	rc := a.cfg.Reconcile
	return reconcile.Config{
		PreloadWait:      time.Duration(rc.PreloadWaitMS) * time.Millisecond,
		RecheckAge:       time.Duration(rc.RecheckAgeSeconds) * time.Second,
		ColdDelayMin:     time.Duration(rc.ColdDelayMinMS) * time.Millisecond,
		ColdDelayMax:     time.Duration(rc.ColdDelayMaxMS) * time.Millisecond,
		WarmDelayMin:     time.Duration(rc.WarmDelayMinMS) * time.Millisecond,
		WarmDelayMax:     time.Duration(rc.WarmDelayMaxMS) * time.Millisecond,
		SessionDiagEvery: time.Duration(rc.SessionDiagSeconds) * time.Second,
		NetworkDiagEvery: time.Duration(rc.NetworkDiagSeconds) * time.Second,
	}
}
