// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package identity implements the Google sign-in flow for the CLI. The
// backend only accepts Google ID tokens on its verify endpoint, so this
// package's job is to obtain one: run the OIDC authorization-code flow with
// PKCE against a loopback redirect and hand the verified raw ID token to the
// caller as the credential.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"
)

const (
	issuerURL   = "https://accounts.google.com"
	revokeURL   = "https://oauth2.googleapis.com/revoke"
	flowTimeout = 5 * time.Minute

	tokenKey      = "google_revocable_token"
	autoSelectKey = "google_auto_select_off"
)

// TokenStore persists the revocable Google token and the account-chooser
// flag across CLI runs. *keychain.Manager satisfies this; a nil store keeps
// both in process memory only.
type TokenStore interface {
	Set(key string, data []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
}

// Google runs the OIDC flow against Google's authorization server.
type Google struct {
	cfg      *oauth2.Config
	verifier *oidc.IDTokenVerifier
	store    TokenStore
	log      hclog.Logger

	mu         sync.Mutex
	revocable  string
	autoSelect bool
}

// NewGoogle discovers Google's OIDC endpoints and prepares the flow. The
// redirect URL is filled in per-flow once the loopback listener's port is
// known.
func NewGoogle(ctx context.Context, clientID, clientSecret string, store TokenStore, log hclog.Logger) (*Google, error) {
	if clientID == "" {
		return nil, errors.New("google client id is not configured")
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}

	g := &Google{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		store:      store,
		log:        log.Named("identity"),
		autoSelect: true,
	}
	if store != nil {
		if data, err := store.Get(tokenKey); err == nil && len(data) > 0 {
			g.revocable = string(data)
		}
		if data, err := store.Get(autoSelectKey); err == nil && len(data) > 0 {
			g.autoSelect = false
		}
	}

	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("google oidc discovery failed: %w", err)
	}
	g.cfg.Endpoint = provider.Endpoint()
	g.verifier = provider.Verifier(&oidc.Config{ClientID: clientID})
	return g, nil
}

// ObtainCredential runs the full browser flow and returns the verified raw
// ID token. announce is called with the authorization URL before the browser
// opens, so the caller can print it for copy/paste; it may be nil.
func (g *Google) ObtainCredential(ctx context.Context, announce func(url string)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, flowTimeout)
	defer cancel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("could not open loopback listener: %w", err)
	}
	defer ln.Close()

	state, err := randomToken()
	if err != nil {
		return "", err
	}
	pkce := oauth2.GenerateVerifier()

	cfg := *g.cfg
	cfg.RedirectURL = fmt.Sprintf("http://%s/callback", ln.Addr().String())

	authURL := cfg.AuthCodeURL(state, g.authCodeOptions(pkce)...)
	if announce != nil {
		announce(authURL)
	}
	openBrowser(authURL)

	code, err := g.awaitCallback(ctx, ln, state)
	if err != nil {
		return "", err
	}

	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(pkce))
	if err != nil {
		return "", fmt.Errorf("google token exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", errors.New("google did not return an id_token")
	}
	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", fmt.Errorf("google id_token verification failed: %w", err)
	}

	var claims struct {
		Subject string `json:"sub"`
		Email   string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return "", fmt.Errorf("google id_token claims parse failed: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("google id_token missing subject claim")
	}

	// Revoking either token of the pair invalidates both.
	revocable := token.RefreshToken
	if revocable == "" {
		revocable = token.AccessToken
	}
	g.mu.Lock()
	g.revocable = revocable
	g.autoSelect = true
	g.mu.Unlock()
	if g.store != nil {
		if revocable != "" {
			if err := g.store.Set(tokenKey, []byte(revocable)); err != nil {
				g.log.Warn("could not persist google token", "error", err)
			}
		}
		_ = g.store.Delete(autoSelectKey)
	}

	g.log.Debug("google sign-in completed", "email_present", claims.Email != "")
	return rawIDToken, nil
}

// authCodeOptions assembles the PKCE parameters plus the account chooser
// override when auto-select has been disabled by a prior logout.
func (g *Google) authCodeOptions(pkce string) []oauth2.AuthCodeOption {
	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOnline,
		oauth2.S256ChallengeOption(pkce),
	}
	g.mu.Lock()
	if !g.autoSelect {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", "select_account"))
	}
	g.mu.Unlock()
	return opts
}

// awaitCallback serves the loopback redirect until Google delivers the
// authorization code or the context expires.
func (g *Google) awaitCallback(ctx context.Context, ln net.Listener, state string) (string, error) {
	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code, err := parseCallback(r.URL.Query(), state)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
		} else {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, "<html><body>Signed in. You can close this tab and return to the terminal.</body></html>")
		}
		select {
		case results <- result{code: code, err: err}:
		default:
		}
	})}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	select {
	case res := <-results:
		return res.code, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("sign-in was not completed: %w", ctx.Err())
	}
}

// parseCallback validates the redirect parameters from Google.
func parseCallback(q url.Values, wantState string) (string, error) {
	if errCode := q.Get("error"); errCode != "" {
		return "", fmt.Errorf("google sign-in denied: %s", errCode)
	}
	if q.Get("state") != wantState {
		return "", errors.New("state parameter mismatch, aborting sign-in")
	}
	code := q.Get("code")
	if code == "" {
		return "", errors.New("callback carried no authorization code")
	}
	return code, nil
}

// DisableAutoSelect makes the next sign-in show the account chooser instead
// of silently reusing the last Google account. Called on logout.
func (g *Google) DisableAutoSelect() {
	g.mu.Lock()
	g.autoSelect = false
	g.mu.Unlock()
	if g.store != nil {
		_ = g.store.Set(autoSelectKey, []byte("1"))
	}
}

// Revoke invalidates the tokens from the last sign-in at Google. Best-effort:
// having no token to revoke is not an error.
func (g *Google) Revoke(ctx context.Context) error {
	g.mu.Lock()
	revocable := g.revocable
	g.revocable = ""
	g.mu.Unlock()
	if g.store != nil {
		_ = g.store.Delete(tokenKey)
	}

	if revocable == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeURL,
		strings.NewReader(url.Values{"token": {revocable}}.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("google token revocation returned status %d", resp.StatusCode)
	}
	g.log.Debug("google tokens revoked")
	return nil
}

func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate state token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// openBrowser launches the platform's default browser without waiting for it.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}
