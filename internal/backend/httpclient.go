// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/oklog/ulid/v2"

	"stockpulse/cli/internal/httperrors"
	"stockpulse/cli/internal/logging"
)

// Endpoints contains the REST API endpoint paths.
type Endpoints struct {
	Status       string `yaml:"status"`
	Logout       string `yaml:"logout"`
	GoogleVerify string `yaml:"google_verify"`
	AdminStatus  string `yaml:"admin_status"`
	CSRFToken    string `yaml:"csrf_token"`
	Version      string `yaml:"version"`
}

// DefaultEndpoints returns the paths served by the production backend.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Status:       "/api/auth/status",
		Logout:       "/api/auth/logout",
		GoogleVerify: "/api/auth/google/verify",
		AdminStatus:  "/api/auth/admin-status",
		CSRFToken:    "/api/auth/csrf-token",
		Version:      "/api/version",
	}
}

// Options configures the HTTP client.
type Options struct {
	Endpoints Endpoints
	Timeout   time.Duration
	Retry     RetryPolicy
	// Secrets persists the session cookie and CSRF token; may be nil, in
	// which case both live only in process memory.
	Secrets SecretStore
	Logger  hclog.Logger
}

// HTTP implements API over REST endpoints. It carries the session cookie on
// every request, stamps each request with a ULID for log correlation, and
// attaches the CSRF token to state-changing requests once initialized.
type HTTP struct {
	baseURL   string
	endpoints Endpoints
	client    *http.Client
	retry     RetryPolicy
	secrets   SecretStore
	log       hclog.Logger

	mu        sync.Mutex
	cookies   map[string]string
	csrfToken string
}

// New creates an HTTP client for the given base URL. Previously persisted
// session cookie and CSRF token are loaded best-effort.
func New(baseURL string, opts Options) *HTTP {
	if opts.Endpoints == (Endpoints{}) {
		opts.Endpoints = DefaultEndpoints()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}

	h := &HTTP{
		baseURL:   strings.TrimRight(baseURL, "/"),
		endpoints: opts.Endpoints,
		client:    &http.Client{Timeout: opts.Timeout},
		retry:     opts.Retry,
		secrets:   opts.Secrets,
		log:       opts.Logger.Named("backend"),
		cookies:   make(map[string]string),
	}
	h.restoreSecrets()
	return h
}

// restoreSecrets loads the persisted session cookie and CSRF token.
func (h *HTTP) restoreSecrets() {
	if h.secrets == nil {
		return
	}
	if cookie, err := h.secrets.LoadSessionCookie(); err == nil && cookie != "" {
		h.setCookieHeader(cookie)
	} else if err != nil {
		h.log.Debug("could not restore session cookie", "error", err)
	}
	if token, err := h.secrets.LoadCSRFToken(); err == nil && token != "" {
		h.mu.Lock()
		h.csrfToken = token
		h.mu.Unlock()
	}
}

// CookieHeader returns the current cookie header string, e.g.
// "stockpulse_session=abc; theme=dark". Pairs are sorted for stable output.
func (h *HTTP) CookieHeader() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.cookies) == 0 {
		return ""
	}
	names := make([]string, 0, len(h.cookies))
	for name := range h.cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+h.cookies[name])
	}
	return strings.Join(pairs, "; ")
}

// setCookieHeader replaces the cookie map from a serialized header string.
func (h *HTTP) setCookieHeader(header string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, part := range strings.Split(header, ";") {
		if name, value, ok := strings.Cut(strings.TrimSpace(part), "="); ok && name != "" {
			h.cookies[name] = value
		}
	}
}

// captureCookies absorbs Set-Cookie headers from a response and persists the
// updated cookie header. An expired cookie (Max-Age<0 or empty value) is
// dropped, which is how the backend clears sessions.
func (h *HTTP) captureCookies(resp *http.Response) {
	set := resp.Cookies()
	if len(set) == 0 {
		return
	}
	h.mu.Lock()
	for _, c := range set {
		if c.Value == "" || c.MaxAge < 0 {
			delete(h.cookies, c.Name)
			continue
		}
		h.cookies[c.Name] = c.Value
	}
	h.mu.Unlock()

	if h.secrets != nil {
		if err := h.secrets.SaveSessionCookie(h.CookieHeader()); err != nil {
			h.log.Warn("could not persist session cookie", "error", err)
		}
	}
}

// csrf returns the current CSRF token, or empty when uninitialized.
func (h *HTTP) csrf() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.csrfToken
}

// setCSRF stores the CSRF token in memory and best-effort persists it.
func (h *HTTP) setCSRF(token string) {
	h.mu.Lock()
	h.csrfToken = token
	h.mu.Unlock()
	if h.secrets != nil && token != "" {
		if err := h.secrets.SaveCSRFToken(token); err != nil {
			h.log.Warn("could not persist CSRF token", "error", err)
		}
	}
}

// ClearCSRF forgets the CSRF token locally.
func (h *HTTP) ClearCSRF() {
	h.mu.Lock()
	h.csrfToken = ""
	h.mu.Unlock()
}

// newRequest builds a request with the standard headers: request ID, cookie
// header, and CSRF token on state-changing methods.
func (h *HTTP) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", ulid.Make().String())
	if cookie := h.CookieHeader(); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	if method != http.MethodGet && method != http.MethodHead {
		if token := h.csrf(); token != "" {
			req.Header.Set("X-CSRF-Token", token)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// doJSON executes the request, classifies failures into the error taxonomy,
// and unmarshals the `data` envelope into out (which may be nil when the
// caller only cares about success). GET requests are retried on transient
// network errors per the configured policy.
func (h *HTTP) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	attempt := func() error {
		var body io.Reader
		if payload != nil {
			b, err := json.Marshal(payload)
			if err != nil {
				return &httperrors.GenericAuthError{Message: err.Error()}
			}
			body = strings.NewReader(string(b))
		}

		req, err := h.newRequest(ctx, method, path, body)
		if err != nil {
			return &httperrors.GenericAuthError{Message: err.Error()}
		}

		resp, err := h.client.Do(req)
		if err != nil {
			return httperrors.ClassifyTransport(err)
		}
		defer resp.Body.Close()

		h.captureCookies(resp)

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return httperrors.ClassifyTransport(err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			h.log.Debug("request rejected",
				"method", method, "path", path, "status", resp.StatusCode,
				"body", logging.Mask(string(raw)))
			return httperrors.ClassifyStatus(resp.StatusCode, raw)
		}

		if out == nil {
			return nil
		}
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return &httperrors.GenericAuthError{Status: resp.StatusCode, Message: "malformed response: " + err.Error()}
		}
		if len(envelope.Data) == 0 {
			return nil
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return &httperrors.GenericAuthError{Status: resp.StatusCode, Message: "malformed response: " + err.Error()}
		}
		return nil
	}

	// Retrying a POST could replay a state change; only GETs are retried.
	if method == http.MethodGet {
		return h.retry.Do(ctx, attempt)
	}
	return attempt()
}

// GetVersion calls the version endpoint and returns the version string when
// available. Unknown or non-OK responses degrade to "unknown".
func (h *HTTP) GetVersion(ctx context.Context) (string, error) {
	var out struct {
		Version string `json:"version"`
	}
	if err := h.doJSON(ctx, http.MethodGet, h.endpoints.Version, nil, &out); err != nil {
		if httperrors.IsTransient(err) {
			return "", err
		}
		return "unknown", nil
	}
	if out.Version == "" {
		return "unknown", nil
	}
	return out.Version, nil
}
