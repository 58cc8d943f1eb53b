// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors defines the error taxonomy for backend requests and
// classifies raw transport failures into it. No raw transport error escapes
// the backend boundary; callers always see one of the types defined here.
package httperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// BlockedError indicates the backend refused the request because the caller's
// IP is blocked. Terminal: no retry, no diagnostics.
type BlockedError struct {
	Message string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("access blocked by server: %s", e.Message)
}

// SessionConfigError is an HTTP 403 that does not carry a block indicator.
// It usually means the session or CSRF token is misconfigured or expired.
type SessionConfigError struct {
	Status  int
	Message string
}

func (e *SessionConfigError) Error() string {
	return fmt.Sprintf("session rejected (%d): %s", e.Status, e.Message)
}

// TransientNetworkError means no HTTP response was received at all (offline,
// DNS failure, connection refused, timeout). Callers should preserve previous
// state rather than treating the user as logged out.
type TransientNetworkError struct {
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// GenericAuthError is any other backend failure. It forces a logged-out view.
type GenericAuthError struct {
	Status  int
	Message string
}

func (e *GenericAuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("auth request failed (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("auth request failed: %s", e.Message)
}

// StorageError indicates the local persistence layer is unavailable. It is
// logged and swallowed by the state cache; the system degrades to uncached
// operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("state storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// blockIndicators are matched against 403 payload messages. The upstream
// contract only exposes a free-text message for IP blocks; the structured
// "ip_blocked" code is also accepted for when the backend grows one.
var blockIndicators = []string{
	"IP 已被封鎖",
	"IP blocked",
	"ip has been blocked",
}

// errorPayload is the error body shape returned by the backend.
type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Error   string `json:"error"`
}

// ClassifyTransport converts a transport-level error (no HTTP response) into
// the taxonomy. A nil error returns nil.
func ClassifyTransport(err error) error {
	if err == nil {
		return nil
	}
	return &TransientNetworkError{Err: err}
}

// ClassifyStatus converts a non-2xx HTTP response into the taxonomy.
// The body is the already-read response payload.
func ClassifyStatus(status int, body []byte) error {
	msg, code := parseErrorBody(body)
	if status == http.StatusForbidden {
		if code == "ip_blocked" || containsBlockIndicator(msg) {
			return &BlockedError{Message: msg}
		}
		return &SessionConfigError{Status: status, Message: msg}
	}
	return &GenericAuthError{Status: status, Message: msg}
}

// parseErrorBody extracts a human-readable message and optional structured
// code from an error payload. Non-JSON bodies are used verbatim.
func parseErrorBody(body []byte) (msg string, code string) {
	var p errorPayload
	if err := json.Unmarshal(body, &p); err == nil {
		if p.Message != "" {
			return p.Message, p.Code
		}
		if p.Error != "" {
			return p.Error, p.Code
		}
		return "", p.Code
	}
	return strings.TrimSpace(string(body)), ""
}

func containsBlockIndicator(msg string) bool {
	for _, ind := range blockIndicators {
		if strings.Contains(msg, ind) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is (or wraps) a TransientNetworkError.
func IsTransient(err error) bool {
	var te *TransientNetworkError
	return errors.As(err, &te)
}

// IsTimeoutError checks if the error is a timeout error.
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// IsDNSError checks if the error is a DNS resolution error.
func IsDNSError(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// IsConnectionRefusedError checks if the error is a connection refused error.
func IsConnectionRefusedError(err error) bool {
	if err == nil {
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, syscall.ECONNREFUSED)
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused")
}
