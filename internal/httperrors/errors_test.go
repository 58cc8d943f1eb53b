// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

package httperrors

import (
	"context"
	"errors"
	"net"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   any
	}{
		{
			name:   "403 with chinese block message",
			status: 403,
			body:   `{"message":"IP 已被封鎖，請聯絡管理員"}`,
			want:   &BlockedError{},
		},
		{
			name:   "403 with english block message",
			status: 403,
			body:   `{"message":"Your IP blocked due to abuse"}`,
			want:   &BlockedError{},
		},
		{
			name:   "403 with structured block code",
			status: 403,
			body:   `{"message":"forbidden","code":"ip_blocked"}`,
			want:   &BlockedError{},
		},
		{
			name:   "plain 403",
			status: 403,
			body:   `{"message":"invalid CSRF token"}`,
			want:   &SessionConfigError{},
		},
		{
			name:   "500",
			status: 500,
			body:   `{"error":"internal"}`,
			want:   &GenericAuthError{},
		},
		{
			name:   "401 non-json body",
			status: 401,
			body:   `unauthorized`,
			want:   &GenericAuthError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyStatus(tt.status, []byte(tt.body))
			switch tt.want.(type) {
			case *BlockedError:
				var e *BlockedError
				if !errors.As(err, &e) {
					t.Errorf("got %T, want *BlockedError", err)
				}
			case *SessionConfigError:
				var e *SessionConfigError
				if !errors.As(err, &e) {
					t.Errorf("got %T, want *SessionConfigError", err)
				}
			case *GenericAuthError:
				var e *GenericAuthError
				if !errors.As(err, &e) {
					t.Errorf("got %T, want *GenericAuthError", err)
				}
			}
		})
	}
}

func TestClassifyTransport(t *testing.T) {
	if ClassifyTransport(nil) != nil {
		t.Error("nil error should classify to nil")
	}

	err := ClassifyTransport(&net.DNSError{Err: "no such host", Name: "stockpulse.app"})
	if !IsTransient(err) {
		t.Errorf("DNS error should classify as transient, got %T", err)
	}

	err = ClassifyTransport(context.DeadlineExceeded)
	if !IsTransient(err) {
		t.Errorf("deadline should classify as transient, got %T", err)
	}
}

func TestIsTimeoutError(t *testing.T) {
	if !IsTimeoutError(context.DeadlineExceeded) {
		t.Error("deadline exceeded should be a timeout")
	}
	if IsTimeoutError(errors.New("connection refused")) {
		t.Error("connection refused is not a timeout")
	}
	if IsTimeoutError(nil) {
		t.Error("nil is not a timeout")
	}
}
