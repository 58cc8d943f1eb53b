// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

package auth

import "testing"

func TestHasLikelySessionCookie(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{
			name:   "own session cookie",
			header: "stockpulse_session=abc123; theme=dark",
			want:   true,
		},
		{
			name:   "uppercase variant",
			header: "SESSIONID=XYZ",
			want:   true,
		},
		{
			name:   "host prefixed",
			header: "__Host-session=abc",
			want:   true,
		},
		{
			name:   "generic session id",
			header: "lang=en; session_id=42",
			want:   true,
		},
		{
			name:   "unrelated cookies only",
			header: "theme=dark; lang=en; _ga=GA1.2.3",
			want:   false,
		},
		{
			name:   "empty header",
			header: "",
			want:   false,
		},
		{
			name:   "case mismatch does not match",
			header: "Session_ID=42",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasLikelySessionCookie(tt.header); got != tt.want {
				t.Errorf("HasLikelySessionCookie(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}
