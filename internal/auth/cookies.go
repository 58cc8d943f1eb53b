// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

package auth

import "strings"

// sessionCookieNames are the name substrings that indicate a likely backend
// session. The list includes the uppercase variants the backend has shipped
// historically. Matching is case-sensitive; missing our own cookie name here
// would break the preload short-circuit, so false positives against unrelated
// cookies are accepted.
var sessionCookieNames = []string{
	"stockpulse_session",
	"STOCKPULSE_SESSION",
	"__Host-session",
	"session_id",
	"SESSIONID",
	"connect.sid",
}

// HasLikelySessionCookie reports whether the raw cookie header contains a
// known session cookie name. It is a fast offline pre-check only, never an
// authorization decision.
func HasLikelySessionCookie(cookieHeader string) bool {
	if cookieHeader == "" {
		return false
	}
	for _, name := range sessionCookieNames {
		if strings.Contains(cookieHeader, name) {
			return true
		}
	}
	return false
}
