// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"regexp"
	"strings"
)

var (
	reBearer     = regexp.MustCompile(`(?i)(token=|bearer\s+)([A-Za-z0-9._-]+)`)
	reCookie     = regexp.MustCompile(`(?i)((?:__Host-)?[A-Za-z0-9_]*session[A-Za-z0-9_]*=)([^\s;]+)`)
	reCSRF       = regexp.MustCompile(`(?i)(x-csrf-token[:=]\s*)([^\s;]+)`)
	reCredential = regexp.MustCompile(`(?i)(credential"?[:=]\s*"?)([A-Za-z0-9._-]{8,})`)
)

// Mask replaces sensitive values in the input string with "*".
// Session cookies, bearer tokens, CSRF tokens, and identity credentials are
// all masked so raw request/response dumps are safe to log.
func Mask(s string) string {
	out := s
	out = reBearer.ReplaceAllString(out, "$1***")
	out = reCookie.ReplaceAllString(out, "$1***")
	out = reCSRF.ReplaceAllString(out, "$1***")
	out = reCredential.ReplaceAllString(out, "$1***")
	// Basic env-like pairs key=VALUE; mask common secret keys
	for _, k := range []string{"STOCKPULSE_GOOGLE_CLIENT_SECRET", "CSRF_TOKEN"} {
		out = strings.ReplaceAll(out, k+"=", k+"=***")
	}
	return out
}
