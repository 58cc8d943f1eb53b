// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package logging provides the shared structured logger and utilities for
// masking sensitive values before they reach log output.
//
// The package helps ensure that session cookies, CSRF tokens, and identity
// credentials are not accidentally exposed in logs or error messages shown
// to users.
package logging

import (
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// New creates the root structured logger at the given level.
// Supported levels: "trace", "debug", "info", "warn", "error". Unrecognized
// values fall back to "info". Sub-components should derive named loggers via
// logger.Named.
func New(level string) hclog.Logger {
	lvl := hclog.LevelFromString(strings.ToLower(level))
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "stockpulse",
		Level:  lvl,
		Output: os.Stderr,
	})
}
