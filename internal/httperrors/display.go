// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

package httperrors

import (
	"errors"
	"strings"

	"github.com/pterm/pterm"
)

// Display prints a user-friendly message for a classified error.
// context describes what the CLI was doing, e.g. "checking login status".
func Display(err error, context string) {
	if err == nil {
		return
	}

	var blocked *BlockedError
	if errors.As(err, &blocked) {
		showBlockedError(blocked)
		return
	}

	var transient *TransientNetworkError
	if errors.As(err, &transient) {
		showNetworkError(transient.Err, context)
		return
	}

	var sessionErr *SessionConfigError
	if errors.As(err, &sessionErr) {
		pterm.Warning.Printf("Your session was rejected while %s.\n", context)
		pterm.Println("   Try logging in again with 'stockpulse login'.")
		return
	}

	pterm.Error.Printf("Request failed while %s: %v\n", context, err)
}

// showBlockedError displays the terminal IP-block warning. There is no retry
// hint on purpose: retries will not help a blocked address.
func showBlockedError(e *BlockedError) {
	pterm.Error.Println("Access to StockPulse has been blocked for your network address.")
	if e.Message != "" {
		pterm.Printf("   Server said: %s\n", e.Message)
	}
	pterm.Println()
	pterm.Println("If you believe this is a mistake, please contact support.")
}

// showNetworkError displays a troubleshooting message based on the kind of
// transport failure.
func showNetworkError(err error, context string) {
	switch {
	case IsTimeoutError(err):
		pterm.Printf("⏱  Connection timeout while %s\n", context)
		pterm.Println()
		pterm.Println("The server took too long to respond. This could mean:")
		pterm.Println("  • Slow internet connection")
		pterm.Println("  • Server is under heavy load")
		pterm.Println()
		pterm.Println("Your cached login state is unchanged. Try again in a few moments.")
	case IsDNSError(err):
		pterm.Printf("🌐 Cannot resolve server address while %s\n", context)
		pterm.Println()
		pterm.Println("Unable to look up stockpulse.app. Please check:")
		pterm.Println("  • Your internet connection is working")
		pterm.Println("  • DNS settings are correct")
	case IsConnectionRefusedError(err):
		pterm.Printf("🚫 Connection refused while %s\n", context)
		pterm.Println()
		pterm.Println("The server is not accepting connections. Please try again later.")
	default:
		pterm.Printf("❌ Cannot reach StockPulse while %s\n", context)
		pterm.Println()
		pterm.Println("Please check your internet connection and firewall settings.")
		if details := err.Error(); details != "" {
			short := details
			if len(short) > 100 {
				short = short[:100] + "..."
			}
			pterm.Debug.Printf("Technical details: %s\n", strings.TrimSpace(short))
		}
	}
}
