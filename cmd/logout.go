// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"stockpulse/cli/internal/auth"
)

// logoutCmd clears the session everywhere it lives. The backend session is
// invalidated best-effort; local state is removed unconditionally, so logout
// works offline too.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and remove all saved session state",
	Long: `The logout command signs you out of StockPulse. It asks the backend to
invalidate the current session (best-effort; an unreachable backend does not
stop the logout), then removes all local state:

- Session cookie and CSRF token from the OS keychain
- The cached auth snapshot
- The saved Google token, which is revoked at Google when possible

The next sign-in will show the Google account chooser instead of silently
reusing the previous account.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		a := newApp()
		defer a.rec.Close()

		// Wire the identity provider so the Google token is revoked too.
		// Discovery failure (e.g. offline) just skips revocation.
		a.connectIdentity(ctx)

		loggedOut := false
		unsub := a.rec.Events().Subscribe(func(e auth.Event) {
			if e.Type == auth.EventLogoutSuccess {
				loggedOut = true
			}
		})
		defer unsub()

		a.rec.Logout(ctx)

		// The keychain may still hold the session cookie when the backend
		// never got to expire it.
		if a.keys != nil {
			_ = a.keys.ClearSession()
		}

		if loggedOut {
			pterm.Println("✅ Signed out; all saved session state has been removed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
