// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stockpulse/cli/internal/httperrors"
)

// whoamiCmd shows the current signed-in account. It resolves the reconciled
// auth state, which falls back to the cached snapshot when the backend is
// unreachable, so whoami keeps working offline.
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the currently signed-in account",
	Long: `The whoami command displays the account you are currently signed in as.
The answer comes from the reconciled auth state: a fresh cached snapshot is
trusted directly, otherwise the backend is consulted. A network outage falls
back to the last known state rather than claiming you are signed out.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		a := newApp()
		defer a.rec.Close()

		err := a.rec.Resolve(ctx)
		v := a.rec.State()
		if v.Blocked {
			return err
		}
		if err != nil && v.User == nil && httperrors.IsTransient(err) {
			return err
		}

		if v.User == nil {
			fmt.Println("🔒 You're not logged in yet!")
			fmt.Println("   Run 'stockpulse login' to get started.")
			return nil
		}
		fmt.Printf("👤 Current user: %s\n", userLabel(v.User))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
