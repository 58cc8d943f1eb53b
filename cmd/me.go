// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// meCmd shows the full profile of the signed-in account, including the
// subscription tier and the admin flag resolved by the one-time sub-check.
var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show your account profile",
	Long: `The me command displays the full profile of the currently signed-in
account: name, email, subscription tier, and whether the account has admin
access. The admin flag comes from a dedicated backend check that runs at most
once per account per invocation.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		a := newApp()

		err := a.rec.Resolve(ctx)
		// Wait for the background admin sub-check before rendering.
		a.rec.Close()

		v := a.rec.State()
		if v.Blocked {
			return err
		}
		if v.User == nil {
			fmt.Println("🔒 You're not logged in yet!")
			fmt.Println("   Run 'stockpulse login' to get started.")
			return nil
		}

		u := v.User
		label := pterm.NewStyle(pterm.FgLightCyan)
		value := pterm.NewStyle(pterm.FgCyan, pterm.Bold)

		pterm.Println()
		if u.Name != "" {
			pterm.Println(label.Sprint("→ Name:         ") + value.Sprint(u.Name))
		}
		if u.Email != "" {
			pterm.Println(label.Sprint("→ Email:        ") + value.Sprint(u.Email))
		}
		pterm.Println(label.Sprint("→ Account ID:   ") + value.Sprint(u.ID))
		tier := u.SubscriptionTier
		if tier == "" {
			tier = "free"
		}
		pterm.Println(label.Sprint("→ Subscription: ") + value.Sprint(tier))
		if v.IsAdmin {
			pterm.Println(label.Sprint("→ Role:         ") + pterm.NewStyle(pterm.FgYellow, pterm.Bold).Sprint("admin"))
		}
		pterm.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(meCmd)
}
