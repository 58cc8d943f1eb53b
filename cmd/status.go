// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// statusCmd shows where the current auth answer came from: the provenance,
// confidence, and age of the resolved snapshot. Mostly a debugging aid when
// the cache and the backend disagree.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show auth state provenance and confidence",

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		a := newApp()
		defer a.rec.Close()

		resolveErr := a.rec.Resolve(ctx)
		v := a.rec.State()

		label := pterm.NewStyle(pterm.FgLightCyan)
		value := pterm.NewStyle(pterm.FgCyan, pterm.Bold)

		authenticated := "no"
		if v.User != nil {
			authenticated = "yes (" + userLabel(v.User) + ")"
		}
		pterm.Println()
		pterm.Println(label.Sprint("→ Authenticated: ") + value.Sprint(authenticated))

		if snap := v.Snapshot; snap != nil {
			pterm.Println(label.Sprint("→ Source:        ") + value.Sprint(string(snap.Source)))
			pterm.Println(label.Sprint("→ Confidence:    ") + value.Sprint(string(snap.Confidence)))
			if snap.Age > 0 {
				pterm.Println(label.Sprint("→ Age:           ") + value.Sprint(snap.Age.Round(time.Second).String()))
			}
		}
		pterm.Println(label.Sprint("→ Phase:         ") + value.Sprint(string(v.Phase)))

		if v.Blocked {
			pterm.Println(label.Sprint("→ Blocked:       ") + pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("yes"))
		}
		if resolveErr != nil {
			pterm.Println(label.Sprint("→ Last error:    ") + pterm.NewStyle(pterm.FgYellow).Sprint(resolveErr.Error()))
		}
		pterm.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
