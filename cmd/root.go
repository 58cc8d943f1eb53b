// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the StockPulse CLI.
// It implements subcommands for authentication and session inspection using
// the Cobra framework, with a terminal UI built on pterm.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"stockpulse/cli/internal/httperrors"
)

var (
	showVersion bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "stockpulse",
	Short:         "StockPulse CLI for market sentiment and account access",
	Long:          `StockPulse is a command-line client for the StockPulse market sentiment service.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			a := newApp()
			backendVersion, err := a.api.GetVersion(ctx)
			if err != nil {
				backendVersion = "unknown"
			}
			fmt.Printf("stockpulse %s\nbackend %s\n", Version, backendVersion)
			return nil
		}
		// If no flag is set, show help
		return cmd.Help()
	},
}

// Execute runs the CLI application.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		httperrors.Display(err, "command failed")
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show CLI and backend version information")
}
