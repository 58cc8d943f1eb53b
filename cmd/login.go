// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"stockpulse/cli/internal/auth"
	"stockpulse/cli/internal/terminal"
)

var (
	pasteCredential bool
)

// loginCmd signs the user in with Google. The default flow opens the browser
// for the OIDC consent screen and exchanges the resulting ID token with the
// backend. The --credential flag accepts a pasted ID token instead, for
// machines without a usable browser.
var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"auth"},
	Short:   "Sign in to StockPulse with your Google account",
	Long: `The login command signs you in to StockPulse. By default it opens your
browser for the Google consent screen, then exchanges the resulting identity
token with the StockPulse backend for a session.

On a machine without a usable browser, pass --credential and paste a Google
ID token obtained elsewhere; the token is scrubbed from the terminal once
consumed.

If you are already signed in with a valid session, the flow is skipped.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		a := newApp()
		defer a.rec.Close()

		// Already signed in with a live session? Skip the flow.
		if err := a.rec.Resolve(ctx); err == nil {
			if v := a.rec.State(); v.User != nil {
				fmt.Printf("Already logged in as %s\n", userLabel(v.User))
				return nil
			}
		} else if v := a.rec.State(); v.Blocked {
			return err
		}

		var credential string
		var err error
		if pasteCredential {
			credential, err = promptForCredential()
		} else {
			credential, err = a.browserFlow(ctx)
		}
		if err != nil {
			return err
		}

		stop := startSpinner("Verifying with StockPulse")
		user, err := a.rec.LoginWithCredential(ctx, credential)
		stop()
		if err != nil {
			return err
		}

		pterm.Println(randomGreeting(userLabel(user)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().BoolVar(&pasteCredential, "credential", false, "Paste a Google ID token instead of using the browser flow")
}

// browserFlow runs the loopback OIDC flow and returns the verified ID token.
func (a *app) browserFlow(ctx context.Context) (string, error) {
	g := a.connectIdentity(ctx)
	if g == nil {
		return "", fmt.Errorf("browser sign-in is not available; configure google.client_id or use --credential")
	}

	stop := startSpinner("Waiting for you to finish signing in")
	credential, err := g.ObtainCredential(ctx, func(url string) {
		fmt.Println("Open this link to complete sign-in:")
		fmt.Printf("%s\n\n", url)
	})
	stop()
	return credential, err
}

// promptForCredential reads a pasted ID token from stdin and erases it from
// the terminal afterwards.
func promptForCredential() (string, error) {
	const prompt = "Paste your Google ID token: "
	fmt.Print(prompt)

	reader := bufio.NewReaderSize(os.Stdin, 16*1024)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("could not read credential: %w", err)
	}
	credential := strings.TrimSpace(line)
	terminal.ScrubInput(len(prompt) + len(credential))
	if credential == "" {
		return "", fmt.Errorf("no credential provided")
	}
	return credential, nil
}

// startSpinner shows an inline spinner and hides the cursor until the
// returned stop function is called. Both are no-ops off-TTY.
func startSpinner(text string) func() {
	if !terminal.IsInteractive() {
		return func() {}
	}
	cursor.Hide()
	spinner, err := pterm.DefaultSpinner.WithRemoveWhenDone(true).Start(text)
	if err != nil {
		cursor.Show()
		return func() {}
	}
	return func() {
		_ = spinner.Stop()
		cursor.Show()
	}
}

// userLabel picks the friendliest identifier available for display.
func userLabel(u *auth.User) string {
	if u == nil {
		return "unknown"
	}
	if u.Email != "" {
		return u.Email
	}
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}

// randomGreeting returns a friendly post-login phrase.
func randomGreeting(identifier string) string {
	greetings := []string{
		"🎉 Welcome back, %s!",
		"✨ Great to see you, %s!",
		"🚀 You're all set, %s!",
		"👋 Hello %s! Markets await.",
		"💫 Successfully signed in as %s",
		"⚡ Logged in as %s - let's go!",
		"✅ Authentication complete! Hi %s!",
	}
	return fmt.Sprintf(greetings[rand.N(len(greetings))], identifier)
}
