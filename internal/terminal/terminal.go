// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package terminal holds small TTY helpers shared by the commands.
package terminal

import (
	"fmt"
	"math"
	"os"

	"golang.org/x/term"
)

// IsInteractive reports whether stdout is attached to a terminal. Spinners
// and cursor tricks are skipped when it is not.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ScrubInput erases previously printed text from the terminal, accounting
// for line wrapping at the current width. Used to remove a pasted credential
// from the scrollback once it has been consumed.
//
// textLength is the total character count of prompt plus input. One extra
// line is cleared for the newline the user's Enter produced.
func ScrubInput(textLength int) {
	if !IsInteractive() {
		return
	}

	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}

	lines := int(math.Ceil(float64(textLength) / float64(width)))
	if lines < 1 {
		lines = 1
	}
	lines++ // the empty line the cursor landed on after Enter

	for i := 0; i < lines; i++ {
		fmt.Print("\r\x1b[2K")
		if i < lines-1 {
			fmt.Print("\x1b[1A")
		}
	}
}
