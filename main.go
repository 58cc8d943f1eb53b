// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

package main

import "stockpulse/cli/cmd"

func main() {
	cmd.Execute()
}
