// Package main is the entry point for the solarctl CLI.
package main

import (
	"os"

	"solarbooks/cmd/solarctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
