// Package main provides the entry point for the codescope CLI.
package main

import (
	"fmt"
	"os"

	"github.com/codescope/codescope/cmd/codescope/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
