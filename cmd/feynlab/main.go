// Package main provides the entry point for the feynlab CLI.
package main

import (
	"fmt"
	"os"

	"github.com/feynlab/feynlab/cmd/feynlab/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
