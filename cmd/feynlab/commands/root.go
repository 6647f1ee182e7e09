// Package commands provides the CLI commands for feynlab.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feynlab/feynlab/pkg/types"
)

// BuildTime is set at build time.
var BuildTime = "dev"

// Global flags
var (
	printLogs bool
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "feynlab",
	Short: "feynlab - learn by explaining, with a token budget",
	Long: `feynlab guides you through explaining a concept across seven fields,
validates each explanation with a language model, and keeps the session
within a token budget through tiered history compression.

Run 'feynlab serve' to start the HTTP server the UI talks to.`,
	Version: types.Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")

	rootCmd.SetVersionTemplate(fmt.Sprintf("feynlab %s (%s)\n", types.Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(codeCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
