package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool

	// appVersion is the build version reported in telemetry.
	appVersion = "dev"
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	appVersion = version
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "browse-helper",
		Short: "browse-helper - Autonomous browser task runner",
		Long: `browse-helper turns natural-language tasks into typed browser action
plans and executes them against a real Chrome instance.

Features:
  - Plans via a local Ollama model, with a heuristic fallback
  - Typed actions: navigate, click, input_text, extract_data, wait, scroll, execute_script
  - Per-action retries with exponential backoff
  - Bounded action concurrency across plans
  - SQLite execution ledger and token budget accounting
  - Prometheus metrics and OpenTelemetry tracing`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newTaskCommand())
	rootCmd.AddCommand(newBatchCommand())
	rootCmd.AddCommand(newNavigateCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}
