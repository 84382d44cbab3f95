/*
PURPOSE:
  Defines the root Cobra command for the gauge-bench CLI.
  Handles global flags and resolves configuration once for every subcommand.

REQUIREMENTS:
  User-specified:
  - Provide a CLI interface.
  - Support global flags like --config.
  - API keys and base URLs come from one explicit configuration object.

  Implementation-discovered:
  - Needs to expose an Execute() function for main.go.
  - Logger must be configured before any subcommand logs.

ARCHITECTURE INTEGRATION:
  - Called by: cmd/gauge-bench/main.go
  - Calls: Child commands (run, consolidate, list-models, show)
  - Modifies: Global configuration state (resolved in PersistentPreRunE).

ERROR HANDLING:
  - Returns error to main.go for exit code handling.
  - Cobra's own error printing is silenced; main prints "Error: ...".

IMPLEMENTATION RULES:
  - Use `PersistentFlags()` for flags available to all subcommands.
  - Environment is read here and nowhere below internal/config.

USAGE:
  Called by main.go.

SELF-HEALING INSTRUCTIONS:
  - If adding new global flags, add them to init().

RELATED FILES:
  - cmd/gauge-bench/main.go
  - internal/config/config.go

MAINTENANCE:
  - Update when adding global configuration options.
*/

package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/daryltucker/gauge-bench/internal/config"
	"github.com/daryltucker/gauge-bench/internal/output"
)

var (
	// cfgFile stores the path to the config file (if specified via flag)
	cfgFile   string
	logLevel  string
	logFormat string

	// cfg is resolved once per invocation by the root PersistentPreRunE.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "gauge-bench",
		Short: "Benchmark vision models on reading analog gauges",
		Long: `Runs vision language models against a set of gauge photos, scores their
readings against ground truth and keeps a leaderboard of every run.
Use 'run --help' for benchmark options.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}
)

// Execute executes the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, args []string) error {
	if err := output.Configure(cmd.ErrOrStderr(), logLevel, logFormat); err != nil {
		return err
	}

	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	loaded.ApplyEnv(os.Getenv)
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./gauge_bench.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto", "log format: text, json or auto")
}
