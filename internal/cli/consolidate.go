/*
PURPOSE:
  Defines the 'consolidate' subcommand.
  Rebuilds the leaderboard from every run in the run directory.

REQUIREMENTS:
  User-specified:
  - Recompute every score against the current ground truth.
  - Report how many rows were written.

  Implementation-discovered:
  - Shared with 'run --consolidate'.

ARCHITECTURE INTEGRATION:
  - Calls: internal/consolidate.Consolidator

ERROR HANDLING:
  - Missing run directory or ground truth is an error.

IMPLEMENTATION RULES:
  - No API key is required; the catalog is public.

USAGE:
  gauge-bench consolidate --run-dir results

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/consolidate/consolidator.go

MAINTENANCE:
  - None.
*/

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daryltucker/gauge-bench/internal/consolidate"
	"github.com/daryltucker/gauge-bench/internal/engine"
	"github.com/daryltucker/gauge-bench/internal/groundtruth"
	"github.com/daryltucker/gauge-bench/internal/store"
)

var strictOverride bool

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Rebuild the leaderboard from all stored runs",
	Long: `Re-scores every run in the run directory against the current ground truth
and rewrites the leaderboard. Run files and metadata are only read.

A run counts as committed once its <key>.meta.json exists; the executor writes
it last. A run file without metadata is either a crashed run or one that is
being committed right now. By default it still gets a row with defaults
(model id = key, creator Unknown). Use --strict, or strict_commit: true in
the config file, to skip such runs instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if groundTruthOverride != "" {
			cfg.GroundTruth = groundTruthOverride
		}
		if runDirOverride != "" {
			cfg.RunDir = runDirOverride
		}
		if strictOverride {
			cfg.StrictCommit = true
		}

		gt, err := groundtruth.Load(cfg.GroundTruth)
		if err != nil {
			return err
		}
		return consolidateRuns(cmd, store.New(cfg.RunDir, cfg.LeaderboardFile), gt, engine.New(cfg))
	},
}

func consolidateRuns(cmd *cobra.Command, rs *store.RunStore, gt groundtruth.Store, e *engine.Engine) error {
	c := &consolidate.Consolidator{
		Store:        rs,
		GroundTruth:  gt,
		Resolver:     e.CreatorResolver(),
		DefaultAPI:   cfg.DefaultAPI,
		StrictCommit: cfg.StrictCommit,
	}
	rows, err := c.Run(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Leaderboard updated: %d models -> %s\n", len(rows), rs.LeaderboardPath())
	return nil
}

func init() {
	rootCmd.AddCommand(consolidateCmd)

	consolidateCmd.Flags().StringVar(&groundTruthOverride, "ground-truth", "", "Ground truth CSV file")
	consolidateCmd.Flags().StringVar(&runDirOverride, "run-dir", "", "Directory holding run results")
	consolidateCmd.Flags().BoolVar(&strictOverride, "strict", false, "Skip runs without metadata instead of using defaults")
}
