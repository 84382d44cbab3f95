/*
PURPOSE:
  Defines the 'run' subcommand.
  Benchmarks one or more models against every gauge image.

REQUIREMENTS:
  User-specified:
  - Run the benchmark for a model through a chosen API family.
  - Specific flags for overrides.

  Implementation-discovered:
  - Need to load config first (done by root).
  - Apply flag overrides to config.
  - --limit makes cheap smoke runs against paid APIs possible.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Executor, internal/consolidate (with --consolidate)
  - Uses: internal/config, internal/groundtruth, internal/store

ERROR HANDLING:
  - Missing ground truth, image directory or API key fail before any request.
  - A failed model is reported and the next model still runs.

IMPLEMENTATION RULES:
  - Setup flags in init().
  - Logic: Override -> Load inputs -> Execute per model -> optional consolidate.

USAGE:
  gauge-bench run --model openai/gpt-4o

SELF-HEALING INSTRUCTIONS:
  - Check flag names match Config struct fields generally.

RELATED FILES:
  - internal/cli/root.go
  - internal/engine/runner.go

MAINTENANCE:
  - Update when adding new CLI overrides.
*/

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daryltucker/gauge-bench/internal/engine"
	"github.com/daryltucker/gauge-bench/internal/groundtruth"
	"github.com/daryltucker/gauge-bench/internal/output"
	"github.com/daryltucker/gauge-bench/internal/store"
)

var (
	modelsFlag          []string
	apiOverride         string
	imagesOverride      string
	groundTruthOverride string
	runDirOverride      string
	concurrencyOverride int
	imageLimit          int
	consolidateAfter    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Benchmark models on the gauge images",
	Long: `Sends every gauge image to each model, parses the JSON reply, scores it
against ground truth and stores the run under the run directory:

  <run_dir>/<key>.csv        one prediction per image, in image order
  <run_dir>/<key>.meta.json  model, creator, api and score

<key> is the model id with every character outside [A-Za-z0-9._-] replaced
by '_'. Running the same model again replaces its previous run.`,
	Example: `  # Run through OpenRouter (default api)
  gauge-bench run --model openai/gpt-4o

  # Run through OpenAI directly and rebuild the leaderboard
  gauge-bench run --model gpt-4o --api openai --consolidate

  # Smoke test two models on the first 5 images
  gauge-bench run --model google/gemini-flash-1.5,anthropic/claude-3.5-sonnet --limit 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Overrides
		if imagesOverride != "" {
			cfg.ImagesDir = imagesOverride
		}
		if groundTruthOverride != "" {
			cfg.GroundTruth = groundTruthOverride
		}
		if runDirOverride != "" {
			cfg.RunDir = runDirOverride
		}
		if cmd.Flags().Changed("concurrency") {
			cfg.Concurrency = concurrencyOverride
		}
		api := cfg.DefaultAPI
		if apiOverride != "" {
			api = apiOverride
		}

		// 2. Inputs
		gt, err := groundtruth.Load(cfg.GroundTruth)
		if err != nil {
			return err
		}
		images, err := engine.ListImages(cfg.ImagesDir)
		if err != nil {
			return err
		}
		if imageLimit > 0 && imageLimit < len(images) {
			images = images[:imageLimit]
		}
		if len(images) == 0 {
			output.Logger.Warn("No images found", "dir", cfg.ImagesDir)
		}

		e := engine.New(cfg)
		adapter, err := e.Adapter(api)
		if err != nil {
			return err
		}
		rs := store.New(cfg.RunDir, cfg.LeaderboardFile)
		x := &engine.Executor{
			Adapter:     adapter,
			Resolver:    e.CreatorResolver(),
			Store:       rs,
			GroundTruth: gt,
			Concurrency: cfg.Concurrency,
		}

		// 3. Execution
		ctx := cmd.Context()
		var errs []error
		for _, modelID := range modelsFlag {
			res, err := x.Execute(ctx, modelID, images)
			if err != nil {
				if ctx.Err() != nil {
					return err
				}
				output.Logger.Error("Run failed", "model", modelID, "error", err)
				errs = append(errs, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: score %s%%, units %s%% (%d/%d correct)\n",
				modelID,
				output.FormatPercent(res.Summary.Score),
				output.FormatPercent(res.Summary.UnitsAccuracy),
				res.Summary.Correct,
				res.Summary.Total,
			)
		}

		if consolidateAfter {
			if err := consolidateRuns(cmd, rs, gt, e); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVarP(&modelsFlag, "model", "m", nil, "Model id(s) to benchmark, comma-separated")
	runCmd.Flags().StringVar(&apiOverride, "api", "", "API family: openai or openrouter (default from config)")
	runCmd.Flags().StringVar(&imagesOverride, "images", "", "Directory of gauge images")
	runCmd.Flags().StringVar(&groundTruthOverride, "ground-truth", "", "Ground truth CSV file")
	runCmd.Flags().StringVar(&runDirOverride, "run-dir", "", "Directory for run results and the leaderboard")
	runCmd.Flags().IntVarP(&concurrencyOverride, "concurrency", "c", 0, "Max concurrent requests per run (default from config)")
	runCmd.Flags().IntVar(&imageLimit, "limit", 0, "Only use the first N images (0 = all)")
	runCmd.Flags().BoolVar(&consolidateAfter, "consolidate", false, "Rebuild the leaderboard after the run")
	_ = runCmd.MarkFlagRequired("model")
}
