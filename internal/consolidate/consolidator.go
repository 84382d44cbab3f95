/*
PURPOSE:
  Rebuilds the leaderboard from every run stored in the run directory.
  Scores are recomputed from stored predictions against the current
  ground truth; cached scores in metadata are never trusted.

REQUIREMENTS:
  User-specified:
  - One leaderboard row per stored run.
  - Missing or broken metadata degrades to defaults, never aborts.
  - Creator lookup only when the stored creator is empty or "Unknown".
  - Rows sorted by score desc; output is a pure function of the inputs.

  Implementation-discovered:
  - A run file without metadata may be an executor mid-commit;
    strict_commit skips those instead of defaulting them.
  - Run artifacts are read-only here. The executor owns them, and a
    write from this side could land on top of a newer commit.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli (consolidate, run --consolidate)
  - Uses: internal/store, internal/scoring, internal/engine.CreatorResolver

ERROR HANDLING:
  - Missing run directory or failed leaderboard write are errors.
  - Everything per-run is a warning and the run is skipped or defaulted.

IMPLEMENTATION RULES:
  - Sequential. Consolidation is cheap next to a model run.

USAGE:
  c := &consolidate.Consolidator{Store: rs, GroundTruth: gt, Resolver: r, DefaultAPI: "openrouter"}
  rows, err := c.Run(ctx)

SELF-HEALING INSTRUCTIONS:
  - If rows look stale, check the ground truth path: scores follow it.

RELATED FILES:
  - internal/store/runstore.go
  - internal/scoring/score.go

MAINTENANCE:
  - Keep the sort order in sync with the leaderboard docs.
*/

package consolidate

import (
	"cmp"
	"context"
	"errors"
	"io/fs"
	"slices"

	"github.com/daryltucker/gauge-bench/internal/engine"
	"github.com/daryltucker/gauge-bench/internal/model"
	"github.com/daryltucker/gauge-bench/internal/output"
	"github.com/daryltucker/gauge-bench/internal/scoring"
	"github.com/daryltucker/gauge-bench/internal/store"
)

// Consolidator recomputes the leaderboard from the run store.
type Consolidator struct {
	Store       *store.RunStore
	GroundTruth scoring.Lookup
	Resolver    engine.CreatorResolver
	// DefaultAPI is assumed for runs whose metadata is unusable.
	DefaultAPI string
	// StrictCommit skips run files that have no metadata.
	StrictCommit bool
}

// Run scores every stored run, writes the leaderboard and returns its rows.
func (c *Consolidator) Run(ctx context.Context) ([]model.LeaderboardRow, error) {
	keys, err := c.Store.Discover()
	if err != nil {
		return nil, err
	}
	output.Logger.Info("Consolidating runs", "dir", c.Store.Dir, "runs", len(keys))

	rows := make([]model.LeaderboardRow, 0, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, ok := c.consolidateRun(ctx, key)
		if ok {
			rows = append(rows, row)
		}
	}

	SortRows(rows)

	if err := c.Store.WriteLeaderboard(rows); err != nil {
		return nil, err
	}
	output.Logger.Info("Leaderboard written", "path", c.Store.LeaderboardPath(), "rows", len(rows))
	return rows, nil
}

func (c *Consolidator) consolidateRun(ctx context.Context, key string) (model.LeaderboardRow, bool) {
	record, err := c.Store.ReadRecord(key)
	if err != nil {
		output.Logger.Warn("Skipping unreadable run", "key", key, "error", err)
		return model.LeaderboardRow{}, false
	}

	meta, ok := c.metadata(key)
	if !ok {
		return model.LeaderboardRow{}, false
	}

	summary := scoring.Evaluate(record.Predictions, c.GroundTruth)
	meta.Score = summary.Score
	meta.UnitsAccuracy = summary.UnitsAccuracy

	if !engine.KnownCreator(meta.ModelCreator) && c.Resolver != nil {
		if creator := c.Resolver.Resolve(ctx, meta.ModelID, meta.APIType); engine.KnownCreator(creator) {
			meta.ModelCreator = creator
		}
	}
	if meta.ModelCreator == "" {
		meta.ModelCreator = model.UnknownCreator
	}

	output.Logger.Debug("Run scored",
		"key", key,
		"model", meta.ModelID,
		"score", output.FormatPercent(meta.Score),
		"scored", summary.Total,
	)
	return model.LeaderboardRow{
		ModelID:       meta.ModelID,
		ModelCreator:  meta.ModelCreator,
		Score:         meta.Score,
		UnitsAccuracy: meta.UnitsAccuracy,
	}, true
}

// metadata returns the stored metadata for key, or defaults when it is
// unusable. It reports false when the run is to be skipped under strict commit.
func (c *Consolidator) metadata(key string) (model.RunMetadata, bool) {
	meta, err := c.Store.ReadMetadata(key)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if c.StrictCommit {
			output.Logger.Warn("Skipping uncommitted run", "key", key)
			return model.RunMetadata{}, false
		}
		output.Logger.Warn("Metadata missing, using defaults", "key", key)
		return c.defaults(key), true
	case err != nil:
		output.Logger.Warn("Metadata unreadable, using defaults", "key", key, "error", err)
		return c.defaults(key), true
	case meta.SanitizedModelID != key:
		output.Logger.Warn("Metadata key mismatch, using defaults", "key", key, "sanitized_model_id", meta.SanitizedModelID)
		return c.defaults(key), true
	case meta.ModelID == "":
		output.Logger.Warn("Metadata has no model id, using defaults", "key", key)
		return c.defaults(key), true
	}
	return meta, true
}

func (c *Consolidator) defaults(key string) model.RunMetadata {
	return model.RunMetadata{
		ModelID:          key,
		SanitizedModelID: key,
		ModelCreator:     model.UnknownCreator,
		APIType:          c.DefaultAPI,
	}
}

// SortRows orders rows by score desc, units accuracy desc, model id asc.
func SortRows(rows []model.LeaderboardRow) {
	slices.SortStableFunc(rows, func(a, b model.LeaderboardRow) int {
		if n := cmp.Compare(b.Score, a.Score); n != 0 {
			return n
		}
		if n := cmp.Compare(b.UnitsAccuracy, a.UnitsAccuracy); n != 0 {
			return n
		}
		return cmp.Compare(a.ModelID, b.ModelID)
	})
}
