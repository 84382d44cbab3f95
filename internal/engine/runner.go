/*
PURPOSE:
  High-level runner that orchestrates one benchmark run.
  Fans out one model query per image, scores the answers and commits
  the run to the run store.

REQUIREMENTS:
  User-specified:
  - All image queries of a run are independent and run in parallel.
  - A failed query or unparseable reply affects only that image.
  - Persisted order equals input order, not completion order.
  - score = correct / total * 100, and 0 when there are no images.
  - Creator is looked up only when no earlier run of this model knows it.

  Implementation-discovered:
  - Real APIs rate-limit; the fan-out is bounded (default 4).
  - Ctrl-C must not leave a half-committed run behind.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Uses: internal/engine (Adapter, CreatorResolver), internal/parser,
    internal/scoring, internal/store

ERROR HANDLING:
  - Logs per-image errors but continues (resilience).
  - Returns an error only when the context is cancelled or the commit fails.

IMPLEMENTATION RULES:
  - Bounded fan-out with errgroup.SetLimit.
  - Workers write only to their own slice index.

USAGE:
  x := &engine.Executor{Adapter: a, Resolver: r, Store: rs, GroundTruth: gt}
  res, err := x.Execute(ctx, "openai/gpt-4o", images)

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/engine/client.go
  - internal/store/runstore.go

MAINTENANCE:
  - Update when adding per-run metrics.
*/

package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/daryltucker/gauge-bench/internal/config"
	"github.com/daryltucker/gauge-bench/internal/model"
	"github.com/daryltucker/gauge-bench/internal/output"
	"github.com/daryltucker/gauge-bench/internal/parser"
	"github.com/daryltucker/gauge-bench/internal/scoring"
	"github.com/daryltucker/gauge-bench/internal/store"
)

// Executor runs one model against a list of images.
type Executor struct {
	Adapter     Adapter
	Resolver    CreatorResolver
	Store       *store.RunStore
	GroundTruth scoring.Lookup
	// Concurrency bounds in-flight queries. Values < 1 use config.DefaultConcurrency.
	Concurrency int
	// Prompt defaults to GaugePrompt.
	Prompt string
	// Now defaults to time.Now; overridden in tests.
	Now func() time.Time
}

// RunResult is what Execute committed.
type RunResult struct {
	Metadata model.RunMetadata
	Record   model.RunRecord
	Summary  scoring.Summary
}

// Execute queries the model for every image, scores the replies and commits
// the run. Images are file paths; the prediction filename is the base name.
func (x *Executor) Execute(ctx context.Context, modelID string, images []string) (*RunResult, error) {
	limit := x.Concurrency
	if limit < 1 {
		limit = config.DefaultConcurrency
	}
	prompt := x.Prompt
	if prompt == "" {
		prompt = GaugePrompt
	}
	key := store.Sanitize(modelID)

	output.Logger.Info("Starting run",
		"model", modelID,
		"api", x.Adapter.API(),
		"images", len(images),
		"concurrency", limit,
	)

	preds := make([]model.Prediction, len(images))
	var done atomic.Int64

	var g errgroup.Group
	g.SetLimit(limit)
	for i, path := range images {
		g.Go(func() error {
			preds[i] = x.predict(ctx, modelID, path, prompt)
			n := done.Add(1)
			output.Logger.Debug("Image done", "model", modelID, "file", preds[i].Filename, "progress", fmt.Sprintf("%d/%d", n, len(images)))
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run %s interrupted before commit: %w", modelID, err)
	}

	record := model.RunRecord{Predictions: preds}
	summary := scoring.Evaluate(preds, x.GroundTruth)

	meta := model.RunMetadata{
		ModelID:          modelID,
		SanitizedModelID: key,
		ModelCreator:     x.creator(ctx, key, modelID),
		APIType:          x.Adapter.API(),
		Score:            summary.Score,
		UnitsAccuracy:    summary.UnitsAccuracy,
		ImageCount:       len(images),
		RunID:            uuid.NewString(),
		EvaluatedAt:      x.now().UTC(),
	}

	if err := x.Store.Commit(meta, record); err != nil {
		return nil, fmt.Errorf("commit run %s: %w", modelID, err)
	}

	output.Logger.Info("Run committed",
		"model", modelID,
		"creator", meta.ModelCreator,
		"score", output.FormatPercent(summary.Score),
		"units_accuracy", output.FormatPercent(summary.UnitsAccuracy),
		"correct", summary.Correct,
		"scored", summary.Total,
		"path", x.Store.RunPath(key),
	)

	return &RunResult{Metadata: meta, Record: record, Summary: summary}, nil
}

// predict never fails: every problem yields a null prediction.
func (x *Executor) predict(ctx context.Context, modelID, path, prompt string) model.Prediction {
	filename := filepath.Base(path)

	img, err := LoadImage(path)
	if err != nil {
		output.Logger.Warn("Image unreadable", "file", filename, "error", err)
		return model.NullPrediction(filename)
	}

	raw, err := x.Adapter.Query(ctx, modelID, img, prompt)
	if err != nil {
		output.Logger.Warn("Model query failed", "model", modelID, "file", filename, "error", err)
		return model.NullPrediction(filename)
	}
	return parser.Parse(filename, raw)
}

// creator reuses a known creator from an earlier committed run of the same key.
func (x *Executor) creator(ctx context.Context, key, modelID string) string {
	if prev, err := x.Store.ReadMetadata(key); err == nil && KnownCreator(prev.ModelCreator) && prev.ModelID == modelID {
		return prev.ModelCreator
	}
	if x.Resolver == nil {
		return model.UnknownCreator
	}
	return x.Resolver.Resolve(ctx, modelID, x.Adapter.API())
}

func (x *Executor) now() time.Time {
	if x.Now != nil {
		return x.Now()
	}
	return time.Now()
}
