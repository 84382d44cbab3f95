/*
PURPOSE:
  Defines the core data structures used throughout Gauge Bench.
  These models represent ground truth, per-image predictions, run
  metadata and leaderboard rows.

REQUIREMENTS:
  User-specified:
  - Ground truth and predictions carry min, max, reading and units.
  - A prediction field that could not be parsed is null, never zero.
  - Metadata records model id, creator, api type, score and timestamp.

  Implementation-discovered:
  - Need JSON tags for the metadata file (snake_case keys).
  - Pointers are the simplest faithful encoding of "null" for floats/strings.

ARCHITECTURE INTEGRATION:
  - Used by: internal/groundtruth, internal/parser, internal/scoring,
    internal/engine, internal/store, internal/consolidate, internal/output
  - Shared across boundaries.

ERROR HANDLING:
  - None (pure data structs).

IMPLEMENTATION RULES:
  - Keep structs simple and public.
  - Use time.Time for timestamps.

USAGE:
  p := model.NullPrediction("gauge_01.png")

SELF-HEALING INSTRUCTIONS:
  - If new columns are needed, add the field and update internal/output CSV codecs.

RELATED FILES:
  - internal/output/csv.go
  - internal/output/json.go

MAINTENANCE:
  - Update when the benchmark schema changes.
*/

package model

import (
	"time"
)

// UnknownCreator is the sentinel used whenever creator resolution fails.
const UnknownCreator = "Unknown"

// API families a run can be executed against.
const (
	APIOpenAI     = "openai"
	APIOpenRouter = "openrouter"
)

// GroundTruthEntry is the reference answer for one benchmark image.
// Non-numeric source cells are stored as NaN.
type GroundTruthEntry struct {
	Filename     string
	MinValue     float64
	MaxValue     float64
	ReadingValue float64
	Units        string
}

// Prediction is a model's answer for one image. Nil fields are nulls.
type Prediction struct {
	Filename     string
	MinValue     *float64
	MaxValue     *float64
	ReadingValue *float64
	Units        *string
}

// NullPrediction returns a prediction with every answer field null.
func NullPrediction(filename string) Prediction {
	return Prediction{Filename: filename}
}

// IsNull reports whether no field of the prediction was populated.
func (p Prediction) IsNull() bool {
	return p.MinValue == nil && p.MaxValue == nil && p.ReadingValue == nil && p.Units == nil
}

// RunRecord is the ordered prediction list of one model run.
type RunRecord struct {
	Predictions []Prediction
}

// RunMetadata is persisted next to a RunRecord. Score and UnitsAccuracy are
// cached display values; consolidation always recomputes them.
type RunMetadata struct {
	ModelID          string    `json:"model_id"`
	SanitizedModelID string    `json:"sanitized_model_id"`
	ModelCreator     string    `json:"model_creator"`
	APIType          string    `json:"api_type"`
	Score            float64   `json:"score"`
	UnitsAccuracy    float64   `json:"units_accuracy"`
	ImageCount       int       `json:"image_count"`
	RunID            string    `json:"run_id,omitempty"`
	EvaluatedAt      time.Time `json:"evaluated_at"`
}

// LeaderboardRow is one consolidated run.
type LeaderboardRow struct {
	ModelID       string
	ModelCreator  string
	Score         float64
	UnitsAccuracy float64
}

// Float returns a pointer to v. Handy for building predictions.
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}
