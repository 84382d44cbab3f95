/*
PURPOSE:
  Encodes and decodes the tabular artifacts of Gauge Bench:
  per-run prediction files and the leaderboard.

REQUIREMENTS:
  User-specified:
  - Prediction header: filename,min_value,max_value,reading_value,units.
  - Leaderboard header: model_id,model_creator,score,units_accuracy.
  - Null prediction fields round-trip as empty cells.

  Implementation-discovered:
  - Floats must round-trip exactly, otherwise exact-match scoring drifts
    between a run and a later consolidation. Use FormatFloat(v, 'f', -1, 64).
  - Leaderboard numbers use fixed 2 decimals so reruns are byte-identical.

ARCHITECTURE INTEGRATION:
  - Called by: internal/store, internal/groundtruth (header helpers)
  - Consumes: internal/model.Prediction, internal/model.LeaderboardRow

ERROR HANDLING:
  - Returns error on write failure or a missing required column.
  - Unparseable prediction cells decode to null, not an error.

IMPLEMENTATION RULES:
  - Use encoding/csv.
  - Flush() after every write.
  - Writers work on io.Writer; file lifecycle belongs to internal/store.

USAGE:
  err := output.WritePredictions(w, record.Predictions)
  preds, err := output.ReadPredictions(r)

SELF-HEALING INSTRUCTIONS:
  - If CSV format changes, update header and record conversion.

RELATED FILES:
  - internal/model/types.go
  - internal/store/runstore.go

MAINTENANCE:
  - Update the record mapping when Prediction changes.
*/

package output

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/daryltucker/gauge-bench/internal/model"
)

// PredictionHeader is the column layout shared by ground truth and run files.
var PredictionHeader = []string{"filename", "min_value", "max_value", "reading_value", "units"}

// LeaderboardHeader is the column layout of the leaderboard file.
var LeaderboardHeader = []string{"model_id", "model_creator", "score", "units_accuracy"}

// CSVWriter writes records to a CSV stream, flushing after each record.
// It is thread-safe.
type CSVWriter struct {
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter creates a CSVWriter and writes the header.
func NewCSVWriter(w io.Writer, header []string) (*CSVWriter, error) {
	cw := &CSVWriter{writer: csv.NewWriter(w)}
	if err := cw.Write(header); err != nil {
		return nil, err
	}
	return cw, nil
}

// Write writes a single record.
func (cw *CSVWriter) Write(record []string) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if err := cw.writer.Write(record); err != nil {
		return err
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

// WritePredictions writes a full run file, header included, in slice order.
func WritePredictions(w io.Writer, preds []model.Prediction) error {
	cw, err := NewCSVWriter(w, PredictionHeader)
	if err != nil {
		return err
	}
	for _, p := range preds {
		record := []string{
			p.Filename,
			formatOptionalFloat(p.MinValue),
			formatOptionalFloat(p.MaxValue),
			formatOptionalFloat(p.ReadingValue),
			formatOptionalString(p.Units),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write prediction %s: %w", p.Filename, err)
		}
	}
	return nil
}

// ReadPredictions decodes a run file written by WritePredictions.
// Column order is taken from the header.
func ReadPredictions(r io.Reader) ([]model.Prediction, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty prediction file (no header row)")
	}
	if err != nil {
		return nil, err
	}
	idx, err := ColumnIndex(header, PredictionHeader)
	if err != nil {
		return nil, err
	}

	var preds []model.Prediction
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		preds = append(preds, model.Prediction{
			Filename:     strings.TrimSpace(record[idx["filename"]]),
			MinValue:     parseOptionalFloat(record[idx["min_value"]]),
			MaxValue:     parseOptionalFloat(record[idx["max_value"]]),
			ReadingValue: parseOptionalFloat(record[idx["reading_value"]]),
			Units:        parseOptionalString(record[idx["units"]]),
		})
	}
	return preds, nil
}

// WriteLeaderboard writes the leaderboard, header included, in slice order.
func WriteLeaderboard(w io.Writer, rows []model.LeaderboardRow) error {
	cw, err := NewCSVWriter(w, LeaderboardHeader)
	if err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.ModelID,
			row.ModelCreator,
			FormatPercent(row.Score),
			FormatPercent(row.UnitsAccuracy),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write leaderboard row %s: %w", row.ModelID, err)
		}
	}
	return nil
}

// ReadLeaderboard decodes a leaderboard file. Unparseable numbers read as 0.
func ReadLeaderboard(r io.Reader) ([]model.LeaderboardRow, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	idx, err := ColumnIndex(header, LeaderboardHeader)
	if err != nil {
		return nil, err
	}

	var rows []model.LeaderboardRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		score, _ := strconv.ParseFloat(record[idx["score"]], 64)
		units, _ := strconv.ParseFloat(record[idx["units_accuracy"]], 64)
		rows = append(rows, model.LeaderboardRow{
			ModelID:       record[idx["model_id"]],
			ModelCreator:  record[idx["model_creator"]],
			Score:         score,
			UnitsAccuracy: units,
		})
	}
	return rows, nil
}

// ColumnIndex maps each required column to its position in header.
// Header names are compared after trimming spaces and a UTF-8 BOM.
func ColumnIndex(header, required []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}
	var missing []string
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required column(s): %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

// FormatPercent renders a 0-100 metric with two decimals.
func FormatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatOptionalString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseOptionalFloat(cell string) *float64 {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseOptionalString(cell string) *string {
	if cell == "" {
		return nil
	}
	return &cell
}
