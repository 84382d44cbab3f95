// Package scoring implements the exact-match rules used to grade gauge readings.
package scoring

import (
	"math"

	"github.com/daryltucker/gauge-bench/internal/model"
)

// Lookup is the read side of the ground truth store.
type Lookup interface {
	Lookup(filename string) (model.GroundTruthEntry, bool)
}

// Summary aggregates a run. Score and UnitsAccuracy are percentages.
type Summary struct {
	Total         int
	Correct       int
	UnitsCorrect  int
	Score         float64
	UnitsAccuracy float64
}

// IsCorrect reports whether pred matches gt exactly on reading and units.
// NaN on either side never matches.
func IsCorrect(pred model.Prediction, gt model.GroundTruthEntry) bool {
	if pred.ReadingValue == nil {
		return false
	}
	v := *pred.ReadingValue
	if math.IsNaN(v) || math.IsNaN(gt.ReadingValue) || v != gt.ReadingValue {
		return false
	}
	return UnitsMatch(pred, gt)
}

// UnitsMatch reports whether the predicted units equal the expected units.
func UnitsMatch(pred model.Prediction, gt model.GroundTruthEntry) bool {
	return pred.Units != nil && *pred.Units == gt.Units
}

// Evaluate scores predictions against gt. Predictions for filenames
// absent from gt are not counted at all.
func Evaluate(preds []model.Prediction, gt Lookup) Summary {
	var s Summary
	for _, p := range preds {
		entry, ok := gt.Lookup(p.Filename)
		if !ok {
			continue
		}
		s.Total++
		if IsCorrect(p, entry) {
			s.Correct++
		}
		if UnitsMatch(p, entry) {
			s.UnitsCorrect++
		}
	}
	s.Score = percent(s.Correct, s.Total)
	s.UnitsAccuracy = percent(s.UnitsCorrect, s.Total)
	return s
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
