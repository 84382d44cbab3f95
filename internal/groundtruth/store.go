/*
PURPOSE:
  Loads and indexes the reference answers for the benchmark images.

REQUIREMENTS:
  User-specified:
  - Columns filename,min_value,max_value,reading_value,units are required.
  - A non-numeric value becomes NaN and never raises.
  - A missing source fails with a not-found error.

  Implementation-discovered:
  - Column order in hand-maintained spreadsheets varies; index by header name.
  - Duplicate filenames would make scoring ambiguous, so they fail the load.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli (once per process)
  - Read by: internal/scoring, internal/engine, internal/consolidate

ERROR HANDLING:
  - ErrNotFound (wrapped) when the file does not exist.
  - Descriptive error for missing columns, duplicates, empty file.

IMPLEMENTATION RULES:
  - The Store is read-only after Load and safe for concurrent readers.

USAGE:
  gt, err := groundtruth.Load("data/ground_truth.csv")
  entry, ok := gt.Lookup("gauge_01.png")

SELF-HEALING INSTRUCTIONS:
  - If the CSV layout changes, update output.PredictionHeader.

RELATED FILES:
  - internal/output/csv.go

MAINTENANCE:
  - None.
*/

package groundtruth

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/daryltucker/gauge-bench/internal/model"
	"github.com/daryltucker/gauge-bench/internal/output"
)

// ErrNotFound is returned when the ground truth source does not exist.
var ErrNotFound = errors.New("ground truth not found")

// Store is an immutable filename -> entry index.
type Store struct {
	entries map[string]model.GroundTruthEntry
}

// New builds a Store from entries. Later duplicates are rejected, and so
// are entries without units: an empty units cell cannot be told apart from
// a null prediction once a run is stored.
func New(entries []model.GroundTruthEntry) (Store, error) {
	m := make(map[string]model.GroundTruthEntry, len(entries))
	for _, e := range entries {
		if _, dup := m[e.Filename]; dup {
			return Store{}, fmt.Errorf("duplicate ground truth filename %q", e.Filename)
		}
		if strings.TrimSpace(e.Units) == "" {
			return Store{}, fmt.Errorf("empty units for ground truth filename %q", e.Filename)
		}
		m[e.Filename] = e
	}
	return Store{entries: m}, nil
}

// Load reads a ground truth CSV file.
func Load(path string) (Store, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Store{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return Store{}, fmt.Errorf("open ground truth %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	s, err := Read(f)
	if err != nil {
		return Store{}, fmt.Errorf("ground truth %s: %w", path, err)
	}
	return s, nil
}

// Read parses ground truth CSV from r.
func Read(r io.Reader) (Store, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return Store{}, fmt.Errorf("parse: %w", err)
	}
	if len(records) == 0 {
		return Store{}, fmt.Errorf("empty file (no header row)")
	}

	idx, err := output.ColumnIndex(records[0], output.PredictionHeader)
	if err != nil {
		return Store{}, err
	}

	entries := make([]model.GroundTruthEntry, 0, len(records)-1)
	for _, record := range records[1:] {
		filename := strings.TrimSpace(record[idx["filename"]])
		if filename == "" {
			continue
		}
		entries = append(entries, model.GroundTruthEntry{
			Filename:     filename,
			MinValue:     parseNumber(record[idx["min_value"]]),
			MaxValue:     parseNumber(record[idx["max_value"]]),
			ReadingValue: parseNumber(record[idx["reading_value"]]),
			Units:        strings.TrimSpace(record[idx["units"]]),
		})
	}
	return New(entries)
}

// Lookup returns the entry for filename.
func (s Store) Lookup(filename string) (model.GroundTruthEntry, bool) {
	e, ok := s.entries[filename]
	return e, ok
}

// Len returns the number of entries.
func (s Store) Len() int {
	return len(s.entries)
}

// Filenames returns all filenames in sorted order.
func (s Store) Filenames() []string {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parseNumber(cell string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
