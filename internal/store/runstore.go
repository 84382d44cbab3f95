/*
PURPOSE:
  Filesystem persistence for benchmark runs: one prediction CSV and one
  metadata JSON per model, plus the leaderboard, all in one directory.

REQUIREMENTS:
  User-specified:
  - Files are keyed by the sanitized model id; same key overwrites.
  - A run must never land on the leaderboard path or in a hidden file.
  - The metadata file existing means the run is committed.
  - The leaderboard is rewritten in full, never appended.

  Implementation-discovered:
  - Writes go to a hidden temp file and are renamed into place, so a
    concurrent reader sees either the old file or the new one, never half.
  - The CSV is renamed first and the metadata last; the last rename is the commit.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (Commit), internal/consolidate (Discover, Read*)
  - Uses: internal/output codecs

ERROR HANDLING:
  - ErrNoRunDir when discovery runs against a missing directory.
  - Read errors keep fs.ErrNotExist in the chain for callers to test.

IMPLEMENTATION RULES:
  - Never write a destination path directly; always writeAtomic.

USAGE:
  rs := store.New("results", "leaderboard.csv")
  err := rs.Commit(meta, record)
  keys, err := rs.Discover()

SELF-HEALING INSTRUCTIONS:
  - Stray ".*.tmp-*" files come from crashed writes and are safe to delete.

RELATED FILES:
  - internal/output/csv.go
  - internal/output/json.go

MAINTENANCE:
  - Keep Sanitize stable; changing it orphans every stored run.
*/

package store

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/daryltucker/gauge-bench/internal/model"
	"github.com/daryltucker/gauge-bench/internal/output"
)

const (
	runExt      = ".csv"
	metadataExt = ".meta.json"
)

// ErrNoRunDir is returned when the run directory does not exist.
var ErrNoRunDir = errors.New("run directory not found")

// ErrReservedKey is returned when a run key would overwrite the leaderboard.
var ErrReservedKey = errors.New("run key collides with the leaderboard file")

// RunStore reads and writes run artifacts under Dir.
type RunStore struct {
	Dir             string
	LeaderboardFile string
}

// New creates a RunStore.
func New(dir, leaderboardFile string) *RunStore {
	return &RunStore{Dir: dir, LeaderboardFile: leaderboardFile}
}

// Sanitize maps a model id to a filesystem-safe key. Every rune outside
// [A-Za-z0-9._-] becomes '_', and a leading '.' becomes '_' so the run is
// never a hidden file.
func Sanitize(modelID string) string {
	var b strings.Builder
	for _, r := range modelID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	key := b.String()
	if key == "" || key == "." || key == ".." {
		return strings.Repeat("_", max(len(key), 1))
	}
	if strings.HasPrefix(key, ".") {
		key = "_" + key[1:]
	}
	return key
}

// Reserved reports whether key would share a path with the leaderboard.
func (s *RunStore) Reserved(key string) bool {
	return key+runExt == s.LeaderboardFile || key+metadataExt == s.LeaderboardFile
}

// RunPath returns the prediction file path for key.
func (s *RunStore) RunPath(key string) string {
	return filepath.Join(s.Dir, key+runExt)
}

// MetadataPath returns the metadata file path for key.
func (s *RunStore) MetadataPath(key string) string {
	return filepath.Join(s.Dir, key+metadataExt)
}

// LeaderboardPath returns the leaderboard file path.
func (s *RunStore) LeaderboardPath() string {
	return filepath.Join(s.Dir, s.LeaderboardFile)
}

// Commit persists a run. The record is written first and the metadata
// last; a run without metadata has not been committed.
func (s *RunStore) Commit(meta model.RunMetadata, record model.RunRecord) error {
	if meta.SanitizedModelID == "" {
		meta.SanitizedModelID = Sanitize(meta.ModelID)
	}
	if s.Reserved(meta.SanitizedModelID) {
		return fmt.Errorf("%w: model %q (key %s)", ErrReservedKey, meta.ModelID, meta.SanitizedModelID)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create run directory %s: %w", s.Dir, err)
	}

	var buf bytes.Buffer
	if err := output.WritePredictions(&buf, record.Predictions); err != nil {
		return fmt.Errorf("encode run %s: %w", meta.SanitizedModelID, err)
	}
	if err := writeAtomic(s.RunPath(meta.SanitizedModelID), buf.Bytes()); err != nil {
		return err
	}
	return s.WriteMetadata(meta)
}

// WriteMetadata atomically replaces the metadata file for meta's key.
func (s *RunStore) WriteMetadata(meta model.RunMetadata) error {
	var buf bytes.Buffer
	if err := output.WriteMetadata(&buf, meta); err != nil {
		return fmt.Errorf("encode metadata %s: %w", meta.SanitizedModelID, err)
	}
	return writeAtomic(s.MetadataPath(meta.SanitizedModelID), buf.Bytes())
}

// ReadRecord loads the prediction file for key.
func (s *RunStore) ReadRecord(key string) (model.RunRecord, error) {
	f, err := os.Open(s.RunPath(key))
	if err != nil {
		return model.RunRecord{}, fmt.Errorf("open run %s: %w", key, err)
	}
	defer f.Close() //nolint:errcheck

	preds, err := output.ReadPredictions(f)
	if err != nil {
		return model.RunRecord{}, fmt.Errorf("read run %s: %w", key, err)
	}
	return model.RunRecord{Predictions: preds}, nil
}

// ReadMetadata loads the metadata file for key.
func (s *RunStore) ReadMetadata(key string) (model.RunMetadata, error) {
	f, err := os.Open(s.MetadataPath(key))
	if err != nil {
		return model.RunMetadata{}, fmt.Errorf("open metadata %s: %w", key, err)
	}
	defer f.Close() //nolint:errcheck

	meta, err := output.ReadMetadata(f)
	if err != nil {
		return model.RunMetadata{}, fmt.Errorf("metadata %s: %w", key, err)
	}
	return meta, nil
}

// Committed reports whether key has a metadata file.
func (s *RunStore) Committed(key string) bool {
	_, err := os.Stat(s.MetadataPath(key))
	return err == nil
}

// Discover lists the keys of all run files, sorted. The leaderboard and
// hidden temp files are excluded.
func (s *RunStore) Discover() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoRunDir, s.Dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read run directory %s: %w", s.Dir, err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || name == s.LeaderboardFile {
			continue
		}
		if !strings.HasSuffix(name, runExt) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, runExt))
	}
	sort.Strings(keys)
	return keys, nil
}

// WriteLeaderboard atomically replaces the leaderboard file.
func (s *RunStore) WriteLeaderboard(rows []model.LeaderboardRow) error {
	var buf bytes.Buffer
	if err := output.WriteLeaderboard(&buf, rows); err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create run directory %s: %w", s.Dir, err)
	}
	return writeAtomic(s.LeaderboardPath(), buf.Bytes())
}

// ReadLeaderboard loads the leaderboard file.
func (s *RunStore) ReadLeaderboard() ([]model.LeaderboardRow, error) {
	f, err := os.Open(s.LeaderboardPath())
	if err != nil {
		return nil, fmt.Errorf("open leaderboard: %w", err)
	}
	defer f.Close() //nolint:errcheck

	return output.ReadLeaderboard(f)
}

func writeAtomic(path string, data []byte) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		cleanup()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck
		cleanup()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
