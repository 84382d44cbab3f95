package store

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/gauge-bench/internal/model"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"gpt-4o", "gpt-4o"},
		{"openai/gpt-4o", "openai_gpt-4o"},
		{"llava:13b", "llava_13b"},
		{"meta-llama/llama-3.2-11b-vision-instruct:free", "meta-llama_llama-3.2-11b-vision-instruct_free"},
		{`a\b c`, "a_b_c"},
		{"", "_"},
		{"..", "__"},
		{".x", "_x"},
		{"..hidden/model", "_.hidden_model"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Sanitize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Sanitize(tt.in), "must be deterministic")
		})
	}
}

func sampleRecord() model.RunRecord {
	return model.RunRecord{Predictions: []model.Prediction{
		{Filename: "b.png", MinValue: model.Float(0), MaxValue: model.Float(10), ReadingValue: model.Float(0.1), Units: model.String("psi")},
		model.NullPrediction("a.png"),
		{Filename: "c,quoted.png", ReadingValue: model.Float(1e-7), Units: model.String("°C")},
	}}
}

func TestCommitAndRead(t *testing.T) {
	rs := New(filepath.Join(t.TempDir(), "results"), "leaderboard.csv")
	meta := model.RunMetadata{
		ModelID:      "openai/gpt-4o",
		ModelCreator: "openai",
		APIType:      model.APIOpenRouter,
		Score:        33.3,
		EvaluatedAt:  time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, rs.Commit(meta, sampleRecord()))
	assert.True(t, rs.Committed("openai_gpt-4o"))

	record, err := rs.ReadRecord("openai_gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, sampleRecord(), record, "order and values must round-trip exactly")

	got, err := rs.ReadMetadata("openai_gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "openai_gpt-4o", got.SanitizedModelID)
	assert.Equal(t, meta.ModelID, got.ModelID)
	assert.True(t, meta.EvaluatedAt.Equal(got.EvaluatedAt))

	raw, err := os.ReadFile(rs.RunPath("openai_gpt-4o"))
	require.NoError(t, err)
	assert.Equal(t, "filename,min_value,max_value,reading_value,units\n"+
		"b.png,0,10,0.1,psi\n"+
		"a.png,,,,\n"+
		"\"c,quoted.png\",,,0.0000001,°C\n", string(raw))
}

func TestCommit_SameKeyOverwrites(t *testing.T) {
	rs := New(t.TempDir(), "leaderboard.csv")

	require.NoError(t, rs.Commit(model.RunMetadata{ModelID: "vendor/model"}, sampleRecord()))
	require.NoError(t, rs.Commit(model.RunMetadata{ModelID: "vendor:model"}, model.RunRecord{
		Predictions: []model.Prediction{model.NullPrediction("z.png")},
	}))

	keys, err := rs.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{"vendor_model"}, keys)

	meta, err := rs.ReadMetadata("vendor_model")
	require.NoError(t, err)
	assert.Equal(t, "vendor:model", meta.ModelID, "last write wins")

	record, err := rs.ReadRecord("vendor_model")
	require.NoError(t, err)
	assert.Len(t, record.Predictions, 1)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	rs := New(dir, "leaderboard.csv")
	for _, name := range []string{"b.csv", "a.csv", "leaderboard.csv", ".a.csv.tmp-123", "a.meta.json", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755))

	keys, err := rs.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
	assert.True(t, rs.Committed("a"))
	assert.False(t, rs.Committed("b"))
}

func TestCommit_RefusesLeaderboardKey(t *testing.T) {
	rs := New(t.TempDir(), "leaderboard.csv")
	rows := []model.LeaderboardRow{{ModelID: "m", ModelCreator: "x", Score: 50, UnitsAccuracy: 50}}
	require.NoError(t, rs.WriteLeaderboard(rows))

	err := rs.Commit(model.RunMetadata{ModelID: "leaderboard"}, sampleRecord())
	require.ErrorIs(t, err, ErrReservedKey)
	assert.False(t, rs.Committed("leaderboard"))

	got, err := rs.ReadLeaderboard()
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	// any other leaderboard name frees the key
	assert.True(t, New(t.TempDir(), "board.csv").Reserved("board"))
	assert.False(t, New(t.TempDir(), "board.csv").Reserved("leaderboard"))
}

func TestCommit_DotPrefixedModelIsDiscovered(t *testing.T) {
	rs := New(t.TempDir(), "leaderboard.csv")
	require.NoError(t, rs.Commit(model.RunMetadata{ModelID: ".x"}, sampleRecord()))

	keys, err := rs.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{"_x"}, keys)
	assert.True(t, rs.Committed("_x"))
}

func TestDiscover_MissingDir(t *testing.T) {
	rs := New(filepath.Join(t.TempDir(), "nope"), "leaderboard.csv")
	_, err := rs.Discover()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoRunDir))
}

func TestReadMetadata_Missing(t *testing.T) {
	rs := New(t.TempDir(), "leaderboard.csv")
	_, err := rs.ReadMetadata("ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestReadMetadata_Corrupt(t *testing.T) {
	dir := t.TempDir()
	rs := New(dir, "leaderboard.csv")
	require.NoError(t, os.WriteFile(rs.MetadataPath("m"), []byte(`{"model_id": "m"`), 0o644))

	_, err := rs.ReadMetadata("m")
	require.Error(t, err)
	assert.False(t, errors.Is(err, fs.ErrNotExist))
}

func TestLeaderboardRoundTrip(t *testing.T) {
	rs := New(t.TempDir(), "leaderboard.csv")
	rows := []model.LeaderboardRow{
		{ModelID: "a", ModelCreator: "A Corp", Score: 66.666666, UnitsAccuracy: 100},
		{ModelID: "b", ModelCreator: model.UnknownCreator, Score: 0, UnitsAccuracy: 0},
	}
	require.NoError(t, rs.WriteLeaderboard(rows))

	raw, err := os.ReadFile(rs.LeaderboardPath())
	require.NoError(t, err)
	assert.Equal(t, "model_id,model_creator,score,units_accuracy\na,A Corp,66.67,100.00\nb,Unknown,0.00,0.00\n", string(raw))

	got, err := rs.ReadLeaderboard()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 66.67, got[0].Score)

	// rewrite replaces in full
	require.NoError(t, rs.WriteLeaderboard(rows[1:]))
	got, err = rs.ReadLeaderboard()
	require.NoError(t, err)
	assert.Len(t, got, 1)

	entries, err := os.ReadDir(rs.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
