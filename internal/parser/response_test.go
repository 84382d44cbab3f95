package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/gauge-bench/internal/model"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want model.Prediction
	}{
		{
			name: "complete object",
			raw:  `{"min_value": 0, "max_value": 10, "reading_value": 5.5, "units": "psi"}`,
			want: model.Prediction{
				Filename:     "a.png",
				MinValue:     model.Float(0),
				MaxValue:     model.Float(10),
				ReadingValue: model.Float(5.5),
				Units:        model.String("psi"),
			},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"min_value\": -40, \"max_value\": 120, \"reading_value\": 72, \"units\": \"°F\"}\n```",
			want: model.Prediction{
				Filename:     "a.png",
				MinValue:     model.Float(-40),
				MaxValue:     model.Float(120),
				ReadingValue: model.Float(72),
				Units:        model.String("°F"),
			},
		},
		{
			name: "missing keys become null",
			raw:  `{"reading_value": 3, "units": "bar"}`,
			want: model.Prediction{
				Filename:     "a.png",
				ReadingValue: model.Float(3),
				Units:        model.String("bar"),
			},
		},
		{
			name: "explicit nulls and extra keys",
			raw:  `{"min_value": null, "max_value": 1.6, "reading_value": null, "units": "MPa", "confidence": "high"}`,
			want: model.Prediction{
				Filename: "a.png",
				MaxValue: model.Float(1.6),
				Units:    model.String("MPa"),
			},
		},
		{
			name: "empty units are null",
			raw:  `{"reading_value": 5.5, "units": ""}`,
			want: model.Prediction{
				Filename:     "a.png",
				ReadingValue: model.Float(5.5),
			},
		},
		{name: "not json", raw: "not json", want: model.NullPrediction("a.png")},
		{name: "empty reply", raw: "", want: model.NullPrediction("a.png")},
		{name: "array", raw: `[1, 2, 3]`, want: model.NullPrediction("a.png")},
		{name: "string number rejected", raw: `{"reading_value": "5.5", "units": "psi"}`, want: model.NullPrediction("a.png")},
		{name: "numeric units rejected", raw: `{"reading_value": 5.5, "units": 7}`, want: model.NullPrediction("a.png")},
		{name: "prose around json", raw: `The gauge reads {"reading_value": 5}`, want: model.NullPrediction("a.png")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse("a.png", tt.raw)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStrict_ReportsReason(t *testing.T) {
	pred, err := ParseStrict("x.png", "[]")
	require.ErrorIs(t, err, ErrNotObject)
	assert.True(t, pred.IsNull())
	assert.Equal(t, "x.png", pred.Filename)

	_, err = ParseStrict("x.png", `{"units": 1}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1}  "))
	assert.Equal(t, "```", stripCodeFence("```"))
}
