/*
PURPOSE:
  Turns a model's raw reply into a Prediction.

REQUIREMENTS:
  User-specified:
  - Expect a JSON object with min_value, max_value, reading_value, units.
  - Missing keys become null fields; the rest of the reply still counts.
  - Any decode failure yields an all-null Prediction and a warning that
    carries the raw text. The raw text is never persisted.

  Implementation-discovered:
  - Vision models wrap JSON in ```json fences even when told not to.
  - A schema check before the typed decode keeps "5.5" (string) from
    silently becoming a number or a zero.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (one call per image)
  - Produces: internal/model.Prediction

ERROR HANDLING:
  - Parse never fails and never panics; ParseStrict reports the reason.

IMPLEMENTATION RULES:
  - Schema validation: santhosh-tekuri/jsonschema/v6 (embedded schema).
  - Typed decode: go-viper/mapstructure/v2.

USAGE:
  pred := parser.Parse("gauge_01.png", reply)

SELF-HEALING INSTRUCTIONS:
  - If the prompt asks for new fields, extend prediction.schema.json and reply.

RELATED FILES:
  - internal/engine/prompt.go
  - internal/parser/prediction.schema.json

MAINTENANCE:
  - Keep the schema permissive about extra keys.
*/

package parser

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/daryltucker/gauge-bench/internal/model"
	"github.com/daryltucker/gauge-bench/internal/output"
)

//go:embed prediction.schema.json
var predictionSchemaJSON string

var predictionSchema = mustCompileSchema(predictionSchemaJSON, "prediction.schema.json")

// ErrNotObject is returned when the reply is valid JSON but not an object.
var ErrNotObject = errors.New("reply is not a JSON object")

// reply is the typed view of a validated model reply.
type reply struct {
	MinValue     *float64 `mapstructure:"min_value"`
	MaxValue     *float64 `mapstructure:"max_value"`
	ReadingValue *float64 `mapstructure:"reading_value"`
	Units        *string  `mapstructure:"units"`
}

// Parse decodes raw into a Prediction for filename. On failure it logs a
// warning and returns an all-null Prediction.
func Parse(filename, raw string) model.Prediction {
	pred, err := ParseStrict(filename, raw)
	if err != nil {
		output.Logger.Warn("Unparseable model reply", "file", filename, "error", err, "raw", raw)
		return model.NullPrediction(filename)
	}
	return pred
}

// ParseStrict is Parse with the failure reason returned instead of logged.
func ParseStrict(filename, raw string) (model.Prediction, error) {
	body := stripCodeFence(raw)

	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return model.NullPrediction(filename), fmt.Errorf("invalid JSON: %w", err)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return model.NullPrediction(filename), ErrNotObject
	}
	if err := predictionSchema.Validate(obj); err != nil {
		return model.NullPrediction(filename), fmt.Errorf("schema: %w", err)
	}

	var r reply
	if err := mapstructure.Decode(obj, &r); err != nil {
		return model.NullPrediction(filename), fmt.Errorf("decode: %w", err)
	}

	// "" is stored as an empty cell and reads back as null; treat it as null now
	// so a run scores the same before and after it is persisted.
	if r.Units != nil && *r.Units == "" {
		r.Units = nil
	}

	return model.Prediction{
		Filename:     filename,
		MinValue:     r.MinValue,
		MaxValue:     r.MaxValue,
		ReadingValue: r.ReadingValue,
		Units:        r.Units,
	}, nil
}

// stripCodeFence removes one surrounding Markdown fence, e.g. ```json ... ```.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	// drop the info string ("json") on the opening line
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	}
	return strings.TrimSpace(s)
}

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}
