/*
PURPOSE:
  Encodes and decodes run metadata records as JSON.

REQUIREMENTS:
  User-specified:
  - Metadata sits next to each run file and shares its key.

  Implementation-discovered:
  - Indented output keeps the files diff-friendly in git.
  - Decoding must reject trailing garbage so a half-written file counts as corrupt.

ARCHITECTURE INTEGRATION:
  - Called by: internal/store
  - Consumes: internal/model.RunMetadata

ERROR HANDLING:
  - Returns error on encode failure or malformed input.

IMPLEMENTATION RULES:
  - Use encoding/json.NewEncoder / NewDecoder.

USAGE:
  err := output.WriteMetadata(w, meta)
  meta, err := output.ReadMetadata(r)

SELF-HEALING INSTRUCTIONS:
  - None specific.

RELATED FILES:
  - internal/model/types.go
  - internal/store/runstore.go

MAINTENANCE:
  - Keep JSON tags in model.RunMetadata backwards compatible.
*/

package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/daryltucker/gauge-bench/internal/model"
)

// WriteMetadata writes a single metadata record.
func WriteMetadata(w io.Writer, meta model.RunMetadata) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(meta)
}

// ReadMetadata decodes a single metadata record.
func ReadMetadata(r io.Reader) (model.RunMetadata, error) {
	var meta model.RunMetadata
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&meta); err != nil {
		return model.RunMetadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	var extra json.RawMessage
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		return model.RunMetadata{}, fmt.Errorf("decode metadata: unexpected data after record")
	}
	return meta, nil
}
