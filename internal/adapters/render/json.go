package render

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// jsonIndent matches the two-space indentation the export files have always
// used.
const jsonIndent = "  "

// JSON renders any value as indented JSON. Messages decoded with
// json.Number re-encode their numbers verbatim, so large ids survive the
// round trip untouched.
func JSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", jsonIndent)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json: %w", err)
	}
	return data, nil
}

// RawJSON re-indents an already-encoded JSON document without decoding it,
// preserving its structure byte for byte apart from whitespace.
func RawJSON(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", jsonIndent); err != nil {
		return nil, fmt.Errorf("failed to indent json: %w", err)
	}
	return buf.Bytes(), nil
}
