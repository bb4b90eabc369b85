package store

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// marshalJSONValue serializes v (a map[string]any, []any, or scalar
// decoded with UseNumber semantics) to TEXT storage. This is a plain
// JSON encoding, not the canonical or archive serializers — it only
// needs to round-trip, not match any byte-for-byte contract.
func marshalJSONValue(v any) (string, error) {
	if v == nil {
		return "null", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("store: marshal: %w", err)
	}
	return trimNewline(buf.String()), nil
}

func trimNewline(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\n' {
		return s[:len(s)-1]
	}
	return s
}

// unmarshalJSONObject parses TEXT storage back into a map[string]any,
// preserving exact numeric literals via json.Number so canonical
// re-hashing of a loaded event reproduces the original hash input.
func unmarshalJSONObject(data string) (map[string]any, error) {
	if data == "" || data == "null" {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("store: unmarshal object: %w", err)
	}
	return m, nil
}

// unmarshalJSONValue parses TEXT storage into an arbitrary JSON value
// (used for snapshot state, which need not be an object).
func unmarshalJSONValue(data string) (any, error) {
	if data == "" || data == "null" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("store: unmarshal value: %w", err)
	}
	return v, nil
}
