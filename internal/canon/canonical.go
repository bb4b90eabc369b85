package canon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// MarshalCanonical produces the canonical JSON serialization of v: object
// keys sorted in lexicographic Unicode code-point order, no inserted
// whitespace, arrays preserved positionally, scalars encoded as standard
// JSON. It is the sole hash input for events and snapshots (spec §4.1).
//
// Accepted shapes are exactly what encoding/json produces when decoding
// into `any` (optionally with json.Decoder.UseNumber()): map[string]any,
// []any, string, bool, nil, json.Number, float64, plus float32, int and
// int64. Passing a
// Go struct or any other type is a programmer error and returns an error
// rather than guessing at a representation.
//
// Unlike RFC 8785 canonical JSON (which the teacher's internal/ir package
// implements for a value set that forbids null and floats), this
// function accepts both: spec §4.1 places no such restriction on payload
// or snapshot state, and the sort key comparison it requires —
// lexicographic Unicode code-point order — is exactly what Go's native
// byte-wise string comparison gives for UTF-8 encoded strings, so no
// UTF-16 re-encoding step (as the teacher performs) is needed here.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case map[string]any:
		return writeCanonicalObject(buf, val)
	case []any:
		return writeCanonicalArray(buf, val)
	case string:
		return writeCanonicalString(buf, val)
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case json.Number:
		buf.WriteString(string(val))
		return nil
	case float64:
		buf.WriteString(formatFloat(val))
		return nil
	case float32:
		buf.WriteString(formatFloat(float64(val)))
		return nil
	case int:
		buf.WriteString(strconv.Itoa(val))
		return nil
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
		return nil
	default:
		return fmt.Errorf("canon: unsupported type for canonical JSON: %T", v)
	}
}

func writeCanonicalObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	// Lexicographic Unicode code-point order: Go's byte-wise string
	// comparison on UTF-8 encoded text already yields this order.
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalString(buf, k); err != nil {
			return fmt.Errorf("canon: key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if err := writeCanonical(buf, obj[k]); err != nil {
			return fmt.Errorf("canon: value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeCanonicalArray(buf *bytes.Buffer, arr []any) error {
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonical(buf, elem); err != nil {
			return fmt.Errorf("canon: array[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

// writeCanonicalString writes s as a standard JSON string literal via
// encoding/json: control characters, the backslash, the double quote and
// U+2028/U+2029 are escaped, and invalid UTF-8 becomes U+FFFD.
// HTML-sensitive characters (<, >, &) are left unescaped, matching plain
// JSON rather than Go's HTML-safe default.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// json.Encoder writes a trailing newline; trim it back off.
	b := buf.Bytes()
	if len(b) > 0 && b[len(b)-1] == '\n' {
		buf.Truncate(len(b) - 1)
	}
	return nil
}

// formatFloat renders a float64 the way encoding/json does: shortest
// round-trip digits in plain decimal notation, with an exponent only
// below 1e-6 or from 1e21 up, so a payload stored as JSON and reloaded
// reproduces the same canonical bytes.
func formatFloat(f float64) string {
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	s := strconv.FormatFloat(f, format, -1, 64)
	if format == 'e' {
		// Drop the leading zero of a two-digit negative exponent (e-07 → e-7).
		n := len(s)
		if n >= 4 && s[n-4] == 'e' && s[n-3] == '-' && s[n-2] == '0' {
			s = s[:n-2] + s[n-1:]
		}
	}
	return s
}
