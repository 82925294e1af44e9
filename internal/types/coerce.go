package types

import (
	"fmt"
	"time"
)

// =============================================================================
// OVERFLOW / DOCUMENT VALUE COERCION
// =============================================================================
//
// Documents read back from the persistent store and LLM overflow buckets
// arrive as map[string]any with JSON-decoded value types. These helpers
// replace bare type assertions (which panic on mismatch) with tolerant,
// type-aware extraction. Values can be any of:
//   - string:  plain text, or an RFC3339 timestamp
//   - float64: JSON numbers (including timestamps stored as epoch millis)
//   - int64 / int: manually constructed values
//   - bool
//   - time.Time: values that never round-tripped through JSON

// CoerceString extracts a string representation from a document value.
func CoerceString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	case int64:
		return fmt.Sprintf("%d", t)
	case int:
		return fmt.Sprintf("%d", t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// CoerceFloat extracts a float64 from a document value. Returns false when
// the value is absent or not numeric.
func CoerceFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}

// CoerceInt extracts an int from a document value. Returns false when the
// value is absent or not numeric.
func CoerceInt(v any) (int, bool) {
	f, ok := CoerceFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// CoerceMillis extracts an epoch-millisecond timestamp from a document
// value. Tolerates native epoch millis (number), epoch seconds (number small
// enough to be a second count), RFC3339 strings, and time.Time values, per
// the document-store contract. Returns 0 when the value is unusable.
func CoerceMillis(v any) int64 {
	switch t := v.(type) {
	case time.Time:
		return t.UnixMilli()
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts.UnixMilli()
		}
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts.UnixMilli()
		}
		return 0
	default:
		f, ok := CoerceFloat(v)
		if !ok {
			return 0
		}
		ms := int64(f)
		// Values before ~2001-09 in millis are assumed to be epoch seconds.
		if ms > 0 && ms < 1_000_000_000_000 {
			ms *= 1000
		}
		return ms
	}
}
