// Package reconcile implements the multi-source truth validation engine:
// field extraction from raw source payloads, standardization into canonical
// measurement records, tolerance-based comparison against stored reference
// values, and aggregation into a run-level accuracy report.
package reconcile

import (
	"strconv"

	"lamptruth/internal/types"
)

// Extract traverses a raw source payload along the given path and returns the
// value it lands on. The second return is false when any step cannot be
// resolved: missing key, out-of-range index, or stepping into a scalar.
//
// Extraction is total by design. Sources routinely omit fields, and one
// missing branch must not abort the rest of the record, so every traversal
// failure degrades to absent rather than an error.
func Extract(raw any, path types.FieldPath) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}

	current := raw
	for _, step := range path {
		switch step.Kind {
		case types.StepKey:
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			current, ok = obj[step.Key]
			if !ok {
				return nil, false
			}
		case types.StepIndex:
			switch node := current.(type) {
			case []any:
				if step.Index < 0 || step.Index >= len(node) {
					return nil, false
				}
				current = node[step.Index]
			case map[string]any:
				// Some sources key objects by stringified numbers
				// ("0", "1", ...); an index step resolves those too.
				v, ok := node[strconv.Itoa(step.Index)]
				if !ok {
					return nil, false
				}
				current = v
			default:
				return nil, false
			}
		default:
			return nil, false
		}
	}

	return current, true
}

// AsFloat coerces an extracted payload value into a float64. JSON decoding
// yields float64 for all numbers, but sources have been observed returning
// quoted numerics, so numeric strings are accepted too.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
