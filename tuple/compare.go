package tuple

import (
	"cmp"
	"encoding/json"
	"strings"
)

// Value classes in ascending order. The ranking follows SQLite's ORDER BY over
// json_extract, so the store and the in-memory operators agree on ordering.
const (
	rankMissing = iota
	rankNumeric
	rankText
)

// Compare orders two tuple values. Missing (nil) sorts first, then numbers
// (bools count as 0 and 1), then text. Strings compare bytewise and lists
// compare as their JSON text.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch ra {
	case rankMissing:
		return 0
	case rankNumeric:
		if ia, ok := a.(int64); ok {
			if ib, ok := b.(int64); ok {
				return cmp.Compare(ia, ib)
			}
		}
		fa, _ := asFloat(a)
		fb, _ := asFloat(b)
		return cmp.Compare(fa, fb)
	}
	return strings.Compare(text(a), text(b))
}

// CompareField compares the named field of two tuples.
func CompareField(a, b Tuple, field string) int {
	return Compare(a.values[field], b.values[field])
}

func rank(v any) int {
	switch x := v.(type) {
	case nil:
		return rankMissing
	case []string:
		// a nil list is stored as JSON null
		if x == nil {
			return rankMissing
		}
	case int64, float64, bool:
		return rankNumeric
	}
	return rankText
}

func text(v any) string {
	if list, ok := v.([]string); ok {
		b, _ := json.Marshal(list)
		return string(b)
	}
	return formatScalar(v)
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
