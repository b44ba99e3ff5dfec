package tuple

import (
	"encoding/json"
	"fmt"
)

// Decode reads one JSON object from dec as a tuple, keeping field order.
// The decoder must have UseNumber enabled for integers to survive intact.
func Decode(dec *json.Decoder) (Tuple, error) {
	tok, err := dec.Token()
	if err != nil {
		return Tuple{}, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Tuple{}, fmt.Errorf("tuple: expected object, got %v", tok)
	}
	t := New()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Tuple{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return Tuple{}, fmt.Errorf("tuple: expected field name, got %v", keyTok)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return Tuple{}, fmt.Errorf("tuple: field %s: %w", key, err)
		}
		v, err := decodeValue(raw)
		if err != nil {
			return Tuple{}, fmt.Errorf("tuple: field %s: %w", key, err)
		}
		t.set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return Tuple{}, err
	}
	return t, nil
}

func decodeValue(raw any) (any, error) {
	switch x := raw.(type) {
	case nil, string, bool:
		return x, nil
	case json.Number:
		return numberValue(x), nil
	case float64:
		return x, nil
	case []any:
		out := make([]string, len(x))
		for i, e := range x {
			switch e.(type) {
			case map[string]any, []any:
				return nil, fmt.Errorf("nested value in list")
			}
			out[i] = formatScalar(normalize(e))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value of type %T", raw)
	}
}
