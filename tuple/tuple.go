// Package tuple defines the record that flows through every stream: an ordered
// mapping of field name to a scalar or list value.
package tuple

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Reserved field names used by the stream wire protocol.
const (
	FieldEOF          = "EOF"
	FieldException    = "EXCEPTION"
	FieldResponseTime = "RESPONSE_TIME"
)

// Field is a single name/value pair used to construct tuples.
type Field struct {
	Name  string
	Value any
}

// F is shorthand for constructing a Field.
func F(name string, value any) Field {
	return Field{Name: name, Value: value}
}

// Tuple is an immutable, ordered set of fields. The zero value is an empty tuple.
//
// Values are string, int64, float64, bool or []string. Constructors normalise
// other integer and float kinds and copy slices, so a Tuple never aliases
// caller-owned memory.
type Tuple struct {
	names  []string
	values map[string]any
}

// New builds a tuple from fields in order. A repeated name keeps its first
// position and takes the last value.
func New(fields ...Field) Tuple {
	t := Tuple{
		names:  make([]string, 0, len(fields)),
		values: make(map[string]any, len(fields)),
	}
	for _, f := range fields {
		t.set(f.Name, normalize(f.Value))
	}
	return t
}

// FromMap builds a tuple from m using order for field ordering. Keys of m
// missing from order are appended in no particular order.
func FromMap(m map[string]any, order ...string) Tuple {
	fields := make([]Field, 0, len(m))
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		if v, ok := m[name]; ok && !seen[name] {
			fields = append(fields, F(name, v))
			seen[name] = true
		}
	}
	for name, v := range m {
		if !seen[name] {
			fields = append(fields, F(name, v))
		}
	}
	return New(fields...)
}

// EOF returns the end-of-stream marker tuple.
func EOF() Tuple {
	return New(F(FieldEOF, true))
}

// EOFWithTime returns the end-of-stream marker carrying the response time in ms.
func EOFWithTime(ms int64) Tuple {
	return New(F(FieldEOF, true), F(FieldResponseTime, ms))
}

// Exception returns an error tuple. Error tuples also carry the EOF marker:
// nothing follows them.
func Exception(msg string) Tuple {
	return New(F(FieldException, msg), F(FieldEOF, true))
}

func (t *Tuple) set(name string, v any) {
	if _, ok := t.values[name]; !ok {
		t.names = append(t.names, name)
	}
	t.values[name] = v
}

// Len returns the number of fields.
func (t Tuple) Len() int { return len(t.names) }

// Fields returns the field names in order.
func (t Tuple) Fields() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Has reports whether the field is present.
func (t Tuple) Has(name string) bool {
	_, ok := t.values[name]
	return ok
}

// Get returns the value of a field.
func (t Tuple) Get(name string) (any, bool) {
	v, ok := t.values[name]
	if list, isList := v.([]string); isList {
		return append([]string(nil), list...), ok
	}
	return v, ok
}

// String returns the field rendered as a string; lists render as their first element.
func (t Tuple) String(name string) string {
	v, ok := t.values[name]
	if !ok {
		return ""
	}
	switch x := v.(type) {
	case []string:
		if len(x) == 0 {
			return ""
		}
		return x[0]
	default:
		return formatScalar(x)
	}
}

// Strings returns the field as a list. Scalars become a one-element list and a
// missing field an empty one.
func (t Tuple) Strings(name string) []string {
	v, ok := t.values[name]
	if !ok {
		return nil
	}
	if list, isList := v.([]string); isList {
		return append([]string(nil), list...)
	}
	return []string{formatScalar(v)}
}

// Int returns the field as an int64.
func (t Tuple) Int(name string) (int64, bool) {
	switch x := t.values[name].(type) {
	case int64:
		return x, true
	case float64:
		return int64(x), true
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// Float returns the field as a float64.
func (t Tuple) Float(name string) (float64, bool) {
	switch x := t.values[name].(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Bool returns the field as a bool.
func (t Tuple) Bool(name string) bool {
	b, _ := t.values[name].(bool)
	return b
}

// IsEOF reports whether t is the end-of-stream marker (or an error tuple).
func (t Tuple) IsEOF() bool { return t.Bool(FieldEOF) }

// Exception returns the backend error message carried by t, if any.
func (t Tuple) Exception() (string, bool) {
	v, ok := t.values[FieldException]
	if !ok {
		return "", false
	}
	return formatScalar(v), true
}

// With returns a copy of t with name set to value.
func (t Tuple) With(name string, value any) Tuple {
	out := t.clone()
	out.set(name, normalize(value))
	return out
}

// Select returns a tuple holding only the named fields, in the given order.
// Missing fields are skipped.
func (t Tuple) Select(names ...string) Tuple {
	out := New()
	for _, n := range names {
		if v, ok := t.values[n]; ok {
			out.set(n, v)
		}
	}
	return out
}

// Without returns a copy of t without the named fields.
func (t Tuple) Without(names ...string) Tuple {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	out := New()
	for _, n := range t.names {
		if !drop[n] {
			out.set(n, t.values[n])
		}
	}
	return out
}

// Rename returns a copy of t with field from renamed to to, keeping its position.
func (t Tuple) Rename(from, to string) Tuple {
	if from == to || !t.Has(from) {
		return t.clone()
	}
	out := New()
	for _, n := range t.names {
		if n == to {
			continue
		}
		if n == from {
			out.set(to, t.values[from])
			continue
		}
		out.set(n, t.values[n])
	}
	return out
}

// Equal reports whether two tuples hold the same fields in the same order with equal values.
func (t Tuple) Equal(o Tuple) bool {
	if len(t.names) != len(o.names) {
		return false
	}
	for i, n := range t.names {
		if o.names[i] != n || Compare(t.values[n], o.values[n]) != 0 {
			return false
		}
	}
	return true
}

// Map returns the fields as a plain map.
func (t Tuple) Map() map[string]any {
	m := make(map[string]any, len(t.names))
	for _, n := range t.names {
		v, _ := t.Get(n)
		m[n] = v
	}
	return m
}

// GoString renders the tuple for test diagnostics.
func (t Tuple) GoString() string {
	b, _ := t.MarshalJSON()
	return string(b)
}

// MarshalJSON writes the fields as a JSON object, preserving order.
func (t Tuple) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range t.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(t.values[n])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", n, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, preserving field order.
func (t *Tuple) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	out, err := Decode(dec)
	if err != nil {
		return err
	}
	*t = out
	return nil
}

func (t Tuple) clone() Tuple {
	out := Tuple{
		names:  make([]string, len(t.names)),
		values: make(map[string]any, len(t.names)),
	}
	copy(out.names, t.names)
	for k, v := range t.values {
		out.values[k] = v
	}
	return out
}

// normalize maps supported Go values onto the tuple value set.
func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string, int64, float64, bool:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	case json.Number:
		return numberValue(x)
	case []string:
		return append([]string(nil), x...)
	case []any:
		out := make([]string, len(x))
		for i, e := range x {
			out[i] = formatScalar(normalize(e))
		}
		return out
	default:
		return fmt.Sprint(x)
	}
}

func numberValue(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func formatScalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatFloat(x, 'f', 1, 64)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
