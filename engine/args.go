package engine

import (
	"strconv"
	"strings"

	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/expr"
)

// call gives checked access to the parameters of one function call.
type call struct {
	x *expr.Expression
}

func (c call) errorf(format string, args ...any) *errors.AppError {
	return errors.InvalidStream(c.x.Function+": "+format, args...)
}

// only rejects named parameters outside names, and repeated ones.
func (c call) only(names ...string) error {
	seen := make(map[string]bool, len(c.x.Params))
	for _, p := range c.x.Params {
		if !p.IsNamed() {
			continue
		}
		known := false
		for _, n := range names {
			known = known || n == p.Name
		}
		if !known {
			return c.errorf("unknown parameter %q", p.Name)
		}
		if seen[p.Name] {
			return c.errorf("parameter %q given twice", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

func (c call) optional(name string) string {
	v, _ := c.x.Named(name)
	return strings.TrimSpace(v)
}

func (c call) required(name string) (string, error) {
	v := c.optional(name)
	if v == "" {
		return "", c.errorf("parameter %q is required", name)
	}
	return v, nil
}

// count parses an integer parameter; absent means def.
func (c call) count(name string, def, min int) (int, error) {
	v := c.optional(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min {
		return 0, c.errorf("parameter %q must be an integer >= %d, got %q", name, min, v)
	}
	return n, nil
}

// streams returns the nested expressions, requiring exactly n.
func (c call) streams(n int) ([]*expr.Expression, error) {
	subs := c.x.Subexpressions()
	if len(subs) != n {
		return nil, c.errorf("expected %d nested stream(s), got %d", n, len(subs))
	}
	return subs, nil
}

// collection returns the single positional value naming the collection.
func (c call) collection() (string, error) {
	vals := c.x.Values()
	if len(vals) != 1 || strings.TrimSpace(vals[0]) == "" {
		return "", c.errorf("expected the collection as the first parameter")
	}
	return strings.TrimSpace(vals[0]), nil
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
