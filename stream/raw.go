package stream

import (
	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/expr"
	"github.com/kbukum/tuplestream/tuple"
)

// Raw is a Builder over an already parsed expression. Its sort is unknown, so
// CheckSortContract treats it as a leaf.
type Raw struct {
	x *expr.Expression
}

// FromExpression wraps x.
func FromExpression(x *expr.Expression) *Raw {
	return &Raw{x: x}
}

// Build returns the wrapped expression as is.
func (r *Raw) Build() (*expr.Expression, error) {
	if r.x == nil {
		return nil, errors.InvalidStream("stream: expression is required")
	}
	return r.x, nil
}

// Collection is the collection of the leftmost source in the expression.
func (r *Raw) Collection() string { return leftmostCollection(r.x) }

// SortKey is unknown for a raw expression.
func (r *Raw) SortKey() tuple.Sort { return nil }

func leftmostCollection(x *expr.Expression) string {
	if x == nil {
		return ""
	}
	switch x.Function {
	case FuncSearch, FuncFacet:
		if vals := x.Values(); len(vals) > 0 {
			return vals[0]
		}
		return ""
	}
	for _, sub := range x.Subexpressions() {
		if sub.Function == FuncGroup {
			continue
		}
		return leftmostCollection(sub)
	}
	return ""
}
