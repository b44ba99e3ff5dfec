package stream

import (
	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/expr"
	"github.com/kbukum/tuplestream/tuple"
	"github.com/kbukum/tuplestream/validation"
)

// Reducer keeps at most limit tuples from each run of equal group values,
// preserving their order. The upstream must be sorted on the group field, and
// the sort field must be the group field.
type Reducer struct {
	upstream   Builder
	sortField  string
	groupField string
	limit      int
}

// NewReducer creates a per-run top-N reduction.
func NewReducer(upstream Builder, sortField, groupField string, limit int) *Reducer {
	return &Reducer{upstream: upstream, sortField: sortField, groupField: groupField, limit: limit}
}

// Collection is the upstream collection.
func (r *Reducer) Collection() string { return collectionOf(r.upstream) }

// SortKey is the upstream order.
func (r *Reducer) SortKey() tuple.Sort { return sortOf(r.upstream) }

// Build renders reduce with its group operation.
func (r *Reducer) Build() (*expr.Expression, error) {
	if err := validation.For(FuncReduce).
		Required(ParamBy, r.groupField).
		Required(ParamSort, r.sortField).
		Min(ParamN, r.limit, 1).
		ValidateAs(errors.ErrCodeInvalidStream); err != nil {
		return nil, err
	}
	up, err := buildChild(FuncReduce, r.upstream)
	if err != nil {
		return nil, err
	}
	order := tuple.Asc
	if s := sortOf(r.upstream); s.Leads(r.sortField) {
		order = s[0].Order
	}
	group := expr.New(FuncGroup,
		expr.Pair(ParamSort, tuple.SortField{Name: r.sortField, Order: order}.String()),
		expr.Pair(ParamN, itoa(r.limit)),
	)
	return expr.New(FuncReduce, expr.Sub(up), expr.Pair(ParamBy, r.groupField), expr.Sub(group)), nil
}

func (r *Reducer) children() []Builder { return []Builder{r.upstream} }

func (r *Reducer) checkContract() error {
	if r.sortField != r.groupField {
		return errors.InvalidStream("reduce: sort field %q differs from group field %q", r.sortField, r.groupField)
	}
	if s := sortOf(r.upstream); !s.Leads(r.groupField) {
		return errors.InvalidStream("reduce: upstream must be sorted by %s, got %q", r.groupField, s.String())
	}
	return nil
}
