package stream

import (
	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/expr"
	"github.com/kbukum/tuplestream/tuple"
)

// Unique keeps the first tuple of each run of equal field values.
type Unique struct {
	upstream Builder
	field    string
}

// NewUnique creates an adjacent dedup over field.
func NewUnique(upstream Builder, field string) *Unique {
	return &Unique{upstream: upstream, field: field}
}

// Collection is the upstream collection.
func (u *Unique) Collection() string { return collectionOf(u.upstream) }

// SortKey is the upstream order.
func (u *Unique) SortKey() tuple.Sort { return sortOf(u.upstream) }

// Build renders unique over the upstream expression.
func (u *Unique) Build() (*expr.Expression, error) {
	if u.field == "" {
		return nil, errors.InvalidStream("unique: field is required")
	}
	up, err := buildChild(FuncUnique, u.upstream)
	if err != nil {
		return nil, err
	}
	return expr.New(FuncUnique, expr.Sub(up), expr.Pair(ParamOver, u.field)), nil
}

func (u *Unique) children() []Builder { return []Builder{u.upstream} }

func (u *Unique) checkContract() error {
	if s := sortOf(u.upstream); !s.Leads(u.field) {
		return errors.InvalidStream("unique: upstream must be sorted by %s, got %q", u.field, s.String())
	}
	return nil
}
