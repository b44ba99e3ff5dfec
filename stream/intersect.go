package stream

import (
	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/expr"
	"github.com/kbukum/tuplestream/tuple"
)

// Intersect emits the tuples of the left stream whose key also occurs in the
// right stream. Both inputs must be sorted ascending on the key.
type Intersect struct {
	left, right Builder
	field       string
}

// NewIntersect creates a merge-intersection of left and right on field.
func NewIntersect(left, right Builder, field string) *Intersect {
	return &Intersect{left: left, right: right, field: field}
}

// Collection is the collection of the left stream.
func (i *Intersect) Collection() string { return collectionOf(i.left) }

// SortKey is the left stream's order; intersect keeps it.
func (i *Intersect) SortKey() tuple.Sort { return sortOf(i.left) }

// Build renders the intersect. Both sides must be sorted on the join field.
func (i *Intersect) Build() (*expr.Expression, error) {
	if i.field == "" {
		return nil, errors.InvalidStream("intersect: field is required")
	}
	left, err := buildChild(FuncIntersect, i.left)
	if err != nil {
		return nil, err
	}
	right, err := buildChild(FuncIntersect, i.right)
	if err != nil {
		return nil, err
	}
	return expr.New(FuncIntersect, expr.Sub(left), expr.Sub(right), expr.Pair(ParamOn, i.field)), nil
}

func (i *Intersect) children() []Builder { return []Builder{i.left, i.right} }

func (i *Intersect) checkContract() error {
	if s := sortOf(i.left); !s.LeadsAscending(i.field) {
		return errors.InvalidStream("intersect: left stream must be sorted by %s asc, got %q", i.field, s.String())
	}
	if s := sortOf(i.right); !s.LeadsAscending(i.field) {
		return errors.InvalidStream("intersect: right stream must be sorted by %s asc, got %q", i.field, s.String())
	}
	return nil
}
