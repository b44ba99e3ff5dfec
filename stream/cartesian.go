package stream

import (
	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/expr"
	"github.com/kbukum/tuplestream/tuple"
)

// CartesianProduct expands each upstream tuple into one tuple per element of
// the cross product of the named multi-valued fields. With no fields it is the
// identity.
type CartesianProduct struct {
	upstream Builder
	fields   []string
}

// NewCartesianProduct wraps upstream.
func NewCartesianProduct(upstream Builder, fields ...string) *CartesianProduct {
	return &CartesianProduct{upstream: upstream, fields: append([]string(nil), fields...)}
}

// Collection is the upstream collection.
func (c *CartesianProduct) Collection() string { return collectionOf(c.upstream) }

// SortKey keeps the upstream order up to the first expanded field.
func (c *CartesianProduct) SortKey() tuple.Sort {
	expanded := make(map[string]bool, len(c.fields))
	for _, f := range c.fields {
		expanded[f] = true
	}
	return sortOf(c.upstream).Rename(func(name string) (string, bool) {
		return name, !expanded[name]
	})
}

// Build renders cartesianProduct over the upstream expression.
func (c *CartesianProduct) Build() (*expr.Expression, error) {
	up, err := buildChild(FuncCartesianProduct, c.upstream)
	if err != nil {
		return nil, err
	}
	if len(c.fields) == 0 {
		return up, nil
	}
	params := []expr.Param{expr.Sub(up)}
	for _, f := range c.fields {
		if f == "" {
			return nil, errors.InvalidStream("cartesianProduct: empty field name")
		}
		params = append(params, expr.Value(f))
	}
	return expr.New(FuncCartesianProduct, params...), nil
}

func (c *CartesianProduct) children() []Builder { return []Builder{c.upstream} }

func (c *CartesianProduct) checkContract() error { return nil }
