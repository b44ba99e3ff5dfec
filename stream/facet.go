package stream

import (
	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/expr"
	"github.com/kbukum/tuplestream/query"
	"github.com/kbukum/tuplestream/tuple"
	"github.com/kbukum/tuplestream/validation"
)

type facetSort int

const (
	sortByCountDesc facetSort = iota
	sortByCountAsc
	sortByAverageDesc
)

// Facet is a source emitting one tuple per distinct value of a group field,
// with the bucket size and optionally the average absolute value of a
// numeric field.
type Facet struct {
	q        query.Query
	group    string
	avgField string
	mode     facetSort
	// limit is the bucket cap set by WithBucketLimit; nil means every bucket.
	limit *int
}

// FacetOption configures a Facet.
type FacetOption func(*Facet)

// WithAverageOfAbsolute adds the avg(abs(field)) metric.
func WithAverageOfAbsolute(field string) FacetOption {
	return func(f *Facet) { f.avgField = field }
}

// SortByCountDesc orders buckets by descending size. This is the default.
func SortByCountDesc() FacetOption {
	return func(f *Facet) { f.mode = sortByCountDesc }
}

// SortByCountAsc orders buckets by ascending size.
func SortByCountAsc() FacetOption {
	return func(f *Facet) { f.mode = sortByCountAsc }
}

// SortByAverageDesc orders buckets by descending avg(abs(field)).
// Requires WithAverageOfAbsolute.
func SortByAverageDesc() FacetOption {
	return func(f *Facet) { f.mode = sortByAverageDesc }
}

// WithBucketLimit caps the number of buckets emitted. Without it a facet
// emits every bucket.
func WithBucketLimit(n int) FacetOption {
	return func(f *Facet) { f.limit = &n }
}

// NewFacet creates a facet source grouping the documents matched by q on
// groupField. Only the collection, terms and filters of q are used. Options
// apply in order; the last sort option wins.
func NewFacet(q query.Query, groupField string, opts ...FacetOption) *Facet {
	q.Terms = append([]query.Term(nil), q.Terms...)
	q.Filters = append([]query.Term(nil), q.Filters...)
	f := &Facet{q: q, group: groupField}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Collection returns the collection of the facet query.
func (f *Facet) Collection() string { return f.q.Collection }

// SortKey reports the bucket order; ties are broken by group value.
func (f *Facet) SortKey() tuple.Sort {
	var lead tuple.SortField
	switch f.mode {
	case sortByCountAsc:
		lead = tuple.Ascending(CountMetric)
	case sortByAverageDesc:
		lead = tuple.Descending(AvgAbsMetric(f.avgField))
	default:
		lead = tuple.Descending(CountMetric)
	}
	return tuple.Sort{lead, tuple.Ascending(f.group)}
}

// Build renders the facet expression.
func (f *Facet) Build() (*expr.Expression, error) {
	if err := f.q.Validate(); err != nil {
		return nil, err
	}
	v := validation.For(FuncFacet).
		Required(ParamBuckets, f.group).
		Check(f.mode != sortByAverageDesc || f.avgField != "", ParamBucketSorts, "sorting by average requires an average field")
	if f.limit != nil {
		v.Min(ParamBucketSizeLimit, *f.limit, 1)
	}
	if err := v.ValidateAs(errors.ErrCodeInvalidStream); err != nil {
		return nil, err
	}

	params := []expr.Param{expr.Value(f.q.Collection), expr.Pair(ParamQ, f.q.Q())}
	if fq := f.q.FQ(); fq != "" {
		params = append(params, expr.Pair(ParamFQ, fq))
	}
	params = append(params,
		expr.Pair(ParamBuckets, f.group),
		expr.Pair(ParamBucketSorts, f.SortKey()[0].String()),
	)
	if f.limit != nil {
		params = append(params, expr.Pair(ParamBucketSizeLimit, itoa(*f.limit)))
	}
	params = append(params, expr.Sub(expr.New(FuncCount, expr.Value("*"))))
	if f.avgField != "" {
		params = append(params, expr.Sub(expr.New(FuncAvg, expr.Sub(expr.New(FuncAbs, expr.Value(f.avgField))))))
	}
	return expr.New(FuncFacet, params...), nil
}

func (f *Facet) children() []Builder { return nil }

func (f *Facet) checkContract() error { return nil }
