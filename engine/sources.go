package engine

import (
	"context"

	"github.com/kbukum/tuplestream/expr"
	"github.com/kbukum/tuplestream/pipeline"
	"github.com/kbukum/tuplestream/query"
	"github.com/kbukum/tuplestream/store"
	"github.com/kbukum/tuplestream/stream"
	"github.com/kbukum/tuplestream/tuple"
)

func (e *Engine) search(c call) (*node, error) {
	if err := c.only(stream.ParamQ, stream.ParamFQ, stream.ParamFL, stream.ParamSort, stream.ParamRows); err != nil {
		return nil, err
	}
	q, err := c.query()
	if err != nil {
		return nil, err
	}
	fl, err := c.required(stream.ParamFL)
	if err != nil {
		return nil, err
	}
	q.Fields = splitList(fl)

	sortSpec, err := c.required(stream.ParamSort)
	if err != nil {
		return nil, err
	}
	if q.Sort, err = tuple.ParseSort(sortSpec); err != nil {
		return nil, c.errorf("%v", err)
	}
	if q.Rows, err = c.count(stream.ParamRows, 0, 0); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	return &node{
		pipe: pipeline.Lazy(func(ctx context.Context) (pipeline.Iterator[tuple.Tuple], error) {
			return e.src.Search(ctx, q)
		}),
		sort: q.Sort,
	}, nil
}

// query reads the collection, q and fq parameters.
func (c call) query() (query.Query, error) {
	collection, err := c.collection()
	if err != nil {
		return query.Query{}, err
	}
	q := query.Query{Collection: collection}
	if q.Terms, err = query.ParseTerms(c.optional(stream.ParamQ)); err != nil {
		return query.Query{}, c.errorf("q: %v", err)
	}
	if q.Filters, err = query.ParseTerms(c.optional(stream.ParamFQ)); err != nil {
		return query.Query{}, c.errorf("fq: %v", err)
	}
	return q, nil
}

func (e *Engine) facet(c call) (*node, error) {
	if err := c.only(stream.ParamQ, stream.ParamFQ, stream.ParamBuckets, stream.ParamBucketSorts, stream.ParamBucketSizeLimit); err != nil {
		return nil, err
	}
	q, err := c.query()
	if err != nil {
		return nil, err
	}
	group, err := c.required(stream.ParamBuckets)
	if err != nil {
		return nil, err
	}
	// no bucketSizeLimit means every bucket
	limit, err := c.count(stream.ParamBucketSizeLimit, 0, 1)
	if err != nil {
		return nil, err
	}
	req := store.FacetRequest{Query: q, Group: group, Limit: limit}

	// Metrics are the nested expressions, reported in the order given.
	var metrics []string
	for _, m := range c.x.Subexpressions() {
		name, avgField, err := facetMetric(c, m)
		if err != nil {
			return nil, err
		}
		if avgField != "" {
			if req.AvgField != "" && req.AvgField != avgField {
				return nil, c.errorf("only one average metric is supported")
			}
			req.AvgField = avgField
		}
		metrics = append(metrics, name)
	}
	if len(metrics) == 0 {
		return nil, c.errorf("at least one metric is required")
	}

	lead, err := c.bucketSort(metrics, req.AvgField)
	if err != nil {
		return nil, err
	}
	switch {
	case lead.Name == stream.CountMetric && lead.Order == tuple.Asc:
		req.Order = store.ByCountAsc
	case lead.Name == stream.CountMetric:
		req.Order = store.ByCountDesc
	default:
		req.Order = store.ByAverageDesc
	}

	avgName := stream.AvgAbsMetric(req.AvgField)
	return &node{
		pipe: pipeline.Lazy(func(ctx context.Context) (pipeline.Iterator[tuple.Tuple], error) {
			buckets, err := e.src.Facet(ctx, req)
			if err != nil {
				return nil, err
			}
			out := make([]tuple.Tuple, len(buckets))
			for i, b := range buckets {
				fields := []tuple.Field{tuple.F(group, b.Value)}
				for _, m := range metrics {
					if m == stream.CountMetric {
						fields = append(fields, tuple.F(m, b.Count))
					} else {
						fields = append(fields, tuple.F(avgName, b.Avg))
					}
				}
				out[i] = tuple.New(fields...)
			}
			return pipeline.FromSlice(out).Iter(ctx), nil
		}),
		sort: tuple.Sort{lead, tuple.Ascending(group)},
	}, nil
}

// facetMetric recognises count(*) and avg(abs(field)).
func facetMetric(c call, m *expr.Expression) (name, avgField string, err error) {
	switch {
	case m.Function == stream.FuncCount && len(m.Params) == 1 && m.Params[0].Value == "*" && m.Params[0].Expr == nil:
		return stream.CountMetric, "", nil
	case m.Function == stream.FuncAvg && len(m.Params) == 1 && m.Params[0].Expr != nil:
		abs := m.Params[0].Expr
		if abs.Function == stream.FuncAbs && len(abs.Params) == 1 && abs.Params[0].Expr == nil && !abs.Params[0].IsNamed() && abs.Params[0].Value != "" {
			field := abs.Params[0].Value
			return stream.AvgAbsMetric(field), field, nil
		}
	}
	return "", "", c.errorf("unsupported metric %s", m.String())
}

// bucketSort parses bucketSorts, defaulting to count(*) desc. The key must
// be one of the declared metrics.
func (c call) bucketSort(metrics []string, avgField string) (tuple.SortField, error) {
	spec := c.optional(stream.ParamBucketSorts)
	if spec == "" {
		spec = stream.CountMetric + " desc"
	}
	s, err := tuple.ParseSort(spec)
	if err != nil || len(s) != 1 {
		return tuple.SortField{}, c.errorf("bucketSorts must be a single metric and direction, got %q", spec)
	}
	lead := s[0]
	declared := false
	for _, m := range metrics {
		declared = declared || m == lead.Name
	}
	if !declared {
		return tuple.SortField{}, c.errorf("bucketSorts metric %s is not computed", lead.Name)
	}
	if lead.Name != stream.CountMetric && (avgField == "" || lead.Order != tuple.Desc) {
		return tuple.SortField{}, c.errorf("bucketSorts %q is not supported", spec)
	}
	return lead, nil
}
