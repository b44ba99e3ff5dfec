package store

import (
	"context"
	"fmt"

	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/observability"
	"github.com/kbukum/tuplestream/query"
)

// FacetOrder is the bucket order of a facet.
type FacetOrder int

const (
	ByCountDesc FacetOrder = iota
	ByCountAsc
	ByAverageDesc
)

// FacetRequest groups the documents matching Query by the values of Group.
type FacetRequest struct {
	Query query.Query
	Group string
	// AvgField, when set, adds the average absolute value of that field per
	// bucket. Documents without a numeric value are left out of the average;
	// a bucket with none averages 0.
	AvgField string
	Order    FacetOrder
	// Limit caps the number of buckets. 0 means no cap.
	Limit int
}

// Bucket is one facet group.
type Bucket struct {
	Value string
	Count int64
	Avg   float64
}

// Facet returns the buckets of req in req.Order, ties broken by bucket value
// ascending. Each element of a multi-valued group field counts towards its
// own bucket.
func (s *Store) Facet(ctx context.Context, req FacetRequest) ([]Bucket, error) {
	if err := req.Query.Validate(); err != nil {
		return nil, err
	}
	if req.Group == "" {
		return nil, errors.InvalidStream("store: facet needs a group field")
	}
	if req.Order == ByAverageDesc && req.AvgField == "" {
		return nil, errors.InvalidStream("store: facet average order needs an average field")
	}
	ctx, span := observability.StartSpan(ctx, observability.SpanStoreQuery)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrCollection, req.Query.Collection)

	avg := "0"
	var avgArgs []any
	if req.AvgField != "" {
		avg = "COALESCE(AVG(ABS(CASE WHEN json_type(d.body, ?) IN ('integer','real') THEN json_extract(d.body, ?) END)), 0)"
		avgArgs = []any{jsonPath(req.AvgField), jsonPath(req.AvgField)}
	}

	sb := s.stbl.Select(textValue("g")+" AS bucket", "COUNT(*) AS cnt").
		Column(avg+" AS avg_abs", avgArgs...).
		From("documents d").
		JoinClause("JOIN json_each(d.body, ?) g", jsonPath(req.Group)).
		Where(matching("d", req.Query)).
		Where("g.type != 'null'").
		GroupBy("bucket")
	switch req.Order {
	case ByCountAsc:
		sb = sb.OrderBy("cnt ASC", "bucket ASC")
	case ByAverageDesc:
		sb = sb.OrderBy("avg_abs DESC", "bucket ASC")
	default:
		sb = sb.OrderBy("cnt DESC", "bucket ASC")
	}
	if req.Limit > 0 {
		sb = sb.Limit(uint64(req.Limit))
	}

	rows, err := sb.QueryContext(ctx)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, errors.DatabaseError(fmt.Errorf("facet %s: %w", req.Query.Collection, err))
	}
	defer rows.Close()

	var out []Bucket
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.Value, &b.Count, &b.Avg); err != nil {
			return nil, errors.DatabaseError(err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError(err)
	}
	return out, nil
}
