package stream

import (
	"fmt"

	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/expr"
	"github.com/kbukum/tuplestream/query"
	"github.com/kbukum/tuplestream/tuple"
	"github.com/kbukum/tuplestream/validation"
)

// Search is a source that runs a filtered, projected, sorted query.
type Search struct {
	q query.Query
}

// NewSearch creates a search source. The query must name its field list and
// sort explicitly; every sort field must be projected.
func NewSearch(q query.Query) *Search {
	q.Terms = append([]query.Term(nil), q.Terms...)
	q.Filters = append([]query.Term(nil), q.Filters...)
	q.Fields = append([]string(nil), q.Fields...)
	q.Sort = append(tuple.Sort(nil), q.Sort...)
	return &Search{q: q}
}

// Query returns the query descriptor.
func (s *Search) Query() query.Query { return s.q }

// Collection is the searched collection.
func (s *Search) Collection() string { return s.q.Collection }

// SortKey is the query's sort.
func (s *Search) SortKey() tuple.Sort { return s.q.Sort }

// Build renders the search expression from the query.
func (s *Search) Build() (*expr.Expression, error) {
	if err := s.q.Validate(); err != nil {
		return nil, err
	}
	v := validation.For(FuncSearch).
		NotEmpty(ParamFL, len(s.q.Fields)).
		Check(s.q.Sort.Known(), ParamSort, "is required")
	for _, f := range s.q.Sort {
		v.Check(s.q.HasField(f.Name), ParamSort, fmt.Sprintf("field %q is not in the field list", f.Name))
	}
	if err := v.ValidateAs(errors.ErrCodeInvalidStream); err != nil {
		return nil, err
	}

	params := []expr.Param{expr.Value(s.q.Collection), expr.Pair(ParamQ, s.q.Q())}
	if fq := s.q.FQ(); fq != "" {
		params = append(params, expr.Pair(ParamFQ, fq))
	}
	params = append(params,
		expr.Pair(ParamFL, s.q.FieldList()),
		expr.Pair(ParamSort, s.q.Sort.String()),
	)
	if s.q.Rows > 0 {
		params = append(params, expr.Pair(ParamRows, itoa(s.q.Rows)))
	}
	return expr.New(FuncSearch, params...), nil
}

func (s *Search) children() []Builder { return nil }

func (s *Search) checkContract() error { return nil }
