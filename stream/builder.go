package stream

import (
	"strconv"

	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/expr"
	"github.com/kbukum/tuplestream/tuple"
)

// Expression function names.
const (
	FuncSearch           = "search"
	FuncFacet            = "facet"
	FuncCartesianProduct = "cartesianProduct"
	FuncIntersect        = "intersect"
	FuncReduce           = "reduce"
	FuncGroup            = "group"
	FuncUnique           = "unique"
	FuncSelect           = "select"
	FuncCount            = "count"
	FuncAvg              = "avg"
	FuncAbs              = "abs"
)

// Expression parameter names.
const (
	ParamQ               = "q"
	ParamFQ              = "fq"
	ParamFL              = "fl"
	ParamSort            = "sort"
	ParamRows            = "rows"
	ParamOn              = "on"
	ParamBy              = "by"
	ParamN               = "n"
	ParamOver            = "over"
	ParamBuckets         = "buckets"
	ParamBucketSorts     = "bucketSorts"
	ParamBucketSizeLimit = "bucketSizeLimit"
)

// CountMetric is the field carrying a facet bucket's size.
const CountMetric = "count(*)"

// SelectAs separates a source field from its new name in a select parameter.
const SelectAs = " as "

// AvgAbsMetric returns the field carrying avg(abs(field)) for a facet bucket.
func AvgAbsMetric(field string) string {
	return FuncAvg + "(" + FuncAbs + "(" + field + "))"
}

// Builder is one node of a pipeline descriptor.
type Builder interface {
	// Build renders the subtree rooted at this node. Usage errors are INVALID_STREAM.
	Build() (*expr.Expression, error)
	// Collection is the collection the request is routed to.
	Collection() string
	// SortKey is the order the node's output is declared to follow. Nil when unknown.
	SortKey() tuple.Sort
}

// node is implemented by the builders of this package so the sort contract
// can be checked without a backend.
type node interface {
	children() []Builder
	checkContract() error
}

// CheckSortContract walks the tree and reports, as INVALID_STREAM, the first
// decorator whose input is not sorted the way it requires. Builders from
// outside this package are treated as leaves.
func CheckSortContract(b Builder) error {
	if b == nil {
		return errors.InvalidStream("stream: nil builder")
	}
	n, ok := b.(node)
	if !ok {
		return nil
	}
	for _, c := range n.children() {
		if err := CheckSortContract(c); err != nil {
			return err
		}
	}
	return n.checkContract()
}

// buildChild renders a required child, reporting a missing one as a usage error.
func buildChild(parent string, b Builder) (*expr.Expression, error) {
	if b == nil {
		return nil, errors.InvalidStream("%s: upstream stream is required", parent)
	}
	e, err := b.Build()
	if err != nil {
		if errors.IsAppError(err) {
			return nil, err
		}
		return nil, errors.InvalidStream("%s: %v", parent, err).WithCause(err)
	}
	return e, nil
}

func collectionOf(b Builder) string {
	if b == nil {
		return ""
	}
	return b.Collection()
}

func sortOf(b Builder) tuple.Sort {
	if b == nil {
		return nil
	}
	return b.SortKey()
}

func itoa(n int) string { return strconv.Itoa(n) }
