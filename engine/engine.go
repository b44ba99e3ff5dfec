package engine

import (
	"context"
	"io"
	"time"

	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/expr"
	"github.com/kbukum/tuplestream/logger"
	"github.com/kbukum/tuplestream/pipeline"
	"github.com/kbukum/tuplestream/query"
	"github.com/kbukum/tuplestream/store"
	"github.com/kbukum/tuplestream/stream"
	"github.com/kbukum/tuplestream/tuple"
)

// Source is what the engine reads documents from. *store.Store implements it.
type Source interface {
	Search(ctx context.Context, q query.Query) (pipeline.Iterator[tuple.Tuple], error)
	Facet(ctx context.Context, req store.FacetRequest) ([]store.Bucket, error)
}

// Engine compiles and runs expressions. It holds no per-stream state and is
// safe for concurrent use.
type Engine struct {
	src Source
	log *logger.Logger
}

var _ stream.Transport = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to the "engine" component logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an engine over src.
func New(src Source, opts ...Option) *Engine {
	e := &Engine{src: src, log: logger.Get("engine")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// node is a compiled expression: its pipeline and the order its output is
// declared to follow.
type node struct {
	pipe *pipeline.Pipeline[tuple.Tuple]
	sort tuple.Sort
}

// Compile checks x and returns its pipeline without running anything.
func (e *Engine) Compile(x *expr.Expression) (*pipeline.Pipeline[tuple.Tuple], error) {
	n, err := e.compile(x)
	if err != nil {
		return nil, err
	}
	return n.pipe, nil
}

// Evaluate compiles x and returns an iterator over its tuples. Nothing is
// read until the first Next. Compile errors are INVALID_STREAM; errors
// returned by the iterator are STREAM_FAILURE.
func (e *Engine) Evaluate(ctx context.Context, x *expr.Expression) (pipeline.Iterator[tuple.Tuple], error) {
	p, err := e.Compile(x)
	if err != nil {
		return nil, err
	}
	e.log.WithContext(ctx).Debug("evaluating", logger.Fields(logger.FieldExpression, x.String()))
	return &failureIter{source: p.Iter(ctx)}, nil
}

// OpenStream evaluates x in process. The collection only routes remote
// requests and is not consulted.
func (e *Engine) OpenStream(ctx context.Context, _ string, x *expr.Expression) (stream.TupleReader, error) {
	if x == nil {
		return nil, errors.InvalidStream("engine: expression is required")
	}
	it, err := e.Evaluate(ctx, x)
	if err != nil {
		return nil, err
	}
	return &reader{it: it, start: time.Now()}, nil
}

func (e *Engine) compile(x *expr.Expression) (*node, error) {
	if x == nil {
		return nil, errors.InvalidStream("engine: missing expression")
	}
	switch x.Function {
	case stream.FuncSearch:
		return e.search(call{x})
	case stream.FuncFacet:
		return e.facet(call{x})
	case stream.FuncIntersect:
		return e.intersect(call{x})
	case stream.FuncReduce:
		return e.reduce(call{x})
	case stream.FuncUnique:
		return e.unique(call{x})
	case stream.FuncCartesianProduct:
		return e.cartesianProduct(call{x})
	case stream.FuncSelect:
		return e.selectFields(call{x})
	default:
		return nil, errors.InvalidStream("engine: unknown function %q", x.Function)
	}
}

// failureIter reports every error from its source as a STREAM_FAILURE.
type failureIter struct {
	source pipeline.Iterator[tuple.Tuple]
}

func (it *failureIter) Next(ctx context.Context) (tuple.Tuple, bool, error) {
	if err := ctx.Err(); err != nil {
		return tuple.Tuple{}, false, errors.StreamFailure(err)
	}
	t, ok, err := it.source.Next(ctx)
	if err != nil {
		return tuple.Tuple{}, false, errors.StreamFailure(err)
	}
	return t, ok, nil
}

func (it *failureIter) Close() error { return it.source.Close() }

// reader presents an evaluation the way a remote backend delivers it: data
// tuples followed by the EOF marker.
type reader struct {
	it    pipeline.Iterator[tuple.Tuple]
	start time.Time
	eof   bool
}

func (r *reader) Read(ctx context.Context) (tuple.Tuple, error) {
	if r.eof {
		return tuple.Tuple{}, io.EOF
	}
	t, ok, err := r.it.Next(ctx)
	if err != nil {
		return tuple.Tuple{}, err
	}
	if !ok {
		r.eof = true
		return tuple.EOFWithTime(time.Since(r.start).Milliseconds()), nil
	}
	return t, nil
}

func (r *reader) Close() error { return r.it.Close() }
