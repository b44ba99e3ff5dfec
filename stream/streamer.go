package stream

import (
	"context"
	stderrors "errors"
	"io"
	"iter"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/expr"
	"github.com/kbukum/tuplestream/logger"
	"github.com/kbukum/tuplestream/observability"
	"github.com/kbukum/tuplestream/pipeline"
	"github.com/kbukum/tuplestream/tuple"
)

type options struct {
	log             *logger.Logger
	metrics         *observability.StreamMetrics
	localValidation bool
	requestID       string
}

// Option configures a Streamer.
type Option func(*options)

// WithLogger sets the logger. Defaults to the "stream" component logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records stream metrics.
func WithMetrics(m *observability.StreamMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLocalValidation checks the sort contract in Of, before any I/O.
func WithLocalValidation() Option {
	return func(o *options) { o.localValidation = true }
}

// WithRequestID sets the request ID sent with the stream. Defaults to a random UUID.
func WithRequestID(id string) Option {
	return func(o *options) { o.requestID = id }
}

// Streamer is a closeable, single-pass cursor over the tuples of a built
// pipeline. It is not safe for concurrent use; Close may be called any number
// of times.
type Streamer struct {
	transport  Transport
	expression *expr.Expression
	collection string
	requestID  string
	log        *logger.Logger
	metrics    *observability.StreamMetrics

	reader   TupleReader
	op       *observability.StreamOperation
	opCtx    context.Context
	done     bool
	closed   bool
	consumed bool
	err      error

	closeOnce sync.Once
	closeErr  error
}

var _ pipeline.Iterator[tuple.Tuple] = (*Streamer)(nil)

// Of builds b and returns a streamer over its result. Nothing is sent until
// the first read. Build errors are INVALID_STREAM.
func Of(transport Transport, b Builder, opts ...Option) (*Streamer, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get("stream")
	}
	if transport == nil {
		return nil, errors.InvalidStream("stream: transport is required")
	}
	e, err := buildChild("stream", b)
	if err != nil {
		return nil, err
	}
	if o.localValidation {
		if err := CheckSortContract(b); err != nil {
			return nil, err
		}
	}
	if o.requestID == "" {
		o.requestID = uuid.NewString()
	}
	return &Streamer{
		transport:  transport,
		expression: e,
		collection: b.Collection(),
		requestID:  o.requestID,
		log: o.log.WithFields(logger.Fields(
			logger.FieldCollection, b.Collection(),
			logger.FieldRequestID, o.requestID,
		)),
		metrics: o.metrics,
	}, nil
}

// Expression returns the expression sent to the transport.
func (s *Streamer) Expression() *expr.Expression { return s.expression }

// RequestID returns the ID sent with the request.
func (s *Streamer) RequestID() string { return s.requestID }

// Next returns the next data tuple. It opens the stream on the first call.
// (zero, false, nil) means the EOF marker was reached and the cursor released.
// Every failure is a STREAM_FAILURE and is returned again by later calls.
func (s *Streamer) Next(ctx context.Context) (tuple.Tuple, bool, error) {
	if s.err != nil {
		return tuple.Tuple{}, false, s.err
	}
	if s.done {
		return tuple.Tuple{}, false, nil
	}
	if s.closed {
		return tuple.Tuple{}, false, errors.StreamFailuref("stream: read after close")
	}
	if s.reader == nil {
		if err := s.open(ctx); err != nil {
			return tuple.Tuple{}, false, s.fail(err)
		}
	}

	t, err := s.reader.Read(ctx)
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			err = errors.StreamFailuref("stream: response ended without EOF marker")
		}
		return tuple.Tuple{}, false, s.fail(err)
	}
	if msg, ok := t.Exception(); ok {
		return tuple.Tuple{}, false, s.fail(errors.StreamFailuref("%s", msg).WithDetail("backend", true))
	}
	if t.IsEOF() {
		s.done = true
		_ = s.Close()
		return tuple.Tuple{}, false, nil
	}
	s.op.Tuple()
	return t, true, nil
}

func (s *Streamer) open(ctx context.Context) error {
	ctx = logger.ContextWithRequestID(ctx, s.requestID)
	s.opCtx, s.op = observability.StartStream(ctx, observability.SpanStreamOpen, s.collection, s.requestID, s.metrics)
	s.log.Debug("opening stream", logger.Fields(logger.FieldExpression, s.expression.String()))

	reader, err := s.transport.OpenStream(s.opCtx, s.collection, s.expression)
	if err != nil {
		return err
	}
	s.reader = reader
	return nil
}

func (s *Streamer) fail(err error) error {
	s.err = errors.StreamFailure(err)
	s.log.Warn("stream failed", logger.ErrorFields("read", s.err))
	_ = s.Close()
	return s.err
}

// Get returns the stream as a lazy sequence. Leaving the loop early closes
// the stream. The sequence can be ranged over once; later calls to Get yield
// a single STREAM_FAILURE.
func (s *Streamer) Get(ctx context.Context) iter.Seq2[tuple.Tuple, error] {
	if s.consumed {
		return func(yield func(tuple.Tuple, error) bool) {
			yield(tuple.Tuple{}, errors.StreamFailuref("stream: already consumed"))
		}
	}
	s.consumed = true
	return func(yield func(tuple.Tuple, error) bool) {
		defer s.Close()
		for {
			t, ok, err := s.Next(ctx)
			if err != nil {
				yield(tuple.Tuple{}, err)
				return
			}
			if !ok || !yield(t, nil) {
				return
			}
		}
	}
}

// Collect reads the whole stream into memory and closes it.
func (s *Streamer) Collect(ctx context.Context) ([]tuple.Tuple, error) {
	return pipeline.CollectIter[tuple.Tuple](ctx, s)
}

// Pipeline exposes the streamer as a pipeline source for client-side stages.
func (s *Streamer) Pipeline() *pipeline.Pipeline[tuple.Tuple] {
	return pipeline.From[tuple.Tuple](s)
}

// Close releases the cursor. It is idempotent and safe to call before the
// stream was opened.
func (s *Streamer) Close() error {
	s.closeOnce.Do(func() {
		s.closed = true
		if s.reader != nil {
			s.closeErr = s.reader.Close()
		}
		if s.op != nil {
			s.op.End(s.opCtx, s.err)
			s.log.Debug("stream closed", logger.Fields(
				logger.FieldTuples, s.op.Tuples(),
				logger.FieldDuration, s.op.Duration().Milliseconds(),
			))
		}
	})
	return s.closeErr
}
