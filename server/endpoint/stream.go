package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/expr"
	"github.com/kbukum/tuplestream/logger"
	"github.com/kbukum/tuplestream/observability"
	"github.com/kbukum/tuplestream/pipeline"
	"github.com/kbukum/tuplestream/resilience"
	"github.com/kbukum/tuplestream/tuple"
)

// ParamExpr is the form field carrying the expression.
const ParamExpr = "expr"

// flushEvery is the number of tuples written between flushes.
const flushEvery = 64

// Evaluator compiles and runs expressions. *engine.Engine implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, x *expr.Expression) (pipeline.Iterator[tuple.Tuple], error)
}

// Stream returns the handler of POST /:collection/stream. The expression is
// read from the expr form field or query parameter. Usage errors are answered
// with a JSON error body; once the response has started a failure is written
// as an exception tuple that ends the stream.
func Stream(ev Evaluator, bh *resilience.Bulkhead, m *Metrics, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()
		collection := c.Param("collection")
		l := log.WithContext(ctx).WithFields(logger.Fields(logger.FieldCollection, collection))

		src := c.PostForm(ParamExpr)
		if src == "" {
			src = c.Query(ParamExpr)
		}
		if src == "" {
			m.outcome(StatusInvalid)
			RespondWithError(c, errors.InvalidStream("parameter %q is required", ParamExpr))
			return
		}
		x, err := expr.Parse(src)
		if err != nil {
			m.outcome(StatusInvalid)
			RespondWithError(c, errors.InvalidStream("%v", err))
			return
		}

		release, err := bh.Acquire(ctx)
		if err != nil {
			m.outcome(StatusRejected)
			l.Warn("stream rejected", logger.ErrorFields("acquire", err))
			RespondWithError(c, errors.ServiceUnavailable("stream server").WithCause(err))
			return
		}
		defer release()

		it, err := ev.Evaluate(ctx, x)
		if err != nil {
			m.outcome(StatusInvalid)
			RespondWithError(c, err)
			return
		}
		defer it.Close()

		if m != nil {
			m.inFlight.Inc()
			defer m.inFlight.Dec()
		}
		l.Debug("streaming", logger.Fields(logger.FieldExpression, x.String()))

		ctx, op := observability.StartStream(ctx, observability.SpanStreamEvaluate, collection, logger.RequestIDFromContext(ctx), nil)
		op.Span().SetAttributes(attribute.String(observability.AttrExpression, x.String()))
		n, err := writeStream(ctx, c.Writer, it, start, m, op)
		op.End(ctx, err)
		if m != nil {
			m.duration.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			m.outcome(StatusFailed)
			l.Warn("stream failed", logger.MergeWithError(logger.Fields(logger.FieldTuples, n), err))
			return
		}
		m.outcome(StatusOK)
		l.Debug("stream complete", logger.Fields(logger.FieldTuples, n, logger.FieldDuration, time.Since(start).Milliseconds()))
	}
}

// writeStream writes {"result-set":{"docs":[...]}}, ending the docs with the
// EOF marker or, on failure, an exception tuple. It returns the number of data
// tuples written and the failure, if any.
func writeStream(ctx context.Context, w gin.ResponseWriter, it pipeline.Iterator[tuple.Tuple], start time.Time, m *Metrics, op *observability.StreamOperation) (int, error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.WriteString(`{"result-set":{"docs":[`); err != nil {
		return 0, err
	}

	n := 0
	for {
		t, ok, err := it.Next(ctx)
		if err != nil {
			_ = writeTuple(w, n > 0, tuple.Exception(errors.StreamFailure(err).Message))
			_, _ = w.WriteString("]}}")
			w.Flush()
			return n, err
		}
		if !ok {
			break
		}
		if err := writeTuple(w, n > 0, t); err != nil {
			return n, err
		}
		n++
		op.Tuple()
		if m != nil {
			m.tuples.Inc()
		}
		if n%flushEvery == 0 {
			w.Flush()
		}
	}

	if err := writeTuple(w, n > 0, tuple.EOFWithTime(time.Since(start).Milliseconds())); err != nil {
		return n, err
	}
	if _, err := w.WriteString("]}}"); err != nil {
		return n, err
	}
	w.Flush()
	return n, nil
}

func writeTuple(w gin.ResponseWriter, sep bool, t tuple.Tuple) error {
	b, err := t.MarshalJSON()
	if err != nil {
		return err
	}
	if sep {
		if _, err := w.WriteString(","); err != nil {
			return err
		}
	}
	_, err = w.Write(b)
	return err
}
