package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Stream statuses recorded on spans and metrics.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// StreamOperation tracks the span and metrics of one stream from open to close.
type StreamOperation struct {
	Collection string
	RequestID  string
	StartTime  time.Time
	Metrics    *StreamMetrics

	span   trace.Span
	tuples int64
}

// StartStream starts a span for a stream. If metrics is nil, metric recording
// is skipped.
func StartStream(ctx context.Context, spanName, collection, requestID string, metrics *StreamMetrics) (context.Context, *StreamOperation) {
	ctx, span := StartSpan(ctx, spanName)
	span.SetAttributes(
		attribute.String(AttrCollection, collection),
		attribute.String(AttrRequestID, requestID),
	)
	if metrics != nil {
		metrics.RecordStreamStart(ctx, collection)
	}
	return ctx, &StreamOperation{
		Collection: collection,
		RequestID:  requestID,
		StartTime:  time.Now(),
		Metrics:    metrics,
		span:       span,
	}
}

// Tuple counts one data tuple.
func (op *StreamOperation) Tuple() { op.tuples++ }

// Tuples returns the number of data tuples counted so far.
func (op *StreamOperation) Tuples() int64 { return op.tuples }

// Span returns the operation's span.
func (op *StreamOperation) Span() trace.Span { return op.span }

// End ends the span and records the stream metrics. err nil means success.
func (op *StreamOperation) End(ctx context.Context, err error) {
	duration := time.Since(op.StartTime)
	status := StatusOK
	if err != nil {
		status = StatusFailed
		op.span.RecordError(err)
		op.span.SetStatus(codes.Error, err.Error())
		op.span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
	op.span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrTuples, op.tuples),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	op.span.End()

	if op.Metrics != nil {
		op.Metrics.RecordStreamEnd(ctx, op.Collection, status, op.tuples, duration)
		if err != nil {
			op.Metrics.RecordError(ctx, "stream_failure", op.Collection)
		}
	}
}

// Duration returns the elapsed time since the stream started.
func (op *StreamOperation) Duration() time.Duration {
	return time.Since(op.StartTime)
}
