package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/tuplestream/logger"
)

// InitMeter installs a global meter provider pushing to cfg.Endpoint every
// cfg.Interval.
func InitMeter(ctx context.Context, svc Service, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("metric exporter: %w", err)
	}
	res, err := newResource(svc)
	if err != nil {
		return nil, err
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields("endpoint", cfg.Endpoint, "interval", cfg.Interval.String()))
	return mp, nil
}

// Meter returns a meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Telemetry is what Setup installed.
type Telemetry struct {
	// Metrics is nil when export is disabled.
	Metrics  *StreamMetrics
	shutdown []func(context.Context) error
}

// Setup installs the tracer and meter providers when cfg.Enabled. A disabled
// config yields an empty Telemetry whose Shutdown is a no-op.
func Setup(ctx context.Context, svc Service, cfg Config) (*Telemetry, error) {
	t := &Telemetry{}
	if !cfg.Enabled {
		return t, nil
	}
	cfg.ApplyDefaults()

	tp, err := InitTracer(ctx, svc, cfg)
	if err != nil {
		return nil, err
	}
	t.shutdown = append(t.shutdown, tp.Shutdown)

	mp, err := InitMeter(ctx, svc, cfg)
	if err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	t.shutdown = append(t.shutdown, mp.Shutdown)

	if t.Metrics, err = NewStreamMetrics(mp.Meter(instrumentation)); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	return t, nil
}

// Shutdown flushes and stops the providers, most recent first.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(t.shutdown) - 1; i >= 0; i-- {
		errs = append(errs, t.shutdown[i](ctx))
	}
	t.shutdown = nil
	return errors.Join(errs...)
}

// StreamMetrics holds the instruments recorded for every tuple stream.
type StreamMetrics struct {
	opened   metric.Int64Counter
	active   metric.Int64UpDownCounter
	duration metric.Float64Histogram
	tuples   metric.Int64Counter
	errors   metric.Int64Counter
}

// NewStreamMetrics creates the stream instruments on meter.
func NewStreamMetrics(meter metric.Meter) (*StreamMetrics, error) {
	var (
		m    StreamMetrics
		errs []error
		err  error
	)
	m.opened, err = meter.Int64Counter("stream.total", metric.WithDescription("Streams opened"))
	errs = append(errs, err)
	m.active, err = meter.Int64UpDownCounter("stream.active", metric.WithDescription("Streams currently open"))
	errs = append(errs, err)
	m.duration, err = meter.Float64Histogram("stream.duration",
		metric.WithDescription("Time from open to close of a stream"), metric.WithUnit("s"))
	errs = append(errs, err)
	m.tuples, err = meter.Int64Counter("stream.tuples", metric.WithDescription("Data tuples read"))
	errs = append(errs, err)
	m.errors, err = meter.Int64Counter("error.total", metric.WithDescription("Errors by type and component"))
	errs = append(errs, err)
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("stream metrics: %w", err)
	}
	return &m, nil
}

// RecordStreamStart counts an opened stream.
func (m *StreamMetrics) RecordStreamStart(ctx context.Context, collection string) {
	m.active.Add(ctx, 1)
	m.opened.Add(ctx, 1, metric.WithAttributes(attribute.String("collection", collection)))
}

// RecordStreamEnd records a closed stream with its outcome and tuple count.
func (m *StreamMetrics) RecordStreamEnd(ctx context.Context, collection, status string, tuples int64, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("collection", collection), attribute.String("status", status))
	m.active.Add(ctx, -1)
	m.tuples.Add(ctx, tuples, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
}

// RecordError counts an error by type and component.
func (m *StreamMetrics) RecordError(ctx context.Context, errType, component string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("type", errType), attribute.String("component", component)))
}
