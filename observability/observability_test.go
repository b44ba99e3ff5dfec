package observability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected Endpoint 'localhost:4318', got %s", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", cfg.Interval)
	}
	if cfg.Enabled {
		t.Error("export must stay disabled by default")
	}
}

func TestSetup_Disabled(t *testing.T) {
	tel, err := Setup(context.Background(), Service{Name: "tuplestream"}, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if tel.Metrics != nil {
		t.Error("expected no metrics when export is disabled")
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestNewStreamMetrics(t *testing.T) {
	metrics, err := NewStreamMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}

	ctx := context.Background()
	metrics.RecordStreamStart(ctx, "genes")
	metrics.RecordStreamEnd(ctx, "genes", StatusOK, 12, 100*time.Millisecond)
	metrics.RecordError(ctx, "stream_failure", "genes")
}

func withRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStreamOperation_Success(t *testing.T) {
	exporter := withRecorder(t)
	metrics, _ := NewStreamMetrics(noop.NewMeterProvider().Meter("test"))

	ctx, op := StartStream(context.Background(), SpanStreamOpen, "genes", "req-1", metrics)
	op.Tuple()
	op.Tuple()
	op.End(ctx, nil)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name != SpanStreamOpen {
		t.Errorf("span name = %q", s.Name)
	}
	if v, ok := attrValue(s.Attributes, AttrTuples); !ok || v.AsInt64() != 2 {
		t.Errorf("tuples attribute = %v, %v", v, ok)
	}
	if v, ok := attrValue(s.Attributes, AttrCollection); !ok || v.AsString() != "genes" {
		t.Errorf("collection attribute = %v, %v", v, ok)
	}
	if op.Tuples() != 2 {
		t.Errorf("Tuples() = %d", op.Tuples())
	}
}

func TestStreamOperation_Failure(t *testing.T) {
	exporter := withRecorder(t)

	ctx, op := StartStream(context.Background(), SpanStreamEvaluate, "genes", "req-2", nil)
	op.End(ctx, fmt.Errorf("boom"))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("status = %v, want Error", spans[0].Status.Code)
	}
	if v, _ := attrValue(spans[0].Attributes, AttrStatus); v.AsString() != StatusFailed {
		t.Errorf("status attribute = %q", v.AsString())
	}
}

func TestStreamOperation_Duration(t *testing.T) {
	_, op := StartStream(context.Background(), SpanStreamOpen, "genes", "req-3", nil)
	op.StartTime = time.Now().Add(-50 * time.Millisecond)

	if d := op.Duration(); d < 45*time.Millisecond || d > 5*time.Second {
		t.Errorf("expected duration around 50ms, got %v", d)
	}
	op.End(context.Background(), nil)
}

func TestNewServiceHealth(t *testing.T) {
	sh := NewServiceHealth("tuplestream", "1.0.0")
	if sh.Status != HealthStatusUp {
		t.Errorf("expected status up, got %s", sh.Status)
	}
	if sh.Service != "tuplestream" || sh.Version != "1.0.0" {
		t.Errorf("unexpected service health: %+v", sh)
	}
}

func TestServiceHealth_AddComponent(t *testing.T) {
	sh := NewServiceHealth("tuplestream", "1.0.0")

	sh.AddComponent(Health{Name: "store", Status: HealthStatusUp})
	if sh.Status != HealthStatusUp {
		t.Errorf("expected up, got %s", sh.Status)
	}

	sh.AddComponent(Health{Name: "backend", Status: HealthStatusDegraded})
	if sh.Status != HealthStatusDegraded {
		t.Errorf("expected degraded, got %s", sh.Status)
	}

	sh.AddComponent(Health{Name: "cache", Status: HealthStatusDown})
	if sh.Status != HealthStatusDown {
		t.Errorf("expected down, got %s", sh.Status)
	}

	sh.AddComponent(Health{Name: "late", Status: HealthStatusDegraded})
	if sh.Status != HealthStatusDown {
		t.Errorf("expected 'down' not overridden by 'degraded', got %s", sh.Status)
	}
	if len(sh.Components) != 4 {
		t.Errorf("expected 4 components, got %d", len(sh.Components))
	}
}

func TestSetSpanAttribute(t *testing.T) {
	exporter := withRecorder(t)

	ctx, span := StartSpan(context.Background(), "test-attrs")
	SetSpanAttribute(ctx, "string-key", "value")
	SetSpanAttribute(ctx, "int-key", 42)
	SetSpanAttribute(ctx, "int64-key", int64(100))
	SetSpanAttribute(ctx, "float-key", 3.14)
	SetSpanAttribute(ctx, "bool-key", true)
	SetSpanAttribute(ctx, "string-slice-key", []string{"a", "b"})
	SetSpanAttribute(ctx, "unsupported-key", struct{}{})
	span.End()

	attrs := exporter.GetSpans()[0].Attributes
	if len(attrs) != 6 {
		t.Errorf("expected 6 attributes, got %d", len(attrs))
	}
}

func TestSetSpanErrorNoSpan(t *testing.T) {
	SetSpanError(context.Background(), fmt.Errorf("no span error"))
	SetSpanAttribute(context.Background(), "key", "value")
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprint(tc.rate), func(t *testing.T) {
			if got := sampler(tc.rate).Description(); !strings.HasPrefix(got, "ParentBased{root:"+tc.want) {
				t.Errorf("sampler(%v) = %s, want root %s", tc.rate, got, tc.want)
			}
		})
	}
}

func TestInitTracer(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	cfg := Config{Insecure: true}
	cfg.ApplyDefaults()
	tp, err := InitTracer(context.Background(), Service{Name: "test", Version: "dev"}, cfg)
	if err != nil {
		t.Skipf("InitTracer failed (schema conflict): %v", err)
	}
	shutdown(tp.Shutdown)
}

func TestInitMeter(t *testing.T) {
	cfg := Config{Insecure: true}
	cfg.ApplyDefaults()
	mp, err := InitMeter(context.Background(), Service{Name: "test-service"}, cfg)
	if err != nil {
		t.Skipf("InitMeter failed: %v", err)
	}
	shutdown(mp.Shutdown)
}

// shutdown bounds provider shutdown: there is no collector listening.
func shutdown(fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = fn(ctx)
}

func TestCheckAll(t *testing.T) {
	up := PingCheck("store", func(context.Context) error { return nil })
	down := PingCheck("backend", func(context.Context) error { return errors.New("connection refused") })

	sh := CheckAll(context.Background(), "tuplestream", "1.0.0", up)
	if sh.Status != HealthStatusUp || len(sh.Components) != 1 {
		t.Fatalf("expected up with one component, got %+v", sh)
	}
	if sh.Components[0].Details["latency"] == "" {
		t.Error("expected latency detail")
	}

	sh = CheckAll(context.Background(), "tuplestream", "1.0.0", up, down)
	if sh.Status != HealthStatusDown {
		t.Fatalf("expected down, got %s", sh.Status)
	}
	if sh.Components[1].Message != "connection refused" {
		t.Errorf("expected ping error as message, got %q", sh.Components[1].Message)
	}
}
