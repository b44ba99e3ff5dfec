// Package observability carries the OpenTelemetry side of tuplestream:
// OTLP export setup, stream spans and metrics, and dependency health.
//
//	tel, err := observability.Setup(ctx, observability.Service{Name: "tuplestream"}, cfg)
//	defer tel.Shutdown(ctx)
//
//	ctx, op := observability.StartStream(ctx, observability.SpanStreamOpen, "genes", reqID, tel.Metrics)
//	op.Tuple()
//	op.End(ctx, err)
//
// Health checks fold into one report:
//
//	sh := observability.CheckAll(ctx, "tuplestream", version, store, backend)
package observability
