// Package engine evaluates streaming expressions in process over a document
// store, using the sorted-stream operators of package pipeline.
//
// Compiling an expression checks its shape: unknown functions, missing or
// malformed parameters are INVALID_STREAM. Each compiled node declares the
// order of its output. Decorators that rely on that order (intersect, reduce,
// unique) check it when they are first pulled, so a mismatch is reported
// lazily as a STREAM_FAILURE, and intersect additionally verifies at runtime
// that keys never go backwards.
package engine
