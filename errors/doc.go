// Package errors provides the error taxonomy shared by every tuplestream package.
//
// Two codes matter for stream users: INVALID_STREAM is returned synchronously when
// a pipeline cannot be built, and STREAM_FAILURE is returned while a stream is being
// consumed (sort contract violations, backend error tuples, broken connections).
package errors
