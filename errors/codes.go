package errors

// ErrorCode is a machine-readable error code.
type ErrorCode string

const (
	// ErrCodeInvalidStream marks a pipeline that cannot be built. It is raised
	// synchronously, before any request reaches the backend.
	ErrCodeInvalidStream ErrorCode = "INVALID_STREAM"
	// ErrCodeStreamFailure marks a failure while consuming a stream: a sort
	// contract violation, a backend error tuple or a broken connection.
	ErrCodeStreamFailure ErrorCode = "STREAM_FAILURE"

	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"

	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

// Retryable reports whether an operation failing with c may succeed if
// repeated. Stream codes never are.
func (c ErrorCode) Retryable() bool {
	switch c {
	case ErrCodeServiceUnavailable, ErrCodeConnectionFailed, ErrCodeTimeout, ErrCodeDatabaseError:
		return true
	}
	return false
}
