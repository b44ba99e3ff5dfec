package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError carries a code, a client-facing message and the HTTP status the
// server answers with.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause records the underlying error and returns e.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail adds a detail entry and returns e.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, 1)
	}
	e.Details[key] = value
	return e
}

// New builds an AppError; Retryable follows the code.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  code.Retryable(),
	}
}

// InvalidStream reports a pipeline that cannot be built.
func InvalidStream(format string, args ...any) *AppError {
	return New(ErrCodeInvalidStream, fmt.Sprintf(format, args...), http.StatusBadRequest)
}

// StreamFailure wraps an error raised while a stream was consumed. A cause
// that already is a stream failure is returned as is.
func StreamFailure(cause error) *AppError {
	if appErr, ok := AsAppError(cause); ok && appErr.Code == ErrCodeStreamFailure {
		return appErr
	}
	msg := "stream failed"
	if cause != nil {
		msg = cause.Error()
	}
	return New(ErrCodeStreamFailure, msg, http.StatusInternalServerError).WithCause(cause)
}

// StreamFailuref creates a stream failure without an underlying cause.
func StreamFailuref(format string, args ...any) *AppError {
	return New(ErrCodeStreamFailure, fmt.Sprintf(format, args...), http.StatusInternalServerError)
}

func IsInvalidStream(err error) bool { return HasCode(err, ErrCodeInvalidStream) }

func IsStreamFailure(err error) bool { return HasCode(err, ErrCodeStreamFailure) }

// HasCode reports whether err wraps an AppError carrying code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// ServiceUnavailable reports a dependency that is temporarily unavailable.
func ServiceUnavailable(service string) *AppError {
	return New(ErrCodeServiceUnavailable,
		fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service),
		http.StatusServiceUnavailable).WithDetail("service", service)
}

// ConnectionFailed reports a dependency that could not be reached.
func ConnectionFailed(service string) *AppError {
	return New(ErrCodeConnectionFailed,
		fmt.Sprintf("Unable to connect to %s. Please verify the service is running.", service),
		http.StatusServiceUnavailable).WithDetail("service", service)
}

// InvalidInput reports a malformed request value.
func InvalidInput(field, reason string) *AppError {
	e := New(ErrCodeInvalidInput, "Invalid input: "+reason, http.StatusBadRequest)
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

func MissingField(field string) *AppError {
	return New(ErrCodeMissingField, "Missing required field: "+field, http.StatusBadRequest).
		WithDetail("field", field)
}

// Internal hides cause behind a generic message.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "An unexpected error occurred.", http.StatusInternalServerError).WithCause(cause)
}

func DatabaseError(cause error) *AppError {
	return New(ErrCodeDatabaseError, "A database error occurred.", http.StatusInternalServerError).WithCause(cause)
}

// IsAppError reports whether err wraps an AppError.
func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// AsAppError unwraps err to its AppError, if any.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
