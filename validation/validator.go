package validation

import (
	"fmt"
	"strings"

	"github.com/kbukum/tuplestream/errors"
)

// FieldError is one failed check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator collects every failed check of one value so a caller reports
// them together rather than one at a time.
type Validator struct {
	scope  string
	errors []FieldError
}

// New returns an empty Validator.
func New() *Validator {
	return &Validator{}
}

// For returns a Validator whose report is prefixed with scope, e.g. the
// function a pipeline stage renders to.
func For(scope string) *Validator {
	return &Validator{scope: scope}
}

// AddError records a failed check.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any check failed.
func (v *Validator) HasErrors() bool { return len(v.errors) > 0 }

// Errors returns the failed checks in the order they ran.
func (v *Validator) Errors() []FieldError { return v.errors }

// Validate reports the failures as INVALID_INPUT, or returns nil.
func (v *Validator) Validate() error {
	return v.ValidateAs(errors.ErrCodeInvalidInput)
}

// ValidateAs reports the failures with code, or returns nil. The message
// lists every failure as "field: message", separated by "; ".
func (v *Validator) ValidateAs(code errors.ErrorCode) error {
	if !v.HasErrors() {
		return nil
	}
	parts := make([]string, len(v.errors))
	for i, e := range v.errors {
		parts[i] = e.Field + ": " + e.Message
	}
	msg := strings.Join(parts, "; ")
	if v.scope != "" {
		msg = v.scope + ": " + msg
	}
	return newAppError(code, msg, v.errors)
}

// Required fails when value is blank.
func (v *Validator) Required(field, value string) *Validator {
	return v.Check(strings.TrimSpace(value) != "", field, "is required")
}

// Min fails when value < minVal.
func (v *Validator) Min(field string, value, minVal int) *Validator {
	return v.Check(value >= minVal, field, fmt.Sprintf("must be at least %d, got %d", minVal, value))
}

// NotEmpty fails when n == 0.
func (v *Validator) NotEmpty(field string, n int) *Validator {
	return v.Check(n > 0, field, "must not be empty")
}

// Check fails with message when ok is false.
func (v *Validator) Check(ok bool, field, message string) *Validator {
	if !ok {
		v.AddError(field, message)
	}
	return v
}

func newAppError(code errors.ErrorCode, message string, fields []FieldError) *errors.AppError {
	appErr := errors.Validation(message)
	appErr.Code = code
	if fields != nil {
		appErr.WithDetail("fields", fields)
	}
	return appErr
}
