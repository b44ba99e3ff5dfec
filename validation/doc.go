// Package validation provides input validation helpers.
//
// It supports both struct tag validation (using go-playground/validator) and
// programmatic validation with error collection. Both report failures as
// errors.AppError so callers can choose the code (INVALID_INPUT by default,
// INVALID_STREAM for pipeline builders).
//
// # Struct Tag Validation
//
//	type Query struct {
//	    Collection string `json:"collection" validate:"required"`
//	    Rows       int    `json:"rows" validate:"gte=0"`
//	}
//	err := validation.ValidateWithCode(q, errors.ErrCodeInvalidStream)
//
// # Collected checks
//
//	err := validation.For("reduce").
//	    Required("by", field).
//	    Min("n", limit, 1).
//	    ValidateAs(errors.ErrCodeInvalidStream)
package validation
