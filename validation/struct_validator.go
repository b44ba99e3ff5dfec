package validation

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/tuplestream/errors"
)

var structValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(tagName)
	return v
})

// tagName reports fields by their wire name: the json tag, then the
// mapstructure tag, then the lower-cased Go name.
func tagName(fld reflect.StructField) string {
	for _, key := range []string{"json", "mapstructure"} {
		name, _, _ := strings.Cut(fld.Tag.Get(key), ",")
		if name == "-" {
			break
		}
		if name != "" {
			return name
		}
	}
	return strings.ToLower(fld.Name)
}

// Validate checks `validate` struct tags and reports failures as INVALID_INPUT.
func Validate(s any) error {
	return ValidateWithCode(s, errors.ErrCodeInvalidInput)
}

// ValidateWithCode is Validate with a caller-chosen error code. The field
// failures are attached under the "fields" detail.
func ValidateWithCode(s any, code errors.ErrorCode) error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return newAppError(code, "validation failed: "+err.Error(), nil)
	}

	v := New()
	for _, fe := range fieldErrs {
		v.AddError(fe.Field(), describe(fe))
	}
	return v.ValidateAs(code)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if k := fe.Kind(); k == reflect.Slice || k == reflect.String {
			return "must have at least " + fe.Param() + " elements"
		}
		return "must be at least " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + fe.Param()
	}
	return "is invalid"
}
