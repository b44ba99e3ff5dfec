package validation

import (
	"strings"
	"testing"

	"github.com/kbukum/tuplestream/errors"
)

type descriptor struct {
	Collection string   `json:"collection" validate:"required"`
	Fields     []string `json:"fl" validate:"min=1"`
	Rows       int      `json:"rows" validate:"gte=0"`
}

func TestValidate_StructTags(t *testing.T) {
	err := Validate(descriptor{Fields: []string{"k"}})
	if err == nil {
		t.Fatal("expected error")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", appErr.Code)
	}
	if !strings.Contains(appErr.Message, "collection: is required") {
		t.Errorf("unexpected message %q", appErr.Message)
	}
}

func TestValidateWithCode(t *testing.T) {
	err := ValidateWithCode(descriptor{Collection: "genes", Rows: -1}, errors.ErrCodeInvalidStream)
	if !errors.IsInvalidStream(err) {
		t.Fatalf("expected INVALID_STREAM, got %v", err)
	}
	appErr, _ := errors.AsAppError(err)
	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok || len(fields) != 2 {
		t.Fatalf("expected two field errors, got %v", appErr.Details["fields"])
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(descriptor{Collection: "genes", Fields: []string{"k"}}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidator_CollectsEveryFailure(t *testing.T) {
	v := For("reduce")
	v.Required("by", " ").Min("n", 0, 1).NotEmpty("fields", 0).Check(false, "sort", "must be projected")
	if len(v.Errors()) != 4 {
		t.Fatalf("expected 4 errors, got %v", v.Errors())
	}
	err := v.ValidateAs(errors.ErrCodeInvalidStream)
	if !errors.IsInvalidStream(err) {
		t.Fatalf("expected INVALID_STREAM, got %v", err)
	}
	appErr, _ := errors.AsAppError(err)
	want := "reduce: by: is required; n: must be at least 1, got 0; fields: must not be empty; sort: must be projected"
	if appErr.Message != want {
		t.Errorf("message = %q\nwant      %q", appErr.Message, want)
	}
}

func TestValidator_NoErrors(t *testing.T) {
	v := New().Required("on", "k").Min("n", 2, 1)
	if v.HasErrors() {
		t.Errorf("unexpected errors %v", v.Errors())
	}
	if err := v.Validate(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

type endpoint struct {
	BaseURL   string `mapstructure:"base_url" validate:"required,url"`
	Collation string `validate:"oneof=asc desc"`
}

func TestValidate_FieldNames(t *testing.T) {
	err := Validate(endpoint{BaseURL: "not a url", Collation: "up"})
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %v", err)
	}
	want := "base_url: must be a valid URL; collation: must be one of: asc desc"
	if appErr.Message != want {
		t.Errorf("message = %q\nwant      %q", appErr.Message, want)
	}
}
