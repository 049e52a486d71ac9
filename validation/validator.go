package validation

import (
	"fmt"
	"strings"

	"github.com/kbukum/cloudbatch/errors"
)

// Validator collects validation errors.
type Validator struct {
	errors []FieldError
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new Validator.
func New() *Validator {
	return &Validator{
		errors: make([]FieldError, 0),
	}
}

// AddError adds a field error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Validate returns an INVALID_ARGUMENT AppError if there are validation
// errors, nil otherwise.
func (v *Validator) Validate() error {
	if !v.HasErrors() {
		return nil
	}

	messages := make([]string, len(v.errors))
	for i, e := range v.errors {
		messages[i] = fmt.Sprintf("%s %s", e.Field, e.Message)
	}

	appErr := errors.InvalidArgument(v.errors[0].Field, strings.Join(messages, "; "))
	appErr.WithDetail("fields", v.errors)
	return appErr
}

// Required checks if a string is non-empty.
func (v *Validator) Required(field, value string) *Validator {
	if value == "" {
		v.AddError(field, "is required")
	}
	return v
}

// MaxBytes checks that a string is at most max bytes long.
func (v *Validator) MaxBytes(field, value string, max int) *Validator {
	if len(value) > max {
		v.AddError(field, fmt.Sprintf("must be at most %d bytes", max))
	}
	return v
}

// Excludes checks that a string does not contain substr.
func (v *Validator) Excludes(field, value, substr string) *Validator {
	if strings.Contains(value, substr) {
		v.AddError(field, fmt.Sprintf("must not contain %q", substr))
	}
	return v
}

// Check adds an error when cond is false.
func (v *Validator) Check(cond bool, field, message string) *Validator {
	if !cond {
		v.AddError(field, message)
	}
	return v
}
