// SPDX-License-Identifier: MIT

// Package validate accumulates validation findings into a single error value.
package validate

import (
	"fmt"
	"sort"
	"strings"
)

// Error represents a single validation finding.
type Error struct {
	Field   string `json:"field"`           // JSON pointer of the offending value ("" for the document root)
	Rule    string `json:"rule,omitempty"`  // violated rule, e.g. "required" or "type"
	Value   any    `json:"value,omitempty"` // the invalid value
	Message string `json:"message"`         // human-readable message
}

// Error implements the error interface
func (e Error) Error() string {
	field := e.Field
	if field == "" {
		field = "/"
	}
	return fmt.Sprintf("validation failed for %s: %s", field, e.Message)
}

// Validator accumulates validation errors and can produce a ValidationError when invalid.
type Validator struct {
	errors []Error
}

// ValidationError bundles multiple validation errors into a single error value.
type ValidationError struct {
	errors []Error
}

// New creates a new validator
func New() *Validator {
	return &Validator{
		errors: make([]Error, 0),
	}
}

// Add appends a fully populated error.
func (v *Validator) Add(e Error) {
	v.errors = append(v.errors, e)
}

// AddError adds a validation error
func (v *Validator) AddError(field, message string, value any) {
	v.errors = append(v.errors, Error{
		Field:   field,
		Value:   value,
		Message: message,
	})
}

// IsValid returns true if no errors have been accumulated
func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

// Errors returns all accumulated validation errors
func (v *Validator) Errors() []Error {
	return v.errors
}

// Sort orders the accumulated errors by field, then rule, then message.
func (v *Validator) Sort() {
	sort.SliceStable(v.errors, func(i, j int) bool {
		a, b := v.errors[i], v.errors[j]
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Message < b.Message
	})
}

// Err converts the accumulated validation errors into an error value.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}

	copied := make([]Error, len(v.errors))
	copy(copied, v.errors)

	return ValidationError{errors: copied}
}

// Errors returns the individual validation errors making up the validation failure.
func (e ValidationError) Errors() []Error {
	return e.errors
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	if len(e.errors) == 0 {
		return ""
	}

	if len(e.errors) == 1 {
		return e.errors[0].Error()
	}

	msgs := make([]string, len(e.errors))
	for i, err := range e.errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// NotEmpty validates that a string is not empty or whitespace-only
func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.Add(Error{Field: field, Rule: "notEmpty", Value: value, Message: "value cannot be empty"})
	}
}

// OneOf validates that a value is one of the allowed values
func (v *Validator) OneOf(field, value string, allowed []string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.Add(Error{
		Field:   field,
		Rule:    "oneOf",
		Value:   value,
		Message: fmt.Sprintf("value must be one of %v, got %q", allowed, value),
	})
}

// Unique reports every value in values that already appeared earlier.
// fieldOf maps an index to the field reported for a duplicate.
func (v *Validator) Unique(values []string, fieldOf func(i int) string) {
	first := make(map[string]int, len(values))
	for i, val := range values {
		if j, ok := first[val]; ok {
			v.Add(Error{
				Field:   fieldOf(i),
				Rule:    "unique",
				Value:   val,
				Message: fmt.Sprintf("duplicate name %q (first defined at %s)", val, fieldOf(j)),
			})
			continue
		}
		first[val] = i
	}
}

// Custom records the error validator returns for value, if any.
func (v *Validator) Custom(field string, value any, validator func(any) error) {
	if err := validator(value); err != nil {
		v.AddError(field, err.Error(), value)
	}
}
