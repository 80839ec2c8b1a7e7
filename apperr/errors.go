// Package apperr defines the errors handlers return and the HTTP layer
// translates: bad input, missing records and failing dependencies.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rejected input field.
type ValidationError struct {
	Fields []FieldError
}

func Validation(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns e when it holds at least one field error.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type NotFoundError struct {
	Resource string
	ID       string
}

func NotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// DependencyError wraps a failure of the store or the mail transport.
type DependencyError struct {
	Op  string
	Err error
}

func Dependency(op string, err error) *DependencyError {
	return &DependencyError{Op: op, Err: err}
}

func (e *DependencyError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *DependencyError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
