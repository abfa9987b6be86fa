// Package util provides logging helpers and common error types.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	ErrNotConnected          = errors.New("store not connected")
	ErrNotFound              = errors.New("resource not found")
	ErrInvalidConfig         = errors.New("invalid configuration")
	ErrValidationFailed      = errors.New("validation failed")
	ErrInvalidIdentifier     = errors.New("invalid identifier")
	ErrUnhandledModification = errors.New("unhandled modification kind")
)

// IdentifierError reports an identifier that does not decompose into the
// expected number of colon-separated segments.
type IdentifierError struct {
	ID       string
	Segments int
	Want     int
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier %q: %d segments, want %d", e.ID, e.Segments, e.Want)
}

func (e *IdentifierError) Unwrap() error {
	return ErrInvalidIdentifier
}

// NewIdentifierError creates an identifier error
func NewIdentifierError(id string, segments, want int) *IdentifierError {
	return &IdentifierError{ID: id, Segments: segments, Want: want}
}

// ModificationKindError is returned when a change feed reports a
// modification kind the dispatcher has no route for.
type ModificationKindError struct {
	Kind string
	Path string
}

func (e *ModificationKindError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("unhandled modification kind %q", e.Kind)
	}
	return fmt.Sprintf("unhandled modification kind %q at %s", e.Kind, e.Path)
}

func (e *ModificationKindError) Unwrap() error {
	return ErrUnhandledModification
}

// NewModificationKindError creates a modification kind error
func NewModificationKindError(kind, path string) *ModificationKindError {
	return &ModificationKindError{Kind: kind, Path: path}
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a validation error from messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}
