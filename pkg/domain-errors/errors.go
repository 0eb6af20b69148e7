// Package domainerrors provides coded errors for business-rule violations.
//
// Services create coded errors at the point of detection; the HTTP boundary
// translates codes to status responses (pkg/platform/httputil.WriteError).
// Stores do not use this package directly — they return sentinel errors
// (pkg/platform/sentinel) which services wrap with a code.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for boundary translation.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal"
)

// FieldError reports a validation failure for a single named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a coded domain error. Fields is populated only for validation
// errors that need per-field reporting (EAV bulk writes, request decoding).
type Error struct {
	Code    Code
	Message string
	Fields  []FieldError
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with no cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// WithFields returns a copy of the error carrying per-field details.
func (e *Error) WithFields(fields ...FieldError) *Error {
	clone := *e
	clone.Fields = append(clone.Fields[:len(clone.Fields):len(clone.Fields)], fields...)
	return &clone
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == code
}

// HasCode is an alias of Is kept for call-site readability in services.
func HasCode(err error, code Code) bool { return Is(err, code) }

// CodeOf extracts the code from err, or CodeInternal when err is uncoded.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// FieldsOf extracts per-field details from err, if any.
func FieldsOf(err error) []FieldError {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}
