// Package domainerrors defines the error taxonomy shared by services and
// transports. Services return *Error values; transports map Code to a status.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeInvalidFormat      Code = "invalid_format"
	CodeConflict           Code = "conflict"
	CodeNotFound           Code = "not_found"
	CodeUpstream           Code = "upstream_unavailable"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// Error is a coded domain error. Existing is set on conflicts and names the
// entity that already holds the contested resource.
type Error struct {
	Code     Code
	Message  string
	Existing string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// NewConflict creates a conflict error naming the colliding entity.
func NewConflict(message, existing string) *Error {
	return &Error{Code: CodeConflict, Message: message, Existing: existing}
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias of HasCode kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Existing returns the colliding entity carried by a conflict error.
func Existing(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Existing
	}
	return ""
}
