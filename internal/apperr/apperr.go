// Package apperr defines the error taxonomy shared by the engine and its
// adapters. Callers branch on Code (or the Is* helpers), never on message text.
package apperr

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeConflict   = "CONFLICT"
	CodeInternal   = "INTERNAL_ERROR"

	CodeUnauthorized = "UNAUTHORIZED"
)

// Error is a classified engine error.
type Error struct {
	Code    string
	Message string
	Details []string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Validation reports malformed or out-of-range input.
func Validation(message string, details ...string) *Error {
	return &Error{Code: CodeValidation, Message: message, Details: details}
}

// NotFound reports a missing (or not owned) resource.
func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: resource + " not found"}
}

// Conflict reports a uniqueness or concurrent-update violation.
func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

// Unauthorized reports a missing or invalid caller identity. Only the
// transport layer raises it.
func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message}
}

// Internal wraps a record store or unexpected failure. The message is what
// callers may show; the cause is kept for logs only.
func Internal(cause error, message string) *Error {
	return &Error{Code: CodeInternal, Message: message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeInternal for anything unclassified.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

func IsValidation(err error) bool { return err != nil && CodeOf(err) == CodeValidation }
func IsNotFound(err error) bool   { return err != nil && CodeOf(err) == CodeNotFound }
func IsConflict(err error) bool   { return err != nil && CodeOf(err) == CodeConflict }
func IsInternal(err error) bool   { return err != nil && CodeOf(err) == CodeInternal }
