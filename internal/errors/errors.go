// Package errors provides standardized domain errors with codes for the GRead
// identity engine.
//
// Usage:
//
//	// In services - return typed errors
//	if from == to {
//	    return errors.InvalidMerge("cannot merge a record into itself")
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrDuplicateISBN) {
//	    // surface to the operator for manual resolution
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeTransactionFailed:
//	        // safe to retry
//	    case errors.CodeInvalidMerge:
//	        // caller error, do not retry
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the engine.
const (
	CodeNotFound          Code = "NOT_FOUND"
	CodeAlreadyExists     Code = "ALREADY_EXISTS"
	CodeValidation        Code = "VALIDATION"
	CodeInvalidMerge      Code = "INVALID_MERGE"
	CodeDuplicateISBN     Code = "DUPLICATE_ISBN"
	CodeISBNConflict      Code = "ISBN_CONFLICT"
	CodeEditionNotInGroup Code = "EDITION_NOT_IN_GROUP"
	CodeAuthorHasBooks    Code = "AUTHOR_HAS_BOOKS"
	CodeTransactionFailed Code = "TRANSACTION_FAILED"
	CodeInconsistentState Code = "INCONSISTENT_STATE"
	CodeInternal          Code = "INTERNAL"
)

// Retryable reports whether a bare retry of the failed operation is sane.
// Only storage-layer transaction aborts qualify; every other kind is either a
// caller error or needs manual resolution.
func (c Code) Retryable() bool {
	return c == CodeTransactionFailed
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Retryable reports whether this error's code is transiently retryable.
func (e *Error) Retryable() bool {
	return e.Code.Retryable()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists     = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInvalidMerge      = &Error{Code: CodeInvalidMerge, Message: "invalid merge"}
	ErrDuplicateISBN     = &Error{Code: CodeDuplicateISBN, Message: "duplicate isbn"}
	ErrISBNConflict      = &Error{Code: CodeISBNConflict, Message: "isbn conflict"}
	ErrEditionNotInGroup = &Error{Code: CodeEditionNotInGroup, Message: "edition not in group"}
	ErrAuthorHasBooks    = &Error{Code: CodeAuthorHasBooks, Message: "author has books"}
	ErrTransactionFailed = &Error{Code: CodeTransactionFailed, Message: "transaction failed"}
	ErrInconsistentState = &Error{Code: CodeInconsistentState, Message: "inconsistent state"}
	ErrInternal          = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// InvalidMerge creates an invalid merge error.
func InvalidMerge(msg string) *Error {
	return &Error{Code: CodeInvalidMerge, Message: msg}
}

// InvalidMergef creates an invalid merge error with formatted message.
func InvalidMergef(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidMerge, Message: fmt.Sprintf(format, args...)}
}

// DuplicateISBN creates a duplicate ISBN error.
func DuplicateISBN(isbn string) *Error {
	return &Error{Code: CodeDuplicateISBN, Message: fmt.Sprintf("isbn %q already exists", isbn)}
}

// ISBNConflict creates an ISBN conflict error.
func ISBNConflict(msg string) *Error {
	return &Error{Code: CodeISBNConflict, Message: msg}
}

// EditionNotInGroupf creates an edition-not-in-group error with formatted message.
func EditionNotInGroupf(format string, args ...any) *Error {
	return &Error{Code: CodeEditionNotInGroup, Message: fmt.Sprintf(format, args...)}
}

// AuthorHasBooks creates an author has books error.
func AuthorHasBooks(msg string) *Error {
	return &Error{Code: CodeAuthorHasBooks, Message: msg}
}

// TransactionFailed wraps a storage-layer abort.
func TransactionFailed(err error) *Error {
	return &Error{Code: CodeTransactionFailed, Message: "transaction failed", cause: err}
}

// InconsistentState creates an inconsistent state error.
func InconsistentState(msg string) *Error {
	return &Error{Code: CodeInconsistentState, Message: msg}
}

// InconsistentStatef creates an inconsistent state error with formatted message.
func InconsistentStatef(format string, args ...any) *Error {
	return &Error{Code: CodeInconsistentState, Message: fmt.Sprintf(format, args...)}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
