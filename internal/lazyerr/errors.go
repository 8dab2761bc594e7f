// Package lazyerr defines the error taxonomy shared by every layer of lazytbl.
//
// All failures surfaced to callers are *Error values carrying a Code. Layers
// wrap them with fmt.Errorf("...: %w", err) freely; use Is or the Is*
// helpers to classify an error after wrapping.
package lazyerr

import (
	"errors"
	"fmt"
)

// Code categorizes a failure.
type Code string

const (
	// CodeConnection indicates the transport could not be established or validated.
	CodeConnection Code = "CONNECTION_ERROR"

	// CodeInvalidIdentifier indicates a table, column or schema name that cannot be quoted.
	CodeInvalidIdentifier Code = "INVALID_IDENTIFIER"

	// CodeUnsupportedFrame indicates a window frame that does not map to a ROWS range.
	CodeUnsupportedFrame Code = "UNSUPPORTED_FRAME"

	// CodeAmbiguousTransform indicates more than one remote transform matched in one selection.
	CodeAmbiguousTransform Code = "AMBIGUOUS_TRANSFORM_INVOCATION"

	// CodeTableNotFound indicates a DDL target that does not exist.
	CodeTableNotFound Code = "TABLE_NOT_FOUND"

	// CodeTableExists indicates a DDL target that already exists.
	CodeTableExists Code = "TABLE_ALREADY_EXISTS"

	// CodeQueryExecution wraps a failure reported by the transport.
	CodeQueryExecution Code = "QUERY_EXECUTION_ERROR"

	// CodeInvalidPlan indicates a malformed operation graph or plan file.
	CodeInvalidPlan Code = "INVALID_PLAN"
)

// Error is a classified lazytbl failure.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Details contains additional context (table name, SQL text, ...).
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether err is a lazytbl error with the given code.
// Uses errors.As to handle wrapped errors.
func Is(err error, code Code) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Code == code
	}
	return false
}

// CodeOf returns the code of err, or "" when err is not a lazytbl error.
func CodeOf(err error) Code {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around an underlying cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// NewInvalidIdentifier reports an identifier that cannot be quoted.
func NewInvalidIdentifier(v any, reason string) *Error {
	return &Error{
		Code:    CodeInvalidIdentifier,
		Message: fmt.Sprintf("invalid identifier %#v: %s", v, reason),
	}
}

// NewTableNotFound reports a missing DDL target.
func NewTableNotFound(table string) *Error {
	return &Error{
		Code:    CodeTableNotFound,
		Message: fmt.Sprintf("table %s does not exist", table),
		Details: map[string]string{"table": table},
	}
}

// NewTableExists reports a DDL target that is already present.
func NewTableExists(table string) *Error {
	return &Error{
		Code:    CodeTableExists,
		Message: fmt.Sprintf("table %s already exists", table),
		Details: map[string]string{"table": table},
	}
}

// NewQueryExecution wraps the raw transport error text for a statement.
// The message is the transport's text, unmodified.
func NewQueryExecution(sql, raw string) *Error {
	return &Error{
		Code:    CodeQueryExecution,
		Message: raw,
		Details: map[string]string{"sql": sql},
	}
}

// IsTableNotFound returns true if err is a TableNotFound error.
func IsTableNotFound(err error) bool {
	return Is(err, CodeTableNotFound)
}

// IsQueryExecution returns true if err is a QueryExecutionError.
func IsQueryExecution(err error) bool {
	return Is(err, CodeQueryExecution)
}

// IsAmbiguousTransform returns true if err is an AmbiguousTransformInvocation error.
func IsAmbiguousTransform(err error) bool {
	return Is(err, CodeAmbiguousTransform)
}
