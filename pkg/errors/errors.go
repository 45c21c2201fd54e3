// Package errors provides the categorized error type used across the
// reconciliation service. Errors carry a category (mapped to a process exit
// code at the CLI boundary), a machine-readable code, an optional suggestion
// for the operator, and a stack trace captured at creation time.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Category groups errors by where in the pipeline they arise.
type Category string

const (
	CategoryFile           Category = "file"
	CategoryParse          Category = "parse"
	CategoryConfiguration  Category = "configuration"
	CategoryReconciliation Category = "reconciliation"
	CategoryInternal       Category = "internal"
)

// Code identifies a specific failure within a category.
type Code string

const (
	// File errors
	CodeFileNotFound   Code = "file_not_found"
	CodeFilePermission Code = "file_permission"
	CodeFileUnreadable Code = "file_unreadable"

	// Parse errors (ledger side only; statement rows never fail parsing)
	CodeInvalidFormat Code = "invalid_format"
	CodeMissingColumn Code = "missing_column"
	CodeInvalidData   Code = "invalid_data"

	// Configuration errors
	CodeInvalidPolicy Code = "invalid_policy"
	CodeInvalidConfig Code = "invalid_config"

	// Reconciliation errors
	CodeSessionState    Code = "session_state"
	CodeSessionCanceled Code = "session_canceled"
	CodeProcessingError Code = "processing_error"

	// Internal errors
	CodeUnexpectedError Code = "unexpected_error"
)

// Error is the base error type for the service.
type Error struct {
	Category   Category          `json:"category"`
	Code       Code              `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional structured information about the error.
type Context map[string]interface{}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the process exit code for the error's category.
func (e *Error) ExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryReconciliation, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds a key/value pair to the error context.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion attaches an operator-facing hint for fixing the error.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// stackTracer is the interface pkg/errors exposes for stack extraction.
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a new categorized error with a stack trace.
func New(category Category, code Code, message string) *Error {
	return &Error{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with category and code context. Returns nil
// for a nil error.
func Wrap(err error, category Category, code Code, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// FileError creates a file access error for the CLI collaborator.
func FileError(code Code, path string, err error) *Error {
	var message, suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check that the path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *Error
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ParseError creates a ledger parsing error carrying the failing line number.
func ParseError(code Code, line int, message string, err error) *Error {
	var result *Error
	if err != nil {
		result = Wrap(err, CategoryParse, code, message)
	} else {
		result = New(CategoryParse, code, message)
	}

	return result.WithContext("line", line)
}

// ConfigError creates a configuration error.
func ConfigError(code Code, message string, err error) *Error {
	var result *Error
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.WithSuggestion("review the matching policy flags and config file values")
}

// SessionError creates a reconciliation session error.
func SessionError(code Code, message string, err error) *Error {
	if err != nil {
		return Wrap(err, CategoryReconciliation, code, message)
	}
	return New(CategoryReconciliation, code, message)
}

// Internal wraps an unexpected defect. Anything reaching this constructor is
// a bug in the core, not bad input.
func Internal(message string, err error) *Error {
	if err != nil {
		return Wrap(err, CategoryInternal, CodeUnexpectedError, message)
	}
	return New(CategoryInternal, CodeUnexpectedError, message)
}

// AsError extracts an *Error from an error chain, or wraps the error as an
// internal defect if none is present.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		if appErr, ok := e.(*Error); ok {
			return appErr
		}
	}

	return Internal(err.Error(), err)
}
