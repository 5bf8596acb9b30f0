package errors

import (
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategorySchema    Category = "schema"
	CategoryProtocol  Category = "protocol"
	CategoryTransport Category = "transport"
	CategoryStream    Category = "stream"
	CategorySigner    Category = "signer"
	CategoryConfig    Category = "config"
)

// Error is a structured error with a stable code and category.
// Codes are registered in registry.go; callers match on them with Code()
// or on the category when the exact code does not matter.
type Error struct {
	// Code is a unique error identifier (e.g., "W101").
	Code string

	// Category is the error type (schema, protocol, transport, ...).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target carries the same code. Two registry errors with
// the same code compare equal regardless of detail or wrapped cause, which
// lets callers write errors.Is(err, errors.New("W201")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

// WithDetail adds a detailed explanation to the error.
func (e *Error) WithDetail(format string, args ...any) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// New creates an Error from a registered error code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new Error with a formatted message (no code).
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error under a registered code.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	if we, ok := err.(*Error); ok {
		return we
	}
	return New(code).Wrap(err)
}

// CodeOf returns the code of err if it is a structured Error, else "".
func CodeOf(err error) string {
	if we, ok := err.(*Error); ok {
		return we.Code
	}
	return ""
}
