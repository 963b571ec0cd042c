// Package domainerrors defines the coded error taxonomy shared by services and
// the HTTP transport. Services create or wrap errors with a Code; the transport
// edge translates codes to HTTP statuses without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure. Codes are stable API: handlers map them
// to HTTP statuses and clients may branch on them.
type Code string

const (
	// CodeBadRequest covers missing or malformed caller arguments.
	CodeBadRequest Code = "bad_request"
	// CodeInvalidInput covers values that fail domain-level parsing (ids, enums).
	CodeInvalidInput Code = "invalid_input"
	// CodeUnauthorized covers missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeRecordNotFound covers a record that is absent or not owned by the actor.
	CodeRecordNotFound Code = "record_not_found"
	// CodeSectionNotFound covers an unknown section key.
	CodeSectionNotFound Code = "section_not_found"
	// CodeInvalidData covers payloads referencing state that does not exist,
	// e.g. a dependency item id absent from the aggregate.
	CodeInvalidData Code = "invalid_data"
	// CodeConflict covers state that is already claimed or in the wrong phase.
	CodeConflict Code = "conflict"
	// CodeTimeout covers aborted or deadline-exceeded operations.
	CodeTimeout Code = "timeout"
	// CodeInternal covers everything the caller cannot fix.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. It optionally wraps a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error. The cause stays
// reachable through errors.Is / errors.As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		de = nil
	}
	return false
}

// Is is a convenience alias for HasCode so call sites read naturally.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the outermost code carried by err, or CodeInternal when err
// carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status for the transport edge.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeRecordNotFound, CodeSectionNotFound:
		return http.StatusNotFound
	case CodeInvalidData:
		return http.StatusUnprocessableEntity
	case CodeConflict:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
