// Package domainerrors provides coded errors for the veripass domain.
//
// Services and models return these so transport layers can translate them
// into HTTP statuses without inspecting error strings. Stores return
// sentinel errors (pkg/platform/sentinel); services translate those into
// coded errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for transport mapping and retry decisions.
type Code string

const (
	// CodeBadRequest marks structurally broken requests (missing body, bad JSON).
	CodeBadRequest Code = "bad_request"
	// CodeValidation marks well-formed requests with invalid field values.
	CodeValidation Code = "validation_error"
	// CodeInvalidInput marks invalid values crossing an internal trust boundary.
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound marks lookups for entities that do not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict marks requests that clash with current state (duplicate
	// manifest version, re-evaluation of an evaluated assessment).
	CodeConflict Code = "conflict"
	// CodeInvariantViolation marks illegal state transitions caught by models.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeUnauthorized marks missing or failed authentication.
	CodeUnauthorized Code = "unauthorized"
	// CodeTimeout marks operations cancelled by deadline.
	CodeTimeout Code = "timeout"
	// CodeInternal marks bugs and infrastructure failures. Details are never
	// exposed to clients.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error. Construct via New or Wrap.
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

// New creates a coded error with a caller-facing message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted caller-facing message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is/As chains.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// GetCode returns the code of the outermost coded error, or CodeInternal when
// the error carries no code.
func GetCode(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvariantViolation:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
