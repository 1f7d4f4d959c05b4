// Package domainerrors defines the coded error taxonomy shared by the
// collection store, the synchronization cache, and the business operations.
// Transport layers translate codes to HTTP status centrally so every
// surface returns the same envelope for the same failure.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a failure independently of its message.
type Code string

const (
	// CodeConnectivity covers transport failures reaching the store.
	CodeConnectivity Code = "connectivity"
	// CodeNotConnected is returned when the cache is used before Connect.
	CodeNotConnected Code = "not_connected"
	// CodeNotFound covers missing members, card types, and records.
	CodeNotFound Code = "not_found"
	// CodeValidation covers malformed input to a business operation.
	CodeValidation Code = "validation"
	// CodePersistence covers a scheduled write that failed after retries.
	CodePersistence Code = "persistence"

	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeInternal     Code = "internal"
)

// Error carries a code alongside a human-readable message and an optional
// wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
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

// Is matches errors by code so errors.Is works against a freshly built
// coded error regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New builds a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, message string, err error) error {
	return &Error{Code: code, Message: message, Err: err}
}

// Is reports whether err (or anything it wraps) carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}

// MessageOf extracts the message from a coded error, falling back to the
// plain error text for uncoded errors.
func MessageOf(err error) string {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// ToHTTPStatus maps a code to the HTTP status the transport layer should
// return. Unknown codes map to 500.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConnectivity, CodeNotConnected, CodePersistence, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
