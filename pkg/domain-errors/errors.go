// Package domainerrors carries coded errors across layer boundaries. Services
// return them, transports translate the code into a status without inspecting
// messages.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code is a stable, client-facing error classification.
type Code string

const (
	CodeValidation          Code = "validation"
	CodeBadRequest          Code = "bad_request"
	CodeDuplicateSubmission Code = "duplicate_submission"
	CodePriceConflict       Code = "price_conflict"
	CodeUnauthorized        Code = "unauthorized"
	CodeNotFound            Code = "not_found"
	CodeRateLimited         Code = "rate_limited"
	CodeConflict            Code = "conflict"
	CodeInvariantViolation  Code = "invariant_violation"
	CodeInternal            Code = "internal"
)

// Error is a coded error with an optional list of field-level details.
type Error struct {
	Code    Code
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// WithDetails creates a coded error carrying per-field messages.
func WithDetails(code Code, msg string, details []string) *Error {
	return &Error{Code: code, Message: msg, Details: details}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// As returns the first coded error in err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether err's chain contains a coded error with the given code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// Details returns the field-level messages of a coded error, if any.
func Details(err error) []string {
	if de, ok := As(err); ok {
		return de.Details
	}
	return nil
}

// ToHTTPStatus maps a code onto the HTTP status the transport should write.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest, CodeDuplicateSubmission, CodeInvariantViolation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodePriceConflict, CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
