package canvas

import (
	"errors"
	"fmt"
)

// Code categorizes operation failures.
//
// The first four codes describe infrastructure outcomes and are produced
// by the store, the write serializer, and the gateway's auth check. The
// rest are domain outcomes surfaced directly to callers. Codes propagate
// unchanged from the component that detected them; the gateway maps them
// to HTTP statuses but never reclassifies.
type Code string

const (
	// CodeUnauthorized means a privileged request presented a bad or
	// missing credential. Never retried.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeUnavailable means transient store contention outlived the retry
	// budget. Safe for the caller to retry.
	CodeUnavailable Code = "UNAVAILABLE"

	// CodeStoreFailure means a non-transient store failure: corruption,
	// constraint violation, disk exhaustion. Never retried.
	CodeStoreFailure Code = "STORE_FAILURE"

	// CodeDeadlineExceeded means the operation's deadline passed before it
	// was started. The operation was not applied.
	CodeDeadlineExceeded Code = "DEADLINE_EXCEEDED"

	// CodeNotFound means the addressed user or pixel does not exist.
	CodeNotFound Code = "NOT_FOUND"

	// CodeInvalidArgument means the request failed validation before
	// reaching the store.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// CodeInsufficientPaint means the user has no paint drops left.
	CodeInsufficientPaint Code = "INSUFFICIENT_PAINT"

	// CodeRateLimited means the user painted again within the cooldown.
	CodeRateLimited Code = "RATE_LIMITED"
)

// Error is a code-bearing error. Wrapped causes are preserved for
// logging; the code alone determines how callers react.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// CodeOf extracts the Code from err, or "" if err carries none.
func CodeOf(err error) Code {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsUnavailable reports whether err is a retry-budget exhaustion.
func IsUnavailable(err error) bool { return CodeOf(err) == CodeUnavailable }

// IsNotFound reports whether err is a missing user or pixel.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsDeadlineExceeded reports whether err is an abandoned operation.
func IsDeadlineExceeded(err error) bool { return CodeOf(err) == CodeDeadlineExceeded }

// NewUnauthorized creates an Error for a failed credential check.
func NewUnauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// NewUnavailable creates an Error for exhausted transient retries.
func NewUnavailable(msg string, cause error) *Error {
	return &Error{Code: CodeUnavailable, Message: msg, Cause: cause}
}

// NewStoreFailure creates an Error for a non-transient store failure.
func NewStoreFailure(msg string, cause error) *Error {
	return &Error{Code: CodeStoreFailure, Message: msg, Cause: cause}
}

// NewDeadlineExceeded creates an Error for an operation abandoned before
// it started.
func NewDeadlineExceeded(msg string) *Error {
	return &Error{Code: CodeDeadlineExceeded, Message: msg}
}

// NewNotFound creates an Error for a missing user or pixel.
func NewNotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NewInvalidArgument creates an Error for a request that failed validation.
func NewInvalidArgument(msg string) *Error {
	return &Error{Code: CodeInvalidArgument, Message: msg}
}

// NewInsufficientPaint creates an Error for an empty paint balance.
func NewInsufficientPaint(msg string) *Error {
	return &Error{Code: CodeInsufficientPaint, Message: msg}
}

// NewRateLimited creates an Error for a cooldown violation.
func NewRateLimited(msg string) *Error {
	return &Error{Code: CodeRateLimited, Message: msg}
}
