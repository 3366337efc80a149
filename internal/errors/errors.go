package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors.
//
// The first four mirror the failure modes of talking to a remote device:
// the socket never came up, credentials were refused, the SSH handshake or
// channel negotiation broke, or a command never produced its output in time.
const (
	ErrConnection = "CONNECTION"
	ErrAuth       = "AUTH"
	ErrProtocol   = "PROTOCOL"
	ErrTimeout    = "TIMEOUT"
	ErrConfig     = "CONFIG"
	ErrDevice     = "DEVICE"
	ErrSession    = "SESSION"
)

// Error represents a structured error with code, message, suggestion, and optional cause.
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrConnection code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrConnection,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Short returns a single-line rendering: the message followed by the cause.
// This is what ends up in API payloads and "error" events, where the
// multi-line terminal format would be noise.
func (e *Error) Short() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var sErr *Error
	if errors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost structured Error in the chain,
// or the empty string for plain errors.
func CodeOf(err error) string {
	var sErr *Error
	if errors.As(err, &sErr) {
		return sErr.Code
	}
	return ""
}

// Message returns a one-line description of err suitable for clients.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var sErr *Error
	if errors.As(err, &sErr) {
		return sErr.Short()
	}
	return err.Error()
}
