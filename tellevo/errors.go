package tellevo

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error type.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota

	// Transport errors, recovered by the reconnect loop and surfaced to
	// error subscribers.
	ErrorConnection
	ErrorTimeout
	ErrorHeartbeat

	// Protocol errors, logged and dropped frame by frame.
	ErrorSerialization
	ErrorInvalidEvent

	// Client-side errors
	ErrorInvalidConfig
	ErrorSubscriber
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorUnknown:
		return "unknown"
	case ErrorConnection:
		return "connection_error"
	case ErrorTimeout:
		return "timeout"
	case ErrorHeartbeat:
		return "heartbeat_failed"
	case ErrorSerialization:
		return "serialization_error"
	case ErrorInvalidEvent:
		return "invalid_event"
	case ErrorInvalidConfig:
		return "invalid_config"
	case ErrorSubscriber:
		return "subscriber_panic"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// StreamError is a structured error with code and context.
type StreamError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *StreamError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface for error comparison.
func (e *StreamError) Is(target error) bool {
	t, ok := target.(*StreamError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new StreamError with the given code and message.
func NewError(code ErrorCode, message string) *StreamError {
	return &StreamError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with a StreamError.
func WrapError(code ErrorCode, message string, err error) *StreamError {
	return &StreamError{
		Code:    code,
		Message: message,
		Wrapped: err,
	}
}

// ErrConnectTimeout is reported to error subscribers when the socket does not
// open within Config.ConnectTimeout.
var ErrConnectTimeout = NewError(ErrorTimeout, "connection timeout")

// IsConnectionError checks if an error is a transport-level error, the kind
// that drives the reconnect loop.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var se *StreamError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == ErrorConnection || se.Code == ErrorTimeout || se.Code == ErrorHeartbeat
}

// IsProtocolError checks if an error describes a frame that was dropped.
func IsProtocolError(err error) bool {
	if err == nil {
		return false
	}
	var se *StreamError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == ErrorSerialization || se.Code == ErrorInvalidEvent
}
