// Package errors provides custom error types for the chat drawer.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrInvalidState = errors.New("invalid state")
	ErrBusy         = errors.New("a request is already in flight")
	ErrEmptyPrompt  = errors.New("prompt cannot be empty")
	ErrClosed       = errors.New("session is closed")
	ErrTransport    = errors.New("transport failure")
	ErrDecode       = errors.New("malformed stream")
)

// InvalidStateError represents caller misuse, such as submitting while a
// request is already in flight. It never reaches the transcript.
type InvalidStateError struct {
	Op     string
	Reason error
}

func (e *InvalidStateError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("invalid state: %v", e.Reason)
	}
	return fmt.Sprintf("invalid state for %s: %v", e.Op, e.Reason)
}

// Unwrap returns the reason
func (e *InvalidStateError) Unwrap() error {
	return e.Reason
}

// Is allows comparison with sentinel errors
func (e *InvalidStateError) Is(target error) bool {
	if target == ErrInvalidState {
		return true
	}
	_, ok := target.(*InvalidStateError)
	return ok
}

// NewInvalidStateError creates a new InvalidStateError
func NewInvalidStateError(op string, reason error) *InvalidStateError {
	return &InvalidStateError{Op: op, Reason: reason}
}

// TransportError represents a failed call to the generation endpoint:
// network failure, non-2xx response or a malformed initial response.
type TransportError struct {
	StatusCode int
	Endpoint   string
	Message    string
	Body       string
	Cause      error
}

func (e *TransportError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("transport error [%d] at %s: %s", e.StatusCode, e.Endpoint, msg)
	} else if e.Endpoint != "" {
		msg = fmt.Sprintf("transport error at %s: %s", e.Endpoint, msg)
	} else {
		msg = fmt.Sprintf("transport error: %s", msg)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Is allows comparison with sentinel errors
func (e *TransportError) Is(target error) bool {
	if target == ErrTransport {
		return true
	}
	_, ok := target.(*TransportError)
	return ok
}

// NewTransportError creates a TransportError for a network level failure
func NewTransportError(endpoint, message string, cause error) *TransportError {
	return &TransportError{Endpoint: endpoint, Message: message, Cause: cause}
}

// NewStatusError creates a TransportError for a non-2xx response
func NewStatusError(statusCode int, endpoint, body string) *TransportError {
	return &TransportError{
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Message:    "unexpected status",
		Body:       body,
	}
}

// DecodeError represents malformed framing in the response stream
type DecodeError struct {
	Line    int
	Offset  int64
	Message string
	Cause   error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decode error at line %d: %s", e.Line, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// Is allows comparison with sentinel errors
func (e *DecodeError) Is(target error) bool {
	if target == ErrDecode {
		return true
	}
	_, ok := target.(*DecodeError)
	return ok
}

// NewDecodeError creates a new DecodeError
func NewDecodeError(line int, offset int64, message string, cause error) *DecodeError {
	return &DecodeError{Line: line, Offset: offset, Message: message, Cause: cause}
}

// IsInvalidState checks if the error is caller misuse
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsTransportError checks if the error came from the transport
func IsTransportError(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsDecodeError checks if the error is malformed stream framing
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrDecode)
}

// IsCancelled checks if the error is a user-initiated stop
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// GetHTTPStatus extracts the HTTP status code from a TransportError, or 0
func GetHTTPStatus(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}

// GetEndpoint extracts the endpoint from a TransportError
func GetEndpoint(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Endpoint
	}
	return ""
}

// GetResponseBody extracts the response body captured with a TransportError
func GetResponseBody(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Body
	}
	return ""
}

// Summary returns the short text written into an errored assistant turn
func Summary(marker string, err error) string {
	switch {
	case err == nil:
		return marker
	case IsDecodeError(err):
		return marker + " (malformed response stream)"
	case GetHTTPStatus(err) > 0:
		return fmt.Sprintf("%s (HTTP %d)", marker, GetHTTPStatus(err))
	case IsTransportError(err):
		var te *TransportError
		if errors.As(err, &te) && te.Cause == nil {
			return marker + " (server error)"
		}
		return marker + " (network error)"
	default:
		return marker
	}
}
