package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorType represents the category of error that occurred during a fetch operation
type ErrorType string

const (
	// ErrorTypeNetwork indicates a transport-level failure (connection refused, DNS, timeout, etc.)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeBadStatus indicates the server answered with a non-success status code
	ErrorTypeBadStatus ErrorType = "bad_status"
)

// FetchError represents a structured error from a fetch operation
type FetchError struct {
	Type       ErrorType
	StatusCode int
	Timeout    bool
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewNetworkError creates a network error. Deadline and timeout causes are
// flagged so callers can tell a hung endpoint from a refused connection.
func NewNetworkError(cause error) *FetchError {
	if isTimeout(cause) {
		return &FetchError{
			Type:    ErrorTypeNetwork,
			Timeout: true,
			Message: "request timed out",
			Cause:   cause,
		}
	}
	return &FetchError{
		Type:    ErrorTypeNetwork,
		Message: "network request failed",
		Cause:   cause,
	}
}

// NewBadStatusError creates an error for a non-2xx response
func NewBadStatusError(statusCode int) *FetchError {
	text := http.StatusText(statusCode)
	if text == "" {
		text = "unexpected status"
	}
	return &FetchError{
		Type:       ErrorTypeBadStatus,
		StatusCode: statusCode,
		Message:    text,
	}
}

// IsNetwork reports whether err is (or wraps) a network FetchError
func IsNetwork(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Type == ErrorTypeNetwork
}

// IsBadStatus reports whether err is (or wraps) a bad-status FetchError
func IsBadStatus(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Type == ErrorTypeBadStatus
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
