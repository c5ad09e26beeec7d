package quote

import (
	"errors"
	"fmt"
)

// ErrorKind categorises a parse failure
type ErrorKind string

const (
	// ErrorKindMalformed means the payload is not a decodable JSON array
	ErrorKindMalformed ErrorKind = "malformed"
)

// ParseError reports a payload that could not be decoded as a whole.
// Problems with individual elements never produce one.
type ParseError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s payload: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s payload: %s", e.Kind, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewMalformedError creates a malformed-payload error
func NewMalformedError(message string, cause error) *ParseError {
	return &ParseError{
		Kind:    ErrorKindMalformed,
		Message: message,
		Cause:   cause,
	}
}

// IsMalformed reports whether err is (or wraps) a malformed-payload ParseError
func IsMalformed(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Kind == ErrorKindMalformed
}
