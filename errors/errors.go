package errors

import (
	"errors"
	"fmt"
)

// Common error types for categorization and handling

var (
	// ErrInvalidInput indicates a malformed client request
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstream indicates the completion provider rejected the request
	ErrUpstream = errors.New("upstream error")

	// ErrNoUpstreamBody indicates the provider answered without a readable stream
	ErrNoUpstreamBody = errors.New("no upstream body")
)

// WrapError wraps an error with context message and stack
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsInvalidInput checks if error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsUpstream checks if error is an upstream error
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}
