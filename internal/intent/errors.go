package intent

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned for empty queries and malformed contexts.
// Invalid input is never retried and never falls back.
var ErrInvalidInput = errors.New("invalid input")

// Causes wrapped by ClassificationError.
var (
	ErrBackendTimeout    = errors.New("classification backend timed out")
	ErrMalformedResponse = errors.New("malformed classification response")
	ErrUndecided         = errors.New("no routing rule matched")
)

// Classification failure reasons.
const (
	ReasonUnreachable = "unreachable"
	ReasonMalformed   = "malformed"
	ReasonTimeout     = "timeout"
	ReasonUndecided   = "undecided"
)

// InvalidInputError describes which input field was rejected.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// Unwrap makes errors.Is(err, ErrInvalidInput) hold.
func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// ClassificationError is returned when no provider could be decided:
// the backend was unreachable, answered with something unusable, ran past
// the timeout, or the heuristic found nothing to go on.
type ClassificationError struct {
	// Backend is the classifier that failed last.
	Backend string
	// Reason is one of the Reason* constants.
	Reason string
	Err    error
}

func (e *ClassificationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("classification failed (%s, %s)", e.Backend, e.Reason)
	}
	return fmt.Sprintf("classification failed (%s, %s): %v", e.Backend, e.Reason, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// MalformedError wraps a decoding problem so the router classifies it as
// ReasonMalformed.
func MalformedError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}

// reasonFor maps a classifier error to a failure reason.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrBackendTimeout):
		return ReasonTimeout
	case errors.Is(err, ErrMalformedResponse):
		return ReasonMalformed
	case errors.Is(err, ErrUndecided):
		return ReasonUndecided
	default:
		return ReasonUnreachable
	}
}
