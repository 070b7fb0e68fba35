package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a job, alert or notification does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCompanyNotFound rejects a job write whose company reference is invalid.
	ErrCompanyNotFound = errors.New("company not found")

	// ErrDuplicateApplication is returned when a user applies to the same job twice.
	ErrDuplicateApplication = errors.New("already applied to this job")

	// ErrJobInactive rejects applications to soft-deleted jobs.
	ErrJobInactive = errors.New("job is not active")

	// ErrValidation wraps input that fails field validation.
	ErrValidation = errors.New("validation failed")

	// ErrMalformedMessage marks a queue payload that can never be processed.
	// Consumers log and drop such messages.
	ErrMalformedMessage = errors.New("malformed message")
)

// TransientError wraps a failure of an external dependency (queue, cache,
// relational store) that may succeed if tried again later.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientError for op. A nil err stays nil.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is, or wraps, a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Malformed returns an error wrapping ErrMalformedMessage with a reason.
func Malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedMessage, fmt.Sprintf(format, args...))
}

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}
