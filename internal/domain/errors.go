package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrRetriesExhausted = errors.New("retry budget exhausted")
	ErrDuplicateTarget  = errors.New("duplicate target name")
	ErrNoTargets        = errors.New("no targets configured")
)

// ConnectivityError marks a transport-level failure: the network path
// itself is down (connection reset, refused, truncated read). Transfers
// treat this class as infinitely retryable, gated on the connectivity
// monitor, and never count it against the retry budget.
type ConnectivityError struct {
	Op  string
	Err error
}

// Error returns the error message
func (e *ConnectivityError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("connectivity lost during %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("connectivity lost: %v", e.Err)
}

// Unwrap returns the underlying error
func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// NewConnectivityError wraps err as a connectivity-loss failure.
func NewConnectivityError(op string, err error) *ConnectivityError {
	return &ConnectivityError{Op: op, Err: err}
}

// IsConnectivityLoss reports whether err belongs to the
// infinite-retry connectivity class.
func IsConnectivityLoss(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}

// RequestError marks an application-level failure from a reachable
// server or stack: HTTP error status, timeout, DNS failure. This class
// consumes the bounded retry budget.
type RequestError struct {
	Op     string
	Status int
	Err    error
}

// Error returns the error message
func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("request failed during %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("request failed during %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("request failed: %v", e.Err)
}

// Unwrap returns the underlying error
func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError wraps err as a bounded-retry request failure.
func NewRequestError(op string, status int, err error) *RequestError {
	return &RequestError{Op: op, Status: status, Err: err}
}

// IsRequestFailure reports whether err belongs to the bounded-retry
// request class.
func IsRequestFailure(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}
