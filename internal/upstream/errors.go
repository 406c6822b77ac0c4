package upstream

import (
	"errors"
	"fmt"
)

// Upstream errors.
var (
	// ErrUpstreamCallFailed is returned when a call did not succeed within
	// the retry bound. The concrete error is a *CallError.
	ErrUpstreamCallFailed = errors.New("upstream call failed")

	// ErrInvalidBaseURL is returned by NewClient for an unusable base URL.
	ErrInvalidBaseURL = errors.New("invalid upstream base URL")

	// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
	// Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrUnexpectedPayload is returned by the decoders when a successful
	// response does not have the expected shape.
	ErrUnexpectedPayload = errors.New("unexpected upstream payload")
)

// CallError describes a call that exhausted its retry bound.
type CallError struct {
	// Endpoint is the endpoint path that was called.
	Endpoint string
	// Attempts is the number of attempts made.
	Attempts int
	// Status is the HTTP status of the last attempt, 0 for transport errors.
	Status int
	// Body is the (possibly truncated) body of the last response.
	Body string
	// Err is the transport error of the last attempt, if any.
	Err error
}

// Error implements the error interface.
func (e *CallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("call to %s failed after %d attempts: %v", e.Endpoint, e.Attempts, e.Err)
	}
	return fmt.Sprintf("call to %s failed after %d attempts with status %d: %s", e.Endpoint, e.Attempts, e.Status, e.Body)
}

// Unwrap returns the last transport error.
func (e *CallError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrUpstreamCallFailed.
func (e *CallError) Is(target error) bool {
	return target == ErrUpstreamCallFailed
}
