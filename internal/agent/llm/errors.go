package llm

import (
	"context"
	"errors"
	"fmt"

	"flightagent/pkg/platform/sentinel"
)

// ErrorCategory normalizes upstream failures.
type ErrorCategory string

const (
	// ErrorTimeout indicates the provider took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorTransport indicates the request never got a response
	ErrorTransport ErrorCategory = "transport"

	// ErrorStatus indicates a non-2xx response
	ErrorStatus ErrorCategory = "status"

	// ErrorBadData indicates a 2xx response without usable content
	ErrorBadData ErrorCategory = "bad_data"
)

// UpstreamError is returned for every failed completion. It is never retried.
type UpstreamError struct {
	Category   ErrorCategory
	StatusCode int
	// Body is the decoded JSON error body when possible, else the raw text.
	Body any
	Err  error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("llm upstream [%s]: status %d", e.Category, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("llm upstream [%s]: %v", e.Category, e.Err)
	default:
		return fmt.Sprintf("llm upstream [%s]", e.Category)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is reports bad data as sentinel.ErrMalformed and every other category as
// sentinel.ErrUnavailable.
func (e *UpstreamError) Is(target error) bool {
	if e.Category == ErrorBadData {
		return target == sentinel.ErrMalformed
	}
	return target == sentinel.ErrUnavailable
}

// Details returns the fields safe to show callers.
func (e *UpstreamError) Details() map[string]any {
	details := map[string]any{"category": string(e.Category)}
	if e.StatusCode != 0 {
		details["upstream_status"] = e.StatusCode
	}
	if e.Body != nil {
		details["upstream_body"] = e.Body
	}
	return details
}

// AsUpstreamError extracts an *UpstreamError from err's chain.
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

func transportError(err error) *UpstreamError {
	category := ErrorTransport
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		category = ErrorTimeout
	}
	return &UpstreamError{Category: category, Err: err}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
