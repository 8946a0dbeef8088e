package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Failure reasons reported by Error.
const (
	ReasonUnauthorized  = "unauthorized"
	ReasonRateLimited   = "rate-limited"
	ReasonUpstreamError = "upstream-error"
	ReasonTimeout       = "timeout"
	ReasonCanceled      = "canceled"
)

// Error describes a failed completion. Messages never carry credentials.
type Error struct {
	Provider   string
	Reason     string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *Error) Error() string {
	msg := "llm " + e.Provider + ": " + e.Reason
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// FromStatus classifies an HTTP error status returned by a provider.
// Authentication failures and other 4xx are final; 429 and 5xx are retried.
func FromStatus(provider string, status int, err error) *Error {
	e := &Error{Provider: provider, StatusCode: status, Err: err}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Reason = ReasonUnauthorized
	case status == http.StatusTooManyRequests:
		e.Reason = ReasonRateLimited
		e.Retryable = true
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		e.Reason = ReasonTimeout
		e.Retryable = true
	case status >= 500:
		e.Reason = ReasonUpstreamError
		e.Retryable = true
	default:
		e.Reason = ReasonUpstreamError
	}
	return e
}

// Classify wraps a transport-level error that carries no HTTP status.
func Classify(provider string, err error) *Error {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}
	switch {
	case errors.Is(err, context.Canceled):
		return &Error{Provider: provider, Reason: ReasonCanceled, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Provider: provider, Reason: ReasonTimeout, Retryable: true, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Provider: provider, Reason: ReasonTimeout, Retryable: true, Err: err}
	}
	return &Error{Provider: provider, Reason: ReasonUpstreamError, Retryable: true, Err: err}
}

// IsReason reports whether err is an *Error with the given reason.
func IsReason(err error, reason string) bool {
	var llmErr *Error
	return errors.As(err, &llmErr) && llmErr.Reason == reason
}
