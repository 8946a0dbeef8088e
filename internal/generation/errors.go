package generation

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when the request carries no identity.
var ErrUnauthorized = errors.New("unauthorized")

const (
	ReasonInsufficientContent = "insufficient-content"
	ReasonMalformedJSON       = "malformed-json"
	ReasonSchemaViolation     = "schema-violation"
)

// RequestValidationError reports a bad generate request.
type RequestValidationError struct {
	Detail string
}

func (e *RequestValidationError) Error() string {
	return "invalid request: " + e.Detail
}

// AggregationError reports that the batch did not yield usable text.
type AggregationError struct {
	Reason string
	Detail string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation failed (%s): %s", e.Reason, e.Detail)
}

// ValidationError reports model output that failed parsing or shape checks.
type ValidationError struct {
	Reason string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid model output (%s): %s", e.Reason, e.Detail)
}

// PersistenceError wraps a failure to store the assembled test.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return "persist test: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }
