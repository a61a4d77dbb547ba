package contract

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across packages. Callers match them with errors.Is.
var (
	ErrModelNotFound      = errors.New("quality model not found")
	ErrUnsupportedBackend = errors.New("unsupported metrics backend")
	ErrEmptyAssessment    = errors.New("empty assessment")
	ErrMetricNotFound     = errors.New("metric not found")
	ErrMetricNoData       = errors.New("metric has no data source")
)

// StoreError reports a failed request against the metrics or score store.
type StoreError struct {
	Op     string // search, bulk, reset, alias, ...
	Index  string
	Status int // HTTP status, 0 when the request never completed
	Reason string
	Err    error
}

// Error implements error.
func (e *StoreError) Error() string {
	msg := fmt.Sprintf("store %s failed", e.Op)
	if e.Index != "" {
		msg += fmt.Sprintf(" on %s", e.Index)
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying transport error, if any.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err wraps a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
