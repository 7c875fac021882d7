// Package apperr defines the error kinds shared between the storage, cache
// and service layers. Handlers map these to HTTP status codes; backend error
// text never travels past this package's wrappers into responses.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidID reports a malformed entity identity. Detected before any
	// backend round-trip.
	ErrInvalidID = errors.New("invalid identity")

	// ErrNotFound reports that no document matched.
	ErrNotFound = errors.New("not found")

	// ErrConflict reports a state conflict, e.g. duplicate enrollment.
	ErrConflict = errors.New("conflict")
)

// ValidationError reports a missing or empty required field on a write.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q is required", e.Field)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// UnavailableError reports that a startup dependency could not be reached
// after exhausting its retry budget. Fatal to process startup.
type UnavailableError struct {
	Dep string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("dependency %s unavailable: %v", e.Dep, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// StoreError wraps an operational failure of the document store, tagged with
// the attempted operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("entity store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// CacheError wraps an operational failure of the cache store. Callers decide
// whether to degrade or fail; the cache is never the system of record.
type CacheError struct {
	Op  string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }
