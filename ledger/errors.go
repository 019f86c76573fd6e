/*
errors.go - Error taxonomy for the ledger

ERROR CATEGORIES:
  1. ErrStorageUnavailable - the store could not be reached, failed I/O,
     or timed out. Surfaced verbatim, never retried inside the ledger.
  2. ErrInvalidInput - rejected before any store access.

"Already served" is NOT an error. It is a normal outcome carried by
EligibilityResult.Served and IssuanceResult.Rejection, so callers can never
confuse "rejected by policy" with "system failure".

USAGE:
  res, err := l.IssueMeal(ctx, "emp001", ledger.MealMorning, 1, now)
  switch {
  case ledger.IsInvalidInput(err):   // 400
  case ledger.IsUnavailable(err):    // 503
  case err != nil:                   // 500
  case !res.Issued():                // informational: res.Rejection
  }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrStorageUnavailable covers connectivity, I/O and timeout failures.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// StorageError wraps a backend failure with the store operation that hit it.
// It matches both ErrStorageUnavailable and the underlying cause.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage unavailable: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.Err}
}

// Unavailable classifies err as a storage failure of op.
// Already-classified errors are returned unchanged.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrInvalidInput) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// ValidationError describes which input was rejected.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
