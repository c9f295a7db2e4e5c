/*
errors.go - Centralized error types for the ledger

ERROR CATEGORIES:
  1. StorageError    - the record store failed (open, read, write)
  2. NotFoundError   - an id is absent from the store
  3. ValidationError - a precondition failed before any write
  4. ParseError      - a stored item blob could not be decoded

PROPAGATION:
  Validation happens before the first store access, so a ValidationError
  never leaves partial writes behind. Storage errors are returned as-is to
  the caller; the core never retries. Aggregations skip records carrying
  a ParseError and keep going.

USAGE:

	if errors.Is(err, ledger.ErrValidation) { ... }
	var overlap *ledger.OverlapError
	if errors.As(err, &overlap) { ... overlap.Conflict.Name ... }
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
	// ErrStorage marks failures of the underlying record store.
	ErrStorage = errors.New("storage failure")

	// ErrNotFound marks a reference to an id the store does not hold.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks a rejected precondition.
	ErrValidation = errors.New("validation failed")

	// ErrParse marks a record whose item snapshot cannot be decoded.
	ErrParse = errors.New("malformed record")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// StorageError wraps a store failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string // "transaction", "session", "product"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError describes a rejected input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// OverlapError is returned when a manual date range collides with another
// session's manual range.
type OverlapError struct {
	Conflict Session
}

func (e *OverlapError) Error() string {
	end := "ongoing"
	if e.Conflict.EndDate != nil {
		end = e.Conflict.EndDate.Format("2006-01-02")
	}
	return fmt.Sprintf("date range overlaps with session %q (%s - %s)",
		e.Conflict.Name, e.Conflict.StartDate.Format("2006-01-02"), end)
}

func (e *OverlapError) Unwrap() error { return ErrValidation }

// ParseError reports an undecodable item blob.
type ParseError struct {
	TransactionID TransactionID
	Err           error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("transaction %d: malformed items: %v", e.TransactionID, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Err} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// storageErr wraps err unless it already carries a domain meaning.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrStorage) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound)
}
