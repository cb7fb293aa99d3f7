package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the ledger and the stores wraps exactly one
// of these so callers can classify it with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrReference    = errors.New("reference error")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
)

// Validationf returns an ErrValidation carrying a human readable reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Referencef returns an ErrReference for a missing or foreign entity.
func Referencef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrReference, fmt.Sprintf(format, args...))
}

// Conflictf returns an ErrConflict, typically a uniqueness violation.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// NotFoundf returns an ErrNotFound for an owner-scoped lookup miss.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// InvalidStatef returns an ErrInvalidState for data that should be unreachable.
func InvalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// Kind returns the sentinel wrapped by err, or nil when err is not classified.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrReference, ErrConflict, ErrNotFound, ErrInvalidState} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// RecalculationError reports a failed bulk recalculation together with how far it
// got before failing. Balances are rolled back when this is returned.
type RecalculationError struct {
	AccountsUpdated       int
	TransactionsProcessed int
	Err                   error
}

func (e *RecalculationError) Error() string {
	return fmt.Sprintf("recalculation failed after %d transactions (%d accounts): %v",
		e.TransactionsProcessed, e.AccountsUpdated, e.Err)
}

func (e *RecalculationError) Unwrap() error { return e.Err }
