package v1

import (
	"errors"
	"fmt"
)

// StructuralError marks a pair as provably invalid: a referenced ledger row
// is gone or in a state the settlement cannot act on. The cycle drops the
// pair instead of retrying.
type StructuralError struct {
	Reason string
	Err    error
}

func (e *StructuralError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("structural match failure: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("structural match failure: %s", e.Reason)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

// NewStructuralError tags an error as non-retryable at its point of origin.
func NewStructuralError(reason string, err error) *StructuralError {
	return &StructuralError{Reason: reason, Err: err}
}

// TransientError marks a failure as infrastructure-caused and worth a retry:
// the pair goes back into the book unchanged.
type TransientError struct {
	Reason string
	Err    error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transient match failure: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("transient match failure: %s", e.Reason)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError tags an error as retryable at its point of origin.
func NewTransientError(reason string, err error) *TransientError {
	return &TransientError{Reason: reason, Err: err}
}

// IsStructural reports whether err carries a structural tag.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// IsTransient reports whether err carries a transient tag.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
