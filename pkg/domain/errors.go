package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks malformed or out-of-range inputs rejected before
	// a simulation starts.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNonAmortizing marks a payment that can never reduce the principal.
	ErrNonAmortizing = errors.New("non-amortizing loan")
)

// InputError names the offending field of a rejected input.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// Invalid builds an InputError for field with a formatted reason.
func Invalid(field, format string, args ...any) error {
	return &InputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NonAmortizingError reports a payment that does not exceed the first
// month's interest charge.
type NonAmortizingError struct {
	Payment       float64
	FirstInterest float64
}

func (e *NonAmortizingError) Error() string {
	return fmt.Sprintf("non-amortizing loan: payment %.2f does not exceed first month interest %.2f",
		e.Payment, e.FirstInterest)
}

func (e *NonAmortizingError) Unwrap() error {
	return ErrNonAmortizing
}
