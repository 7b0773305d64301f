package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound     = errors.New("resource not found")
	ErrUnknownPrior = fmt.Errorf("%w: prior", ErrNotFound)
	ErrRunNotFound  = fmt.Errorf("%w: calibration run", ErrNotFound)

	// Validation errors
	ErrInvalidInput        = errors.New("invalid input")
	ErrEmptyObservations   = fmt.Errorf("%w: data must not be empty", ErrInvalidInput)
	ErrConstraintViolation = errors.New("constraint violation")

	// Numerical errors raised by distribution primitives
	ErrNumerical = errors.New("numerical failure")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidInput, field, reason)
}

func NewConstraintError(field string, value float64, reason string) error {
	return fmt.Errorf("%w: %s=%v %s", ErrConstraintViolation, field, value, reason)
}

func NewNumericalError(op string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrNumerical, op, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrConstraintViolation)
}

func IsNumericalError(err error) bool {
	return errors.Is(err, ErrNumerical)
}
