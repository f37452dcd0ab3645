package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Authentication
	ErrUnauthenticated = errors.New("user not authenticated")

	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrGoalNotFound    = fmt.Errorf("%w: goal", ErrNotFound)
	ErrTaskNotFound    = fmt.Errorf("%w: task", ErrNotFound)
	ErrProviderUnknown = fmt.Errorf("%w: integration provider", ErrNotFound)

	// Validation errors
	ErrInvalidRange     = errors.New("invalid date range")
	ErrUnknownSection   = errors.New("unknown insight section")
	ErrInsufficientData = errors.New("insufficient data for analysis")

	// Backend errors
	ErrProcedureUnavailable = errors.New("stored procedure unavailable")
	ErrUnknownTable         = errors.New("table not allowed")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

func NewProcedureUnavailableError(name string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrProcedureUnavailable, name)
	}
	return fmt.Errorf("%w: %s: %v", ErrProcedureUnavailable, name, err)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

func IsProcedureUnavailable(err error) bool {
	return errors.Is(err, ErrProcedureUnavailable)
}
