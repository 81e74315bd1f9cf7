package models

import (
	"errors"
	"fmt"
)

// ErrConflict is returned when a booking loses the race for a slot: the
// interval overlaps an existing non-cancelled booking at commit time.
// Callers should re-fetch availability and let the user pick again.
var ErrConflict = errors.New("slot no longer available")

// ValidationError reports a rejected write, naming the offending field.
// Never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for a field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports a missing Service, Staff, or Booking.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.Entity, e.ID)
}

// InvalidTransitionError reports an illegal status change. Always a
// programmer or client bug, never retried.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition: %s -> %s", e.Entity, e.From, e.To)
}

// HasDependentsError reports a delete blocked by referencing bookings.
// Deactivation is the supported alternative.
type HasDependentsError struct {
	Entity string
	ID     int64
}

func (e *HasDependentsError) Error() string {
	return fmt.Sprintf("%s %d has non-cancelled bookings and cannot be deleted", e.Entity, e.ID)
}

// PaymentDeclinedError is a user-correctable decline from the gateway,
// surfaced verbatim to the client.
type PaymentDeclinedError struct {
	Reason string
}

func (e *PaymentDeclinedError) Error() string {
	return fmt.Sprintf("payment declined: %s", e.Reason)
}

// PaymentGatewayError is a transient gateway failure, eligible for one
// retry with backoff before being surfaced.
type PaymentGatewayError struct {
	Err error
}

func (e *PaymentGatewayError) Error() string {
	return fmt.Sprintf("payment gateway error: %v", e.Err)
}

func (e *PaymentGatewayError) Unwrap() error {
	return e.Err
}
