package booking

import (
	"errors"
	"fmt"
)

var (
	ErrMissingID      = errors.New("booking: id is required")
	ErrUnknownStatus  = errors.New("booking: unknown status")
	ErrValidation     = errors.New("booking: validation failed")
	ErrNegativePrice  = errors.New("booking: price must not be negative")
	ErrNegativeAmount = errors.New("booking: amounts must not be negative")
	ErrAddOnName      = errors.New("booking: add-on name is required")
	ErrDuplicateAddOn = errors.New("booking: duplicate add-on")
	ErrDateConflict   = errors.New("booking: dates overlap another reservation of this vehicle")
	ErrNotFound       = errors.New("booking: not found")
)

// ValidationError is a locally recoverable input problem. It is shown to the
// user and never sent to the server.
type ValidationError struct {
	Field  string
	Detail string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg = msg + " (" + e.Detail + ")"
	}
	if e.Field == "" {
		return msg
	}
	return e.Field + ": " + msg
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

// ClassificationError reports a status pair the classifier does not recognize.
type ClassificationError struct {
	BookingID     ID
	Status        Status
	PaymentStatus PaymentStatus
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("booking: unknown status combination %q/%q for %s", e.Status, e.PaymentStatus, e.BookingID)
}

func (e *ClassificationError) Is(target error) bool {
	return target == ErrUnknownStatus
}
