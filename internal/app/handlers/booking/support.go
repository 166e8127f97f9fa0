package booking

import (
	"errors"
	"fmt"
	"strings"

	"rentride/internal/app/reconcile"
	"rentride/internal/app/session"
	domainbooking "rentride/internal/domain/booking"
)

var (
	// ErrRetry is what the user sees for any gateway failure, including a
	// server-side conflict the local pre-check could not catch.
	ErrRetry = errors.New("could not save, please retry")

	ErrEmptyEdit        = errors.New("booking: edit changes nothing")
	ErrAlreadyCancelled = errors.New("booking: already cancelled")
	ErrNotCancellable   = errors.New("booking: completed bookings cannot be cancelled")
	ErrNotEditable      = errors.New("booking: completed bookings cannot be edited")
	ErrNothingDue       = errors.New("booking: nothing left to pay")
	ErrMissingReference = errors.New("booking: payment reference is required")
)

// SessionLookup resolves the screen session a command was issued from.
type SessionLookup interface {
	Get(id session.ID) (*session.Session, error)
}

func gatewayFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrRetry, err)
}

func requireBookingID(id domainbooking.ID) error {
	if strings.TrimSpace(string(id)) == "" {
		return &domainbooking.ValidationError{Field: "bookingId", Err: domainbooking.ErrMissingID}
	}
	return nil
}

// lookup returns the session's store and the booking's current entry.
func lookup(sessions SessionLookup, sessionID session.ID, id domainbooking.ID) (*reconcile.Store, reconcile.Entry, error) {
	sess, err := sessions.Get(sessionID)
	if err != nil {
		return nil, reconcile.Entry{}, err
	}
	store := sess.Store()
	entry, ok := store.Get(id)
	if !ok {
		return nil, reconcile.Entry{}, fmt.Errorf("%w: %s", domainbooking.ErrNotFound, id)
	}
	return store, entry, nil
}
