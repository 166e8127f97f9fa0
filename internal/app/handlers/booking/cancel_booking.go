package booking

import (
	"context"

	"rentride/internal/app/policies"
	"rentride/internal/app/session"
	domainbooking "rentride/internal/domain/booking"
)

const cancelKey = "booking.cancel"

type CancelBookingCommand struct {
	SessionID session.ID
	BookingID domainbooking.ID
}

func (CancelBookingCommand) Key() string { return cancelKey }

func (c CancelBookingCommand) Validate() error { return requireBookingID(c.BookingID) }

// CancelBookingResult acknowledges the request. The Cancelled status itself
// arrives later as a pushed update.
type CancelBookingResult struct {
	BookingID domainbooking.ID
	Requested bool
}

type CancelBookingHandler struct {
	Sessions SessionLookup
	Gateway  policies.BookingGateway
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (CancelBookingResult, error) {
	_, entry, err := lookup(h.Sessions, cmd.SessionID, cmd.BookingID)
	if err != nil {
		return CancelBookingResult{}, err
	}
	switch {
	case entry.Record.Status == domainbooking.StatusCancelled:
		return CancelBookingResult{}, &domainbooking.ValidationError{Field: "status", Err: ErrAlreadyCancelled}
	case entry.Bucket == domainbooking.BucketCompleted:
		return CancelBookingResult{}, &domainbooking.ValidationError{Field: "status", Err: ErrNotCancellable}
	}
	if err := h.Gateway.CancelBooking(ctx, cmd.BookingID); err != nil {
		return CancelBookingResult{}, gatewayFailure("cancel booking", err)
	}
	return CancelBookingResult{BookingID: cmd.BookingID, Requested: true}, nil
}
