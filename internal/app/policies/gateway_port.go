package policies

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentride/internal/domain/booking"
)

// Scope selects which bookings a bulk fetch returns.
type Scope string

const (
	ScopeRenter Scope = "renter"
	ScopeOwner  Scope = "owner"
	ScopeAll    Scope = "all"
)

var ErrUnknownScope = errors.New("policies: unknown scope")

// Includes reports whether an update visible in scopes belongs in a view of
// scope s. ScopeAll views take everything, and so does an update that
// carries no scopes.
func (s Scope) Includes(scopes []Scope) bool {
	if s == ScopeAll || len(scopes) == 0 {
		return true
	}
	for _, other := range scopes {
		if other == s {
			return true
		}
	}
	return false
}

func ParseScope(raw string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(raw))) {
	case ScopeRenter, "":
		return ScopeRenter, nil
	case ScopeOwner:
		return ScopeOwner, nil
	case ScopeAll:
		return ScopeAll, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownScope, raw)
	}
}

// Edit carries the fields a booking edit may change. Nil fields are left
// untouched by the server.
type Edit struct {
	Location   *string
	StartDate  *time.Time
	EndDate    *time.Time
	PickupTime *string
	DropTime   *string
	AddOns     []booking.AddOn
	// AddOnsSet distinguishes "clear all add-ons" from "leave add-ons alone".
	AddOnsSet bool
}

// ApplyTo returns r with the edit's set fields replaced.
func (e Edit) ApplyTo(r booking.Record) booking.Record {
	out := r.Copy()
	if e.Location != nil {
		out.Location = *e.Location
	}
	if e.StartDate != nil {
		out.StartDate = *e.StartDate
	}
	if e.EndDate != nil {
		out.EndDate = *e.EndDate
	}
	if e.PickupTime != nil {
		out.PickupTime = *e.PickupTime
	}
	if e.DropTime != nil {
		out.DropTime = *e.DropTime
	}
	if e.AddOnsSet {
		out.AddOns = append([]booking.AddOn(nil), e.AddOns...)
	}
	return out
}

func (e Edit) Empty() bool {
	return e.Location == nil && e.StartDate == nil && e.EndDate == nil &&
		e.PickupTime == nil && e.DropTime == nil && !e.AddOnsSet
}

type PaymentInit struct {
	PaymentURL string `json:"paymentUrl"`
	Reference  string `json:"reference,omitempty"`
}

type PaymentVerification struct {
	Reference string                `json:"reference"`
	BookingID booking.ID            `json:"bookingId,omitempty"`
	Status    booking.PaymentStatus `json:"status"`
}

// BookingGateway is the server-side booking API. The core only calls it.
//
//go:generate mockgen -destination=mocks/mock_gateway.go -package=mocks -source=gateway_port.go BookingGateway
type BookingGateway interface {
	FetchBookings(ctx context.Context, scope Scope) ([]booking.Record, error)
	// SaveBookingEdit returns the server's record, which is the new truth.
	SaveBookingEdit(ctx context.Context, id booking.ID, edit Edit) (booking.Record, error)
	// CancelBooking returns nothing; the new status arrives as a push event.
	CancelBooking(ctx context.Context, id booking.ID) error
	InitiatePayment(ctx context.Context, bookingID booking.ID, amountMinor int64, returnURL string) (PaymentInit, error)
	VerifyPayment(ctx context.Context, reference string) (PaymentVerification, error)
}
