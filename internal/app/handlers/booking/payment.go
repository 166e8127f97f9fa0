package booking

import (
	"context"
	"strings"

	"rentride/internal/app/policies"
	"rentride/internal/app/session"
	domainbooking "rentride/internal/domain/booking"
	"rentride/internal/domain/shared/money"
)

const (
	initiatePaymentKey = "booking.initiate_payment"
	verifyPaymentKey   = "booking.verify_payment"
)

// InitiatePaymentCommand starts a payment for the booking's outstanding
// amount. Resubmitting with the same IdempotencyKeyV returns the first
// payment URL instead of opening a second payment.
type InitiatePaymentCommand struct {
	SessionID       session.ID
	BookingID       domainbooking.ID
	ReturnURL       string
	IdempotencyKeyV string
}

func (InitiatePaymentCommand) Key() string { return initiatePaymentKey }

// IdempotencyKey scopes the client key to the booking, so a key reused for
// another booking opens a payment of its own.
func (c InitiatePaymentCommand) IdempotencyKey() string {
	if c.IdempotencyKeyV == "" {
		return ""
	}
	return string(c.BookingID) + ":" + c.IdempotencyKeyV
}

func (InitiatePaymentCommand) ResultPrototype() any { return &PaymentResult{} }

func (c InitiatePaymentCommand) Validate() error { return requireBookingID(c.BookingID) }

type PaymentResult struct {
	BookingID   domainbooking.ID `json:"bookingId"`
	PaymentURL  string           `json:"paymentUrl"`
	Reference   string           `json:"reference,omitempty"`
	AmountMinor int64            `json:"amountMinor"`
	Currency    string           `json:"currency"`
}

type InitiatePaymentHandler struct {
	Sessions SessionLookup
	Gateway  policies.BookingGateway
	// Currency is used when the booking carries none.
	Currency  string
	Exponent  int32
	ReturnURL string
}

func (h *InitiatePaymentHandler) Handle(ctx context.Context, cmd InitiatePaymentCommand) (PaymentResult, error) {
	_, entry, err := lookup(h.Sessions, cmd.SessionID, cmd.BookingID)
	if err != nil {
		return PaymentResult{}, err
	}
	r := entry.Record
	if !entry.Bucket.Blocking() {
		return PaymentResult{}, &domainbooking.ValidationError{Field: "status", Err: ErrAlreadyCancelled}
	}
	if !r.AmountDue.IsPositive() {
		return PaymentResult{}, &domainbooking.ValidationError{Field: "amountDue", Err: ErrNothingDue}
	}

	currency := r.Currency
	if currency == "" {
		currency = h.Currency
	}
	due, err := money.New(r.AmountDue, currency)
	if err != nil {
		return PaymentResult{}, &domainbooking.ValidationError{Field: "currency", Err: err}
	}
	minor, err := due.MinorUnits(h.Exponent)
	if err != nil {
		return PaymentResult{}, &domainbooking.ValidationError{Field: "amountDue", Err: err}
	}

	returnURL := cmd.ReturnURL
	if returnURL == "" {
		returnURL = h.ReturnURL
	}
	init, err := h.Gateway.InitiatePayment(ctx, r.ID, minor, returnURL)
	if err != nil {
		return PaymentResult{}, gatewayFailure("initiate payment", err)
	}
	return PaymentResult{
		BookingID:   r.ID,
		PaymentURL:  init.PaymentURL,
		Reference:   init.Reference,
		AmountMinor: minor,
		Currency:    due.Currency,
	}, nil
}

// VerifyPaymentCommand confirms a payment after the provider redirects back.
// The booking's new payment status reaches the view as a pushed update.
type VerifyPaymentCommand struct {
	Reference string
}

func (VerifyPaymentCommand) Key() string { return verifyPaymentKey }

func (c VerifyPaymentCommand) Validate() error {
	if strings.TrimSpace(c.Reference) == "" {
		return &domainbooking.ValidationError{Field: "reference", Err: ErrMissingReference}
	}
	return nil
}

type VerifyPaymentHandler struct {
	Gateway policies.BookingGateway
}

func (h *VerifyPaymentHandler) Handle(ctx context.Context, cmd VerifyPaymentCommand) (policies.PaymentVerification, error) {
	v, err := h.Gateway.VerifyPayment(ctx, cmd.Reference)
	if err != nil {
		return policies.PaymentVerification{}, gatewayFailure("verify payment", err)
	}
	return v, nil
}
