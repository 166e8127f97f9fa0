package booking

import (
	"context"
	"errors"

	"rentride/internal/app/policies"
	"rentride/internal/app/reconcile"
	"rentride/internal/app/session"
	"rentride/internal/domain/availability"
	domainbooking "rentride/internal/domain/booking"
	"rentride/internal/domain/pricing"
)

const (
	quoteEditKey = "booking.quote_edit"
	editKey      = "booking.edit"
)

// QuoteBookingEditCommand previews an edit: validation, conflict pre-check
// and the recomputed price, without calling the gateway.
type QuoteBookingEditCommand struct {
	SessionID session.ID
	BookingID domainbooking.ID
	Edit      policies.Edit
}

func (QuoteBookingEditCommand) Key() string { return quoteEditKey }

func (c QuoteBookingEditCommand) Validate() error { return requireBookingID(c.BookingID) }

type EditBookingCommand struct {
	SessionID session.ID
	BookingID domainbooking.ID
	Edit      policies.Edit
}

func (EditBookingCommand) Key() string { return editKey }

func (c EditBookingCommand) Validate() error { return requireBookingID(c.BookingID) }

type EditQuote struct {
	Preview   domainbooking.Record
	Breakdown pricing.Breakdown
}

type EditBookingResult struct {
	Booking domainbooking.Record
	Bucket  domainbooking.Bucket
	Quote   pricing.Breakdown
}

// editPlanner runs every local check an edit must pass before it may be sent.
type editPlanner struct {
	Sessions SessionLookup
	Pricing  pricing.Engine
}

func (p editPlanner) plan(sessionID session.ID, id domainbooking.ID, edit policies.Edit) (*reconcile.Store, EditQuote, error) {
	if edit.Empty() {
		return nil, EditQuote{}, &domainbooking.ValidationError{Field: "edit", Err: ErrEmptyEdit}
	}
	store, entry, err := lookup(p.Sessions, sessionID, id)
	if err != nil {
		return nil, EditQuote{}, err
	}
	if !entry.Bucket.Blocking() {
		return nil, EditQuote{}, &domainbooking.ValidationError{Field: "status", Err: ErrAlreadyCancelled}
	}
	if entry.Bucket == domainbooking.BucketCompleted {
		return nil, EditQuote{}, &domainbooking.ValidationError{Field: "status", Err: ErrNotEditable}
	}
	next := edit.ApplyTo(entry.Record)
	if err := next.Validate(); err != nil {
		return nil, EditQuote{}, err
	}
	if err := availability.Check(next, reconcile.Siblings(store.Entries())); err != nil {
		return nil, EditQuote{}, err
	}
	quote, err := p.Pricing.Quote(next, next.AddOns)
	if err != nil {
		return nil, EditQuote{}, err
	}
	return store, EditQuote{Preview: next, Breakdown: quote}, nil
}

type QuoteBookingEditHandler struct {
	editPlanner
}

func NewQuoteBookingEditHandler(sessions SessionLookup, engine pricing.Engine) *QuoteBookingEditHandler {
	return &QuoteBookingEditHandler{editPlanner{Sessions: sessions, Pricing: engine}}
}

func (h *QuoteBookingEditHandler) Handle(ctx context.Context, cmd QuoteBookingEditCommand) (EditQuote, error) {
	_, quote, err := h.plan(cmd.SessionID, cmd.BookingID, cmd.Edit)
	return quote, err
}

type EditBookingHandler struct {
	editPlanner
	Gateway policies.BookingGateway
}

func NewEditBookingHandler(sessions SessionLookup, gateway policies.BookingGateway, engine pricing.Engine) *EditBookingHandler {
	return &EditBookingHandler{editPlanner: editPlanner{Sessions: sessions, Pricing: engine}, Gateway: gateway}
}

// Handle saves the edit only after the local checks pass. The server's
// response is the new truth and goes through the store like a pushed update.
func (h *EditBookingHandler) Handle(ctx context.Context, cmd EditBookingCommand) (EditBookingResult, error) {
	store, quote, err := h.plan(cmd.SessionID, cmd.BookingID, cmd.Edit)
	if err != nil {
		return EditBookingResult{}, err
	}
	saved, err := h.Gateway.SaveBookingEdit(ctx, cmd.BookingID, cmd.Edit)
	if err != nil {
		return EditBookingResult{}, gatewayFailure("save booking", err)
	}
	// a newer pushed version or an unknown status leaves the store's record in place
	if err := store.Apply(saved); err != nil &&
		!errors.Is(err, reconcile.ErrStaleUpdate) && !errors.Is(err, domainbooking.ErrUnknownStatus) {
		return EditBookingResult{}, err
	}
	entry, ok := store.Get(saved.ID)
	if !ok {
		return EditBookingResult{}, domainbooking.ErrNotFound
	}
	return EditBookingResult{Booking: entry.Record, Bucket: entry.Bucket, Quote: quote.Breakdown}, nil
}
