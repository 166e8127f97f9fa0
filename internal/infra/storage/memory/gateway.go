package memory

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rentride/internal/app/policies"
	"rentride/internal/domain/availability"
	"rentride/internal/domain/booking"
	"rentride/internal/domain/pricing"
	"rentride/internal/domain/shared/money"
)

var (
	ErrBookingNotFound  = errors.New("memory: booking not found")
	ErrPaymentNotFound  = errors.New("memory: payment reference not found")
	ErrBookingCancelled = errors.New("memory: booking already cancelled")
	ErrNotRefundable    = errors.New("memory: only cancelled bookings with a payment can be refunded")
)

// Publisher receives every record the gateway changes, with the scopes
// whose fetch would return it.
type Publisher interface {
	Publish(eventName string, r booking.Record, scopes ...policies.Scope)
}

// Fixture seeds the gateway. Scopes lists the fetch scopes the booking
// belongs to; ScopeAll always sees every booking.
type Fixture struct {
	Record booking.Record
	Scopes []policies.Scope
}

type storedBooking struct {
	record booking.Record
	scopes map[policies.Scope]struct{}
}

// audience lists the booking's scopes in a stable order. A booking seeded
// without scopes is only fetched under ScopeAll, so that is all it reports.
func (b *storedBooking) audience() []policies.Scope {
	if len(b.scopes) == 0 {
		return []policies.Scope{policies.ScopeAll}
	}
	out := make([]policies.Scope, 0, len(b.scopes))
	for s := range b.scopes {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type pendingPayment struct {
	bookingID booking.ID
	amount    decimal.Decimal
}

// BookingGateway is an in-memory server used for local runs and tests. It
// revalidates conflicts on save the way the real server does, and publishes
// changes instead of returning them where the real API does so.
type BookingGateway struct {
	mu        sync.Mutex
	bookings  map[booking.ID]*storedBooking
	payments  map[string]pendingPayment
	publisher Publisher
	exponent  int32
	now       func() time.Time
	newRef    func() string
}

func NewBookingGateway(publisher Publisher, fixtures ...Fixture) *BookingGateway {
	g := &BookingGateway{
		bookings:  make(map[booking.ID]*storedBooking, len(fixtures)),
		payments:  make(map[string]pendingPayment),
		publisher: publisher,
		exponent:  money.DefaultExponent,
		now:       func() time.Time { return time.Now().UTC() },
		newRef:    uuid.NewString,
	}
	for _, f := range fixtures {
		g.Seed(f)
	}
	return g
}

// Seed inserts or replaces a booking without publishing.
func (g *BookingGateway) Seed(f Fixture) {
	scopes := make(map[policies.Scope]struct{}, len(f.Scopes))
	for _, s := range f.Scopes {
		scopes[s] = struct{}{}
	}
	g.mu.Lock()
	g.bookings[f.Record.ID] = &storedBooking{record: f.Record.Copy(), scopes: scopes}
	g.mu.Unlock()
}

func (g *BookingGateway) FetchBookings(ctx context.Context, scope policies.Scope) ([]booking.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, &policies.TransportError{Op: "fetch bookings", Err: err}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]booking.Record, 0, len(g.bookings))
	for _, b := range g.bookings {
		if _, ok := b.scopes[scope]; ok || scope == policies.ScopeAll {
			out = append(out, b.record.Copy())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g *BookingGateway) SaveBookingEdit(ctx context.Context, id booking.ID, edit policies.Edit) (booking.Record, error) {
	if err := ctx.Err(); err != nil {
		return booking.Record{}, &policies.TransportError{Op: "save booking", Err: err}
	}
	g.mu.Lock()
	stored, ok := g.bookings[id]
	if !ok {
		g.mu.Unlock()
		return booking.Record{}, ErrBookingNotFound
	}
	next := edit.ApplyTo(stored.record)
	if err := next.Validate(); err != nil {
		g.mu.Unlock()
		return booking.Record{}, err
	}
	if err := availability.Check(next, g.siblingsLocked()); err != nil {
		g.mu.Unlock()
		return booking.Record{}, &policies.TransportError{Op: "save booking", StatusCode: 409, Err: err}
	}
	total := pricing.TotalCost(next, next.AddOns)
	next.AmountDue = decimal.Max(total.Sub(next.AmountPaid), decimal.Zero)
	g.touchLocked(&next)
	stored.record = next
	g.mu.Unlock()

	g.publish(next, stored.audience())
	return next.Copy(), nil
}

func (g *BookingGateway) CancelBooking(ctx context.Context, id booking.ID) error {
	if err := ctx.Err(); err != nil {
		return &policies.TransportError{Op: "cancel booking", Err: err}
	}
	g.mu.Lock()
	stored, ok := g.bookings[id]
	if !ok {
		g.mu.Unlock()
		return ErrBookingNotFound
	}
	if stored.record.Status == booking.StatusCancelled {
		g.mu.Unlock()
		return ErrBookingCancelled
	}
	next := stored.record.Copy()
	next.Status = booking.StatusCancelled
	g.touchLocked(&next)
	stored.record = next
	g.mu.Unlock()

	g.publish(next, stored.audience())
	return nil
}

// Refund settles a cancelled booking's outstanding refund.
func (g *BookingGateway) Refund(ctx context.Context, id booking.ID) error {
	g.mu.Lock()
	stored, ok := g.bookings[id]
	if !ok {
		g.mu.Unlock()
		return ErrBookingNotFound
	}
	if stored.record.Status != booking.StatusCancelled ||
		(stored.record.PaymentStatus != booking.PaymentPartial && stored.record.PaymentStatus != booking.PaymentFull) {
		g.mu.Unlock()
		return ErrNotRefundable
	}
	next := stored.record.Copy()
	next.PaymentStatus = booking.PaymentRefunded
	g.touchLocked(&next)
	stored.record = next
	g.mu.Unlock()

	g.publish(next, stored.audience())
	return nil
}

func (g *BookingGateway) InitiatePayment(ctx context.Context, bookingID booking.ID, amountMinor int64, returnURL string) (policies.PaymentInit, error) {
	if err := ctx.Err(); err != nil {
		return policies.PaymentInit{}, &policies.TransportError{Op: "initiate payment", Err: err}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	stored, ok := g.bookings[bookingID]
	if !ok {
		return policies.PaymentInit{}, ErrBookingNotFound
	}
	amount, err := money.FromMinorUnits(amountMinor, g.exponent, currencyOr(stored.record.Currency))
	if err != nil {
		return policies.PaymentInit{}, err
	}
	ref := g.newRef()
	g.payments[ref] = pendingPayment{bookingID: bookingID, amount: amount.Amount}

	redirect, err := url.Parse(returnURL)
	if err != nil {
		return policies.PaymentInit{}, fmt.Errorf("memory: return url: %w", err)
	}
	q := redirect.Query()
	q.Set("ref", ref)
	redirect.RawQuery = q.Encode()
	return policies.PaymentInit{PaymentURL: redirect.String(), Reference: ref}, nil
}

// VerifyPayment captures the pending payment and publishes the booking with
// its new payment status.
func (g *BookingGateway) VerifyPayment(ctx context.Context, reference string) (policies.PaymentVerification, error) {
	if err := ctx.Err(); err != nil {
		return policies.PaymentVerification{}, &policies.TransportError{Op: "verify payment", Err: err}
	}
	g.mu.Lock()
	p, ok := g.payments[reference]
	if !ok {
		g.mu.Unlock()
		return policies.PaymentVerification{}, ErrPaymentNotFound
	}
	delete(g.payments, reference)
	stored, ok := g.bookings[p.bookingID]
	if !ok {
		g.mu.Unlock()
		return policies.PaymentVerification{}, ErrBookingNotFound
	}
	next := stored.record.Copy()
	paid := decimal.Min(p.amount, next.AmountDue)
	next.AmountPaid = next.AmountPaid.Add(paid)
	next.AmountDue = next.AmountDue.Sub(paid)
	switch {
	case next.AmountDue.IsZero():
		next.PaymentStatus = booking.PaymentFull
	case next.AmountPaid.IsPositive():
		next.PaymentStatus = booking.PaymentPartial
	}
	g.touchLocked(&next)
	stored.record = next
	g.mu.Unlock()

	g.publish(next, stored.audience())
	return policies.PaymentVerification{Reference: reference, BookingID: next.ID, Status: next.PaymentStatus}, nil
}

func (g *BookingGateway) siblingsLocked() []availability.Sibling {
	out := make([]availability.Sibling, 0, len(g.bookings))
	for _, b := range g.bookings {
		bucket, err := booking.Classify(b.record)
		if err != nil {
			continue
		}
		out = append(out, availability.Sibling{ID: b.record.ID, AssetID: b.record.AssetID, Range: b.record.Range(), Bucket: bucket})
	}
	return out
}

func (g *BookingGateway) touchLocked(r *booking.Record) {
	r.Version++
	r.UpdatedAt = g.now()
}

func (g *BookingGateway) publish(r booking.Record, scopes []policies.Scope) {
	if g.publisher != nil {
		g.publisher.Publish(booking.EventUpdated, r, scopes...)
	}
}

func currencyOr(c string) string {
	if c == "" {
		return "USD"
	}
	return c
}

var _ policies.BookingGateway = (*BookingGateway)(nil)
