package pricing

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"rentride/internal/domain/booking"
	"rentride/internal/domain/shared/daterange"
)

var (
	ErrZeroLengthRental = errors.New("pricing: rental must last at least one day")
	ErrUnknownPolicy    = errors.New("pricing: unknown rental length policy")
)

// RentalLengthPolicy decides what a same-day rental (zero day count) means.
type RentalLengthPolicy string

const (
	// PolicyReject refuses zero-day rentals with a validation error.
	PolicyReject RentalLengthPolicy = "reject"
	// PolicyMinimumOneDay bills a zero-day rental as one day.
	PolicyMinimumOneDay RentalLengthPolicy = "minimum-one-day"
)

func ParsePolicy(raw string) (RentalLengthPolicy, error) {
	switch RentalLengthPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicyMinimumOneDay:
		return PolicyMinimumOneDay, nil
	default:
		return "", ErrUnknownPolicy
	}
}

// DayCount is ceil((end - start) / 1 day) over calendar dates. Same-day yields 0.
func DayCount(start, end time.Time) int {
	return daterange.DaysBetween(start, end)
}

func BaseCost(r booking.Record) decimal.Decimal {
	return r.DailyPrice.Mul(decimal.NewFromInt(int64(DayCount(r.StartDate, r.EndDate))))
}

func AddOnsCost(addOns []booking.AddOn, days int) decimal.Decimal {
	total := decimal.Zero
	d := decimal.NewFromInt(int64(days))
	for _, a := range addOns {
		total = total.Add(a.PricePerDay.Mul(d))
	}
	return total
}

// TotalCost is recomputed from scratch on every call; there is no cached
// partial sum to keep in step with the add-on selection or the dates.
func TotalCost(r booking.Record, addOns []booking.AddOn) decimal.Decimal {
	return BaseCost(r).Add(AddOnsCost(addOns, DayCount(r.StartDate, r.EndDate)))
}

type AddOnLine struct {
	Name        string
	PricePerDay decimal.Decimal
	Amount      decimal.Decimal
}

// Breakdown is a priced quote for a booking and an add-on selection.
type Breakdown struct {
	Days       int
	BilledDays int
	DailyPrice decimal.Decimal
	Base       decimal.Decimal
	AddOns     []AddOnLine
	AddOnTotal decimal.Decimal
	Total      decimal.Decimal
	AmountPaid decimal.Decimal
	// Balance is Total minus what has already been paid; negative means
	// the renter is owed money back.
	Balance decimal.Decimal
}

// Engine applies a RentalLengthPolicy on top of the pure cost functions.
type Engine struct {
	Policy RentalLengthPolicy
}

func (e Engine) policy() RentalLengthPolicy {
	if e.Policy == "" {
		return PolicyReject
	}
	return e.Policy
}

// Quote validates the dates and add-ons, then prices them.
func (e Engine) Quote(r booking.Record, addOns []booking.AddOn) (Breakdown, error) {
	dr, err := daterange.New(r.StartDate, r.EndDate)
	if err != nil {
		return Breakdown{}, &booking.ValidationError{Field: "dates", Err: err}
	}
	if err := booking.ValidateAddOns(addOns); err != nil {
		return Breakdown{}, err
	}
	if r.DailyPrice.IsNegative() {
		return Breakdown{}, &booking.ValidationError{Field: "dailyPrice", Err: booking.ErrNegativePrice}
	}

	days := dr.Days()
	billed := days
	if days == 0 {
		switch e.policy() {
		case PolicyMinimumOneDay:
			billed = 1
		case PolicyReject:
			return Breakdown{}, &booking.ValidationError{Field: "dates", Err: ErrZeroLengthRental}
		default:
			return Breakdown{}, ErrUnknownPolicy
		}
	}

	d := decimal.NewFromInt(int64(billed))
	out := Breakdown{
		Days:       days,
		BilledDays: billed,
		DailyPrice: r.DailyPrice,
		Base:       r.DailyPrice.Mul(d),
		AddOns:     make([]AddOnLine, 0, len(addOns)),
		AmountPaid: r.AmountPaid,
	}
	for _, a := range addOns {
		out.AddOns = append(out.AddOns, AddOnLine{Name: a.Name, PricePerDay: a.PricePerDay, Amount: a.PricePerDay.Mul(d)})
	}
	out.AddOnTotal = AddOnsCost(addOns, billed)
	out.Total = out.Base.Add(out.AddOnTotal)
	out.Balance = out.Total.Sub(r.AmountPaid)
	return out, nil
}

// Settled reports whether paid plus due equals the computed total.
func Settled(r booking.Record) bool {
	return r.AmountPaid.Add(r.AmountDue).Equal(TotalCost(r, r.AddOns))
}
