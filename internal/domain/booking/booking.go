package booking

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"rentride/internal/domain/shared/daterange"
)

type ID string

type AssetID string

type Status string

const (
	StatusPending   Status = "Pending"
	StatusAccepted  Status = "Accepted"
	StatusConfirmed Status = "Confirmed"
	StatusActive    Status = "Active"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// Statuses lists every booking status the server reports.
var Statuses = []Status{StatusPending, StatusAccepted, StatusConfirmed, StatusActive, StatusCompleted, StatusCancelled}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "Pending"
	PaymentPartial  PaymentStatus = "Partial"
	PaymentFull     PaymentStatus = "Full"
	PaymentRefunded PaymentStatus = "Refunded"
)

// PaymentStatuses lists every payment status the server reports.
var PaymentStatuses = []PaymentStatus{PaymentPending, PaymentPartial, PaymentFull, PaymentRefunded}

func (s Status) Known() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

func (p PaymentStatus) Known() bool {
	for _, known := range PaymentStatuses {
		if p == known {
			return true
		}
	}
	return false
}

// AddOn is an optional extra priced per rental day.
type AddOn struct {
	Name        string
	PricePerDay decimal.Decimal
}

// Record is a booking as reported by the server.
// Version is optional; zero means the transport sent none.
type Record struct {
	ID            ID
	AssetID       AssetID
	Status        Status
	PaymentStatus PaymentStatus
	StartDate     time.Time
	EndDate       time.Time
	DailyPrice    decimal.Decimal
	AddOns        []AddOn
	AmountPaid    decimal.Decimal
	AmountDue     decimal.Decimal
	Currency      string
	Location      string
	PickupTime    string
	DropTime      string
	Version       int64
	UpdatedAt     time.Time
}

// Range returns the rental period as an inclusive calendar range.
func (r Record) Range() daterange.DateRange {
	return daterange.DateRange{Start: daterange.Normalize(r.StartDate), End: daterange.Normalize(r.EndDate)}
}

// Copy returns a deep copy so snapshots never share the add-on slice.
func (r Record) Copy() Record {
	clone := r
	clone.AddOns = append([]AddOn(nil), r.AddOns...)
	return clone
}

// Validate checks the record-level invariants. It does not look at the
// status pair; that is Classify's job.
func (r Record) Validate() error {
	if strings.TrimSpace(string(r.ID)) == "" {
		return ErrMissingID
	}
	if err := r.Range().Validate(); err != nil {
		return &ValidationError{Field: "dates", Err: err}
	}
	if r.DailyPrice.IsNegative() {
		return &ValidationError{Field: "dailyPrice", Err: ErrNegativePrice}
	}
	if r.AmountPaid.IsNegative() || r.AmountDue.IsNegative() {
		return &ValidationError{Field: "amounts", Err: ErrNegativeAmount}
	}
	return ValidateAddOns(r.AddOns)
}

// ValidateAddOns enforces unique, non-empty names and non-negative prices.
func ValidateAddOns(addOns []AddOn) error {
	seen := make(map[string]struct{}, len(addOns))
	for _, a := range addOns {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			return &ValidationError{Field: "addOns", Err: ErrAddOnName}
		}
		if _, dup := seen[name]; dup {
			return &ValidationError{Field: "addOns", Err: ErrDuplicateAddOn, Detail: name}
		}
		seen[name] = struct{}{}
		if a.PricePerDay.IsNegative() {
			return &ValidationError{Field: "addOns", Err: ErrNegativePrice, Detail: name}
		}
	}
	return nil
}
