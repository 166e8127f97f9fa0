package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"rentride/internal/app/policies"
	domainbooking "rentride/internal/domain/booking"
	"rentride/internal/domain/shared/daterange"
)

type AddOn struct {
	Name        string          `json:"name"`
	PricePerDay decimal.Decimal `json:"pricePerDay"`
}

// BookingRecord is the wire shape shared by the REST API, pushed events and
// our own HTTP surface. Dates travel as YYYY-MM-DD.
type BookingRecord struct {
	ID            string          `json:"id"`
	AssetID       string          `json:"assetId"`
	BookingStatus string          `json:"bookingStatus"`
	PaymentStatus string          `json:"paymentStatus"`
	StartDate     string          `json:"startDate"`
	EndDate       string          `json:"endDate"`
	DailyPrice    decimal.Decimal `json:"dailyPrice"`
	AddOns        []AddOn         `json:"addOns"`
	AmountPaid    decimal.Decimal `json:"amountPaid"`
	AmountDue     decimal.Decimal `json:"amountDue"`
	Currency      string          `json:"currency,omitempty"`
	Location      string          `json:"pickAndDropLocation,omitempty"`
	PickupTime    string          `json:"pickupTime,omitempty"`
	DropTime      string          `json:"dropTime,omitempty"`
	Version       int64           `json:"version,omitempty"`
	UpdatedAt     *time.Time      `json:"updatedAt,omitempty"`
}

// ToDomain converts without judging the status pair; unknown statuses are
// the classifier's to report.
func (b BookingRecord) ToDomain() (domainbooking.Record, error) {
	start, err := daterange.Parse(b.StartDate)
	if err != nil {
		return domainbooking.Record{}, fmt.Errorf("booking %s: startDate: %w", b.ID, err)
	}
	end, err := daterange.Parse(b.EndDate)
	if err != nil {
		return domainbooking.Record{}, fmt.Errorf("booking %s: endDate: %w", b.ID, err)
	}
	r := domainbooking.Record{
		ID:            domainbooking.ID(b.ID),
		AssetID:       domainbooking.AssetID(b.AssetID),
		Status:        domainbooking.Status(b.BookingStatus),
		PaymentStatus: domainbooking.PaymentStatus(b.PaymentStatus),
		StartDate:     start,
		EndDate:       end,
		DailyPrice:    b.DailyPrice,
		AddOns:        AddOnsToDomain(b.AddOns),
		AmountPaid:    b.AmountPaid,
		AmountDue:     b.AmountDue,
		Currency:      b.Currency,
		Location:      b.Location,
		PickupTime:    b.PickupTime,
		DropTime:      b.DropTime,
		Version:       b.Version,
	}
	if b.UpdatedAt != nil {
		r.UpdatedAt = b.UpdatedAt.UTC()
	}
	return r, nil
}

func FromDomain(r domainbooking.Record) BookingRecord {
	out := BookingRecord{
		ID:            string(r.ID),
		AssetID:       string(r.AssetID),
		BookingStatus: string(r.Status),
		PaymentStatus: string(r.PaymentStatus),
		StartDate:     formatDate(r.StartDate),
		EndDate:       formatDate(r.EndDate),
		DailyPrice:    r.DailyPrice,
		AddOns:        AddOnsFromDomain(r.AddOns),
		AmountPaid:    r.AmountPaid,
		AmountDue:     r.AmountDue,
		Currency:      r.Currency,
		Location:      r.Location,
		PickupTime:    r.PickupTime,
		DropTime:      r.DropTime,
		Version:       r.Version,
	}
	if !r.UpdatedAt.IsZero() {
		at := r.UpdatedAt.UTC()
		out.UpdatedAt = &at
	}
	return out
}

func FromDomainList(records []domainbooking.Record) []BookingRecord {
	out := make([]BookingRecord, 0, len(records))
	for _, r := range records {
		out = append(out, FromDomain(r))
	}
	return out
}

// ToDomainList converts a bulk response. A record with unparseable dates
// fails the whole batch: hydrate must see the complete set or nothing.
func ToDomainList(items []BookingRecord) ([]domainbooking.Record, error) {
	out := make([]domainbooking.Record, 0, len(items))
	for _, item := range items {
		r, err := item.ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func AddOnsToDomain(items []AddOn) []domainbooking.AddOn {
	if items == nil {
		return nil
	}
	out := make([]domainbooking.AddOn, 0, len(items))
	for _, a := range items {
		out = append(out, domainbooking.AddOn{Name: a.Name, PricePerDay: a.PricePerDay})
	}
	return out
}

func AddOnsFromDomain(items []domainbooking.AddOn) []AddOn {
	out := make([]AddOn, 0, len(items))
	for _, a := range items {
		out = append(out, AddOn{Name: a.Name, PricePerDay: a.PricePerDay})
	}
	return out
}

// BookingEdit is the partial update body. Absent fields are left alone; an
// empty addOns array clears the selection.
type BookingEdit struct {
	Location   *string  `json:"pickAndDropLocation,omitempty"`
	StartDate  *string  `json:"startDate,omitempty"`
	EndDate    *string  `json:"endDate,omitempty"`
	PickupTime *string  `json:"pickupTime,omitempty"`
	DropTime   *string  `json:"dropTime,omitempty"`
	AddOns     *[]AddOn `json:"addOns,omitempty"`
}

func (e BookingEdit) ToEdit() (policies.Edit, error) {
	out := policies.Edit{
		Location:   e.Location,
		PickupTime: e.PickupTime,
		DropTime:   e.DropTime,
	}
	if e.StartDate != nil {
		t, err := daterange.Parse(*e.StartDate)
		if err != nil {
			return policies.Edit{}, &domainbooking.ValidationError{Field: "startDate", Err: err}
		}
		out.StartDate = &t
	}
	if e.EndDate != nil {
		t, err := daterange.Parse(*e.EndDate)
		if err != nil {
			return policies.Edit{}, &domainbooking.ValidationError{Field: "endDate", Err: err}
		}
		out.EndDate = &t
	}
	if e.AddOns != nil {
		out.AddOnsSet = true
		out.AddOns = AddOnsToDomain(*e.AddOns)
		if out.AddOns == nil {
			out.AddOns = []domainbooking.AddOn{}
		}
	}
	return out, nil
}

func EditFromDomain(e policies.Edit) BookingEdit {
	out := BookingEdit{
		Location:   e.Location,
		PickupTime: e.PickupTime,
		DropTime:   e.DropTime,
	}
	if e.StartDate != nil {
		s := formatDate(*e.StartDate)
		out.StartDate = &s
	}
	if e.EndDate != nil {
		s := formatDate(*e.EndDate)
		out.EndDate = &s
	}
	if e.AddOnsSet {
		addOns := AddOnsFromDomain(e.AddOns)
		out.AddOns = &addOns
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return daterange.Normalize(t).Format(daterange.Layout)
}
