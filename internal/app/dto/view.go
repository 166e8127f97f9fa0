package dto

import (
	"rentride/internal/app/reconcile"
	"rentride/internal/app/session"
	domainbooking "rentride/internal/domain/booking"
	"rentride/internal/domain/pricing"
)

type View struct {
	SessionID string                     `json:"sessionId"`
	Revision  uint64                     `json:"revision"`
	Hydrated  bool                       `json:"hydrated"`
	Counts    map[string]int             `json:"counts"`
	Buckets   map[string][]BookingRecord `json:"buckets"`
}

func ViewFromDomain(id session.ID, v reconcile.View) View {
	out := View{
		SessionID: string(id),
		Revision:  v.Revision,
		Hydrated:  v.Hydrated,
		Counts:    make(map[string]int, len(domainbooking.Buckets)),
		Buckets:   make(map[string][]BookingRecord, len(domainbooking.Buckets)),
	}
	for _, b := range domainbooking.Buckets {
		records := v.Bucket(b)
		out.Counts[string(b)] = len(records)
		out.Buckets[string(b)] = FromDomainList(records)
	}
	return out
}

type Session struct {
	ID       string `json:"id"`
	Scope    string `json:"scope"`
	OpenedAt string `json:"openedAt"`
	View     View   `json:"view"`
}

type AddOnLine struct {
	Name        string `json:"name"`
	PricePerDay string `json:"pricePerDay"`
	Amount      string `json:"amount"`
}

type Quote struct {
	Days       int         `json:"days"`
	BilledDays int         `json:"billedDays"`
	DailyPrice string      `json:"dailyPrice"`
	Base       string      `json:"base"`
	AddOns     []AddOnLine `json:"addOns"`
	AddOnTotal string      `json:"addOnTotal"`
	Total      string      `json:"total"`
	AmountPaid string      `json:"amountPaid"`
	Balance    string      `json:"balance"`
}

func QuoteFromDomain(b pricing.Breakdown) Quote {
	out := Quote{
		Days:       b.Days,
		BilledDays: b.BilledDays,
		DailyPrice: b.DailyPrice.String(),
		Base:       b.Base.String(),
		AddOns:     make([]AddOnLine, 0, len(b.AddOns)),
		AddOnTotal: b.AddOnTotal.String(),
		Total:      b.Total.String(),
		AmountPaid: b.AmountPaid.String(),
		Balance:    b.Balance.String(),
	}
	for _, l := range b.AddOns {
		out.AddOns = append(out.AddOns, AddOnLine{Name: l.Name, PricePerDay: l.PricePerDay.String(), Amount: l.Amount.String()})
	}
	return out
}

type EditResult struct {
	Booking BookingRecord `json:"booking"`
	Bucket  string        `json:"bucket"`
	Quote   Quote         `json:"quote"`
}

type QuoteResult struct {
	Preview BookingRecord `json:"preview"`
	Quote   Quote         `json:"quote"`
}
