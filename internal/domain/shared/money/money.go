package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	ErrNegativeAmount   = errors.New("money: amount must not be negative")
	ErrFractionalMinor  = errors.New("money: amount has more precision than the currency allows")
)

// DefaultExponent is the number of minor units digits used when none is configured (paisa, cents).
const DefaultExponent int32 = 2

// Money is an exact decimal amount in a three-letter currency.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// New constructs a Money value validating minimal invariants.
func New(amount decimal.Decimal, currency string) (Money, error) {
	if len(strings.TrimSpace(currency)) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Amount: amount, Currency: strings.ToUpper(strings.TrimSpace(currency))}, nil
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(amount decimal.Decimal, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Add adds two money values ensuring currencies match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Sub subtracts other from the receiver.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// MinorUnits converts the amount to an integer count of minor units, e.g.
// 1250.50 NPR with exponent 2 becomes 125050. Amounts that would need
// rounding are rejected rather than silently truncated.
func (m Money) MinorUnits(exponent int32) (int64, error) {
	if m.Amount.IsNegative() {
		return 0, ErrNegativeAmount
	}
	if exponent < 0 {
		exponent = DefaultExponent
	}
	scaled := m.Amount.Shift(exponent)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, ErrFractionalMinor
	}
	return scaled.IntPart(), nil
}

// FromMinorUnits is the inverse of MinorUnits.
func FromMinorUnits(minor int64, exponent int32, currency string) (Money, error) {
	if exponent < 0 {
		exponent = DefaultExponent
	}
	return New(decimal.New(minor, -exponent), currency)
}

func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}
