package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownCurrency = errors.New("unknown currency")
	ErrCurrencyScale   = errors.New("amount exceeds currency scale")
	ErrCurrencyMix     = errors.New("currencies do not match")
)

// currencyScales lists the supported ISO 4217 currencies with their minor
// unit digits.
var currencyScales = map[string]int32{
	"USD": 2,
	"EUR": 2,
	"GBP": 2,
	"CAD": 2,
	"AUD": 2,
	"CHF": 2,
	"JPY": 0,
}

// CurrencyScale returns the minor unit digits of a currency code.
func CurrencyScale(code string) (int32, bool) {
	scale, ok := currencyScales[strings.ToUpper(code)]
	return scale, ok
}

// Money is a currency-tagged decimal amount.
type Money struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// NewMoney validates the currency and that amount fits its scale.
func NewMoney(currency string, amount decimal.Decimal) (Money, error) {
	currency = strings.ToUpper(currency)
	scale, ok := currencyScales[currency]
	if !ok {
		return Money{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, currency)
	}
	if !amount.Equal(amount.Truncate(scale)) {
		return Money{}, fmt.Errorf("%w: %s has scale %d", ErrCurrencyScale, currency, scale)
	}
	return Money{Currency: currency, Amount: amount}, nil
}

// MustMoney parses amount and panics on error. For fixtures and seed data.
func MustMoney(currency, amount string) Money {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		panic(err)
	}
	m, err := NewMoney(currency, d)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in currency.
func Zero(currency string) Money {
	return Money{Currency: strings.ToUpper(currency), Amount: decimal.Zero}
}

// Add sums two amounts of the same currency.
func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("%w: %s and %s", ErrCurrencyMix, m.Currency, o.Currency)
	}
	return Money{Currency: m.Currency, Amount: m.Amount.Add(o.Amount)}, nil
}

// Times multiplies by a whole number of periods.
func (m Money) Times(n int) Money {
	return Money{Currency: m.Currency, Amount: m.Amount.Mul(decimal.NewFromInt(int64(n)))}
}

// Minus subtracts o, which must be in the same currency.
func (m Money) Minus(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("%w: %s and %s", ErrCurrencyMix, m.Currency, o.Currency)
	}
	return Money{Currency: m.Currency, Amount: m.Amount.Sub(o.Amount)}, nil
}

// Rounded rounds half-even to the currency scale.
func (m Money) Rounded() Money {
	scale, ok := currencyScales[m.Currency]
	if !ok {
		return m
	}
	return Money{Currency: m.Currency, Amount: m.Amount.RoundBank(scale)}
}

// Equal compares currency and numeric value; 22 and 22.00 are equal.
func (m Money) Equal(o Money) bool {
	return m.Currency == o.Currency && m.Amount.Equal(o.Amount)
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// Formatted renders the amount at the currency scale, e.g. "22.00".
func (m Money) Formatted() string {
	scale, ok := currencyScales[m.Currency]
	if !ok {
		return m.Amount.String()
	}
	return m.Amount.StringFixed(scale)
}

func (m Money) String() string {
	return m.Currency + " " + m.Formatted()
}
