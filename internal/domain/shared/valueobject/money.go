package valueobject

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fraction digits every stored amount carries.
const MoneyScale int32 = 2

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	CNY Currency = "CNY" // Chinese Yuan (default)
	USD Currency = "USD" // US Dollar
	EUR Currency = "EUR" // Euro
	GBP Currency = "GBP" // British Pound
	JPY Currency = "JPY" // Japanese Yen
	HKD Currency = "HKD" // Hong Kong Dollar
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = CNY

// IsValid reports whether the currency is one the system settles in
func (c Currency) IsValid() bool {
	switch c {
	case CNY, USD, EUR, GBP, JPY, HKD:
		return true
	}
	return false
}

// String returns the currency code
func (c Currency) String() string {
	return string(c)
}

// ParseCurrency normalizes a currency code. An empty code yields DefaultCurrency.
func ParseCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency, nil
	}
	c := Currency(code)
	if !c.IsValid() {
		return "", fmt.Errorf("unsupported currency: %s", code)
	}
	return c, nil
}

// Round2 rounds an amount to MoneyScale using round-half-up
// (ties move away from zero).
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// SumMoney adds amounts and returns the total at MoneyScale.
func SumMoney(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return Round2(total)
}

// SubMoney returns a - b at MoneyScale.
func SubMoney(a, b decimal.Decimal) decimal.Decimal {
	return Round2(a.Sub(b))
}

// NonNegative clamps a negative amount to zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ParseMoney parses a decimal string and rounds it to MoneyScale.
func ParseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount string: %w", err)
	}
	return Round2(d), nil
}

// FormatMoney renders an amount with exactly MoneyScale fraction digits.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyScale)
}
