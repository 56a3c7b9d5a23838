// Package money parses and formats decimal-as-string amounts.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalid      = errors.New("invalid amount")
	ErrNotPositive  = errors.New("amount must be greater than zero")
	ErrTooPrecise   = errors.New("amount must have at most two decimal places")
	currencyMarkers = []string{"CNY", "RMB", "¥", "￥", "元"}
)

// Parse reads an amount such as "1,234.56", "¥1000" or "-20.5".
func Parse(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	for _, m := range currencyMarkers {
		clean = strings.ReplaceAll(clean, m, "")
	}

	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.ReplaceAll(clean, "，", "")
	clean = strings.TrimSpace(clean)

	if clean == "" {
		return decimal.Zero, ErrInvalid
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, ErrInvalid
	}

	return d, nil
}

// ParsePositive is Parse restricted to amounts above zero with cent precision.
func ParsePositive(s string) (decimal.Decimal, error) {
	d, err := Parse(s)
	if err != nil {
		return decimal.Zero, err
	}

	if err := CheckPositive(d); err != nil {
		return decimal.Zero, err
	}

	return d, nil
}

// CheckPositive validates an already-parsed amount.
func CheckPositive(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrNotPositive
	}

	if !d.Equal(d.Round(2)) {
		return ErrTooPrecise
	}

	return nil
}

// Format renders d with exactly two fraction digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatPtr is Format for optional amounts.
func FormatPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}

	s := Format(*d)

	return &s
}
