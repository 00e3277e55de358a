package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Monetary amounts are stored with exactly two fractional digits.
// Intermediate odds math may carry more precision; rounding happens once,
// at the point a value is persisted or compared against a limit.

// RoundMoney rounds a value to cents using round-half-up
// (decimal.Round is half-away-from-zero, which is half-up for amounts >= 0).
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ParseAmount parses user input into a positive monetary amount
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("amount is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("amount %q is not a number: %w", raw, err)
	}
	// Positivity is checked after rounding: a sub-cent input like "0.004"
	// rounds to 0.00 and must be rejected, not accepted as a zero bet.
	d = RoundMoney(d)
	if !d.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("amount must be greater than zero")
	}
	return d, nil
}
