// Package core provides money parsing and handling utilities.
//
// Amounts are decimal.Decimal values with at most two fractional digits. Stores
// persist them as integer cents so balances can be incremented atomically.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits an amount may carry.
const AmountScale = 2

// Bounds keep every stored value well inside int64 cents. A balance may grow to
// a hundred times the largest single amount.
var (
	MaxAmount  = decimal.New(1, 13)
	MaxBalance = decimal.New(1, 15)
)

// ParseAmount converts a decimal string to an amount rounded to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an optional
// leading sign, and rounds half away from zero on the third decimal place.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("-12.345") -> -12.35, nil
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, Validationf("%s", ErrInvalidAmount)
	}
	s = strings.ReplaceAll(s, ",", ".")

	digits := strings.TrimLeft(s, "+-")
	if len(s)-len(digits) > 1 || digits == "" || strings.Count(digits, ".") > 1 {
		return decimal.Zero, Validationf("%s %q", ErrInvalidAmount, s)
	}
	for _, r := range digits {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, Validationf("%s %q", ErrInvalidAmount, s)
		}
	}

	d, err := decimal.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return decimal.Zero, Validationf("%s %q", ErrInvalidAmount, s)
	}
	return d.Round(AmountScale), nil
}

// ValidateScale rejects amounts with more than two fractional digits.
func ValidateScale(d decimal.Decimal) error {
	if !d.Equal(d.Truncate(AmountScale)) {
		return Validationf("amount %s has more than %d decimal places", d.String(), AmountScale)
	}
	return nil
}

// ValidateAmount checks scale and magnitude of a single amount, opening
// balance or limit.
func ValidateAmount(d decimal.Decimal) error {
	if err := ValidateScale(d); err != nil {
		return err
	}
	if d.Abs().GreaterThan(MaxAmount) {
		return Validationf("%s: magnitude of %s exceeds %s", ErrInvalidAmount, d.String(), MaxAmount.String())
	}
	return nil
}

// CheckBalance rejects a balance outside MaxBalance.
func CheckBalance(id string, balance decimal.Decimal) error {
	if balance.Abs().GreaterThan(MaxBalance) {
		return Validationf("balance of account %s would reach %s, limit is %s", id, balance.String(), MaxBalance.String())
	}
	return nil
}

// ToCents converts an amount to integer minor units. Callers validate the
// magnitude first; values beyond int64 cents are not representable.
func ToCents(d decimal.Decimal) int64 {
	return d.Shift(AmountScale).Round(0).IntPart()
}

// FromCents converts integer minor units back to an amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -AmountScale)
}
