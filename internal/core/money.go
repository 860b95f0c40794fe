package core

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var ErrInvalidNumber = errors.New("invalid number")

// ParseDecimal parses a non-negative decimal from form input.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. Signs,
// exponents and grouping characters are rejected. Zero is a valid result;
// positivity is a validation rule, not a parsing one.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidNumber
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidNumber
	}
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '.':
		default:
			return decimal.Zero, ErrInvalidNumber
		}
	}
	if digits == 0 {
		return decimal.Zero, ErrInvalidNumber
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(s, "."))
	if err != nil {
		return decimal.Zero, ErrInvalidNumber
	}
	return d, nil
}

// FormatAmount renders a money amount with two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
