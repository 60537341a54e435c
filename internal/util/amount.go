package util

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

var ErrNotNumeric = errors.New("not a numeric value")

var (
	currencyStripper = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "")
	leadingNumber    = regexp.MustCompile(`^[+-]?\d+(?:\.\d+)?`)
	unitTail         = regexp.MustCompile(`^[\p{L}/.\-\s]*$`)
)

// CleanNumeric turns a raw money or quantity substring such as
// "$1,234.50 /EA" into a plain decimal literal ("1234.50"). When the
// value does not look like a number followed by unit tokens the cleaned
// text is returned unchanged so that parsing it fails.
func CleanNumeric(raw string) string {
	s := compact(raw)
	num := leadingNumber.FindString(s)
	if num == "" {
		return s
	}
	if !unitTail.MatchString(s[len(num):]) {
		return s
	}
	return num
}

// ParseAmount parses a value that may carry currency symbols, unicode
// spaces and trailing unit tokens.
func ParseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(CleanNumeric(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotNumeric, raw)
	}
	return d, nil
}

// ParseBareAmount is the strict form of ParseAmount: after removing
// currency symbols and spaces nothing but the number may remain.
func ParseBareAmount(raw string) (decimal.Decimal, error) {
	s := compact(raw)
	if num := leadingNumber.FindString(s); num == "" || num != s {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotNumeric, raw)
	}
	return decimal.NewFromString(s)
}

func compact(raw string) string {
	s := norm.NFKD.String(raw)
	s = currencyStripper.Replace(s)
	return strings.TrimSpace(s)
}
