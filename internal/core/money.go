// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts typed by a user
// and rendering them for comment tags. Amounts are exact decimals; no
// currency rounding happens here.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered amount to a decimal.
//
// It accepts dot (12.34) and comma (12,34) decimal separators and spaces
// used as thousands separators ("426 000"). Zero is allowed.
// Returns ErrNegativeAmount for negative input and ErrInvalidAmount for
// anything that is not a number.
//
// Examples:
//
//	ParseAmount("10000")   -> 10000, nil
//	ParseAmount("12,5")    -> 12.5, nil
//	ParseAmount("426 000") -> 426000, nil
//	ParseAmount("-1")      -> 0, ErrNegativeAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = stripGrouping(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrNegativeAmount
	}
	s = strings.TrimPrefix(s, "+")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d, nil
}

// ParseStoredAmount reads a numeric cell from a stored ledger. Empty or
// malformed cells read as zero; ok reports whether the cell was well formed.
func ParseStoredAmount(s string) (d decimal.Decimal, ok bool) {
	s = stripGrouping(s)
	if s == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// WholeRubles renders the integer part of an amount, as shown in comment tags.
func WholeRubles(d decimal.Decimal) string {
	return d.Truncate(0).String()
}

// stripGrouping drops digit grouping characters and a trailing ruble sign.
func stripGrouping(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '_':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	return strings.TrimSuffix(s, "\u20bd")
}
