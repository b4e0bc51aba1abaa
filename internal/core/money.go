// Package core provides money parsing and display formatting.
//
// This file contains functions for parsing revenue and count fields from
// their textual form (database text casts, CSV cells, spreadsheet values) and
// for rendering them the way the dashboard shows them.
package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// ParseRevenue converts a textual amount into an exact decimal.
//
// Currency symbols and thousands separators are stripped, so both "1234.5"
// and "$1,234.50" are accepted. Negative values and non-numeric input return
// a *DataFormatError naming field.
//
// Examples:
//
//	ParseRevenue("revenue", "12.34")     -> 12.34, nil
//	ParseRevenue("revenue", "$1,200.00") -> 1200, nil
//	ParseRevenue("revenue", "-1")        -> error (ErrNegative)
func ParseRevenue(field, s string) (decimal.Decimal, error) {
	v := normalizeNumber(s)
	if v == "" {
		return decimal.Zero, &DataFormatError{Field: field, Value: s, Err: ErrNotNumeric}
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, &DataFormatError{Field: field, Value: s, Err: ErrNotNumeric}
	}
	if d.IsNegative() {
		return decimal.Zero, &DataFormatError{Field: field, Value: s, Err: ErrNegative}
	}
	return d, nil
}

// ParseCount converts a textual non-negative integer. Whole-valued decimals
// such as "12.0" are accepted since spreadsheets and numeric casts emit them.
func ParseCount(field, s string) (int64, error) {
	v := normalizeNumber(s)
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		d, derr := decimal.NewFromString(v)
		if derr != nil || !d.Equal(d.Truncate(0)) {
			return 0, &DataFormatError{Field: field, Value: s, Err: ErrNotNumeric}
		}
		n = d.IntPart()
	}
	if n < 0 {
		return 0, &DataFormatError{Field: field, Value: s, Err: ErrNegative}
	}
	return n, nil
}

func normalizeNumber(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	return strings.ReplaceAll(s, ",", "")
}

// FormatCurrency renders d as dollars with thousands separators and two
// decimals: 1234567.891 -> "$1,234,567.89".
func FormatCurrency(d decimal.Decimal) string {
	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	whole := d.Truncate(0)
	cents := d.Sub(whole).Shift(2).IntPart()
	return fmt.Sprintf("%s$%s.%02d", sign, humanize.Comma(whole.IntPart()), cents)
}

// FormatCurrencyWhole renders d rounded to whole dollars: "$1,235".
func FormatCurrencyWhole(d decimal.Decimal) string {
	d = d.Round(0)
	if d.IsNegative() {
		return "-$" + humanize.Comma(d.Neg().IntPart())
	}
	return "$" + humanize.Comma(d.IntPart())
}

// FormatCount renders n with thousands separators: 1234 -> "1,234".
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

// FormatDecimal renders d with two fixed decimals and no grouping, the form
// used in exports.
func FormatDecimal(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
