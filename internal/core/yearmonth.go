package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// YearMonth is a calendar month without a day component.
type YearMonth struct {
	Year  int
	Month time.Month
}

// NewYearMonth builds a YearMonth; use IsValid to check the result.
func NewYearMonth(year int, month time.Month) YearMonth {
	return YearMonth{Year: year, Month: month}
}

// ParseYearMonth accepts "2006-01" (or "2006-1") and date-like values such as
// "2006-01-02" or "2006-01-02T15:04:05Z" whose day and time are discarded.
func ParseYearMonth(s string) (YearMonth, error) {
	v := strings.TrimSpace(s)
	if ym, ok := parseYearDashMonth(v); ok {
		return ym, nil
	}
	if len(v) >= 10 {
		rest := v[10:]
		if rest == "" || rest[0] == ' ' || rest[0] == 'T' {
			if t, err := time.Parse("2006-01-02", v[:10]); err == nil {
				return YearMonth{Year: t.Year(), Month: t.Month()}, nil
			}
		}
	}
	return YearMonth{}, &DataFormatError{Field: "year_month", Value: s, Err: ErrInvalidMonth}
}

func parseYearDashMonth(v string) (YearMonth, bool) {
	year, month, found := strings.Cut(v, "-")
	if !found || len(year) != 4 || len(month) < 1 || len(month) > 2 || !allDigits(year+month) {
		return YearMonth{}, false
	}
	y, err := strconv.Atoi(year)
	if err != nil || y < 1 {
		return YearMonth{}, false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return YearMonth{}, false
	}
	return YearMonth{Year: y, Month: time.Month(m)}, true
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// MustYearMonth is ParseYearMonth for literals known to be valid.
func MustYearMonth(s string) YearMonth {
	ym, err := ParseYearMonth(s)
	if err != nil {
		panic(err)
	}
	return ym
}

func (ym YearMonth) IsValid() bool {
	return ym.Year > 0 && ym.Year <= 9999 && ym.Month >= time.January && ym.Month <= time.December
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// Compare returns -1, 0 or +1 in chronological order.
func (ym YearMonth) Compare(other YearMonth) int {
	switch {
	case ym.Year < other.Year:
		return -1
	case ym.Year > other.Year:
		return 1
	case ym.Month < other.Month:
		return -1
	case ym.Month > other.Month:
		return 1
	}
	return 0
}

func (ym YearMonth) Before(other YearMonth) bool {
	return ym.Compare(other) < 0
}

// Time returns midnight UTC on the first day of the month.
func (ym YearMonth) Time() time.Time {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
}

func (ym YearMonth) MarshalText() ([]byte, error) {
	return []byte(ym.String()), nil
}

func (ym *YearMonth) UnmarshalText(b []byte) error {
	v, err := ParseYearMonth(string(b))
	if err != nil {
		return err
	}
	*ym = v
	return nil
}
