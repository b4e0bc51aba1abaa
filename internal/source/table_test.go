package source

import (
	"errors"
	"testing"

	"jaffle/internal/core"
)

func TestParseMonthlyTable(t *testing.T) {
	records := [][]string{
		{"Store_Name", "year_month", "revenue", "number_of_orders", "extra"},
		{"Brooklyn", "2019-01-01", "$1,200.50", "120", "x"},
		{"", "", "", ""},
		{"Chicago", "2019-02", "80", "8"},
	}
	rows, err := ParseMonthlyTable(records)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].StoreName != "Brooklyn" || rows[0].YearMonth != core.MustYearMonth("2019-01") || rows[0].NumberOfOrders != 120 {
		t.Fatalf("unexpected row %+v", rows[0])
	}
	if rows[0].Revenue.String() != "1200.5" {
		t.Fatalf("unexpected revenue %s", rows[0].Revenue)
	}
}

func TestParseMonthlyTableErrors(t *testing.T) {
	cases := []struct {
		name    string
		records [][]string
		target  error
	}{
		{"missing column", [][]string{{"store_name", "year_month", "revenue"}}, core.ErrMissingColumn},
		{"bad month", [][]string{MonthlyColumns, {"A", "2019-13", "1", "1"}}, core.ErrInvalidMonth},
		{"bad revenue", [][]string{MonthlyColumns, {"A", "2019-01", "lots", "1"}}, core.ErrNotNumeric},
		{"negative orders", [][]string{MonthlyColumns, {"A", "2019-01", "1", "-1"}}, core.ErrNegative},
	}
	for _, tc := range cases {
		_, err := ParseMonthlyTable(tc.records)
		var de *core.DataFormatError
		if !errors.As(err, &de) || !errors.Is(err, tc.target) {
			t.Fatalf("%s: expected DataFormatError wrapping %v, got %v", tc.name, tc.target, err)
		}
	}
}

func TestParseProductTableShortRows(t *testing.T) {
	records := [][]string{
		ProductColumns,
		{"A", "Coffee", "Beverage", "10", "30"},
		{"B", "Tea"},
	}
	_, err := ParseProductTable(records)
	if !errors.Is(err, core.ErrNotNumeric) {
		t.Fatalf("short row should fail numeric parsing, got %v", err)
	}
}

func TestParseEmptyTables(t *testing.T) {
	m, err := ParseMonthlyTable(nil)
	if err != nil || m != nil {
		t.Fatalf("expected nil, got %v %v", m, err)
	}
	p, err := ParseProductTable([][]string{ProductColumns})
	if err != nil || len(p) != 0 {
		t.Fatalf("expected empty, got %v %v", p, err)
	}
}
