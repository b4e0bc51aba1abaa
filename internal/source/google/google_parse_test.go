package google

import (
	"context"
	"errors"
	"testing"

	"jaffle/internal/core"
)

type fakeValues struct {
	byRange map[string][][]interface{}
	err     error
	calls   []string
}

func (f *fakeValues) Get(_ context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	f.calls = append(f.calls, spreadsheetID+"|"+rng)
	if f.err != nil {
		return nil, f.err
	}
	return f.byRange[rng], nil
}

func TestParseMonthly_UnformattedValues(t *testing.T) {
	values := [][]interface{}{
		{"store_name", "year_month", "revenue", "number_of_orders"},
		{"Philadelphia", "2019-01", 10667.19, 937.0},
		{"Philadelphia", "2019-02-01", 12345678.5, 1000.0},
		{},
	}
	rows, err := parseMonthly(values)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1].Revenue.String() != "12345678.5" || rows[1].NumberOfOrders != 1000 {
		t.Fatalf("unexpected row %+v", rows[1])
	}
	if rows[1].YearMonth != core.MustYearMonth("2019-02") {
		t.Fatalf("unexpected month %s", rows[1].YearMonth)
	}
}

func TestParseProducts_FormattedCurrency(t *testing.T) {
	values := [][]interface{}{
		{"Product_Name", "Product_Type", "Store_Name", "Number_Sold", "Product_Revenue"},
		{"mel-bun", "jaffle", "Brooklyn", "1,204", "$14,448.00"},
	}
	rows, err := parseProducts(values)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(rows) != 1 || rows[0].NumberSold != 1204 || rows[0].ProductRevenue.String() != "14448" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestParseProducts_MissingHeader(t *testing.T) {
	_, err := parseProducts([][]interface{}{{"store_name", "product_name"}})
	if !errors.Is(err, core.ErrMissingColumn) {
		t.Fatalf("expected missing column error, got %v", err)
	}
}

func TestClientReadsConfiguredTabs(t *testing.T) {
	fake := &fakeValues{byRange: map[string][][]interface{}{
		"'Monthly Metrics'": {
			{"store_name", "year_month", "revenue", "number_of_orders"},
			{"A", "2019-01", 100.0, 5.0},
		},
		"products": {
			{"store_name", "product_name", "product_type", "number_sold", "product_revenue"},
			{"A", "Coffee", "Beverage", 10.0, 30.0},
		},
	}}
	c := NewWithValues(fake, Options{SpreadsheetID: "sheet-1", MonthlySheet: "Monthly Metrics", ProductSheet: "products"})

	monthly, err := c.ReadMonthlyMetrics(context.Background())
	if err != nil || len(monthly) != 1 {
		t.Fatalf("monthly: %v %v", monthly, err)
	}
	products, err := c.ReadProductMetrics(context.Background())
	if err != nil || len(products) != 1 {
		t.Fatalf("products: %v %v", products, err)
	}
	if fake.calls[0] != "sheet-1|'Monthly Metrics'" {
		t.Fatalf("unexpected call %q", fake.calls[0])
	}
}

func TestClientWrapsAPIErrors(t *testing.T) {
	c := NewWithValues(&fakeValues{err: errors.New("googleapi: Error 503")}, Options{SpreadsheetID: "s"})

	_, err := c.ReadMonthlyMetrics(context.Background())
	var ce *core.ConnectivityError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConnectivityError, got %v", err)
	}
	if err := c.Ping(context.Background()); !errors.As(err, &ce) {
		t.Fatalf("expected ConnectivityError from ping, got %v", err)
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	var cfg *core.ConfigurationError
	if !errors.As(err, &cfg) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}
