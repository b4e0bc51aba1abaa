package core

import (
	"github.com/shopspring/decimal"
)

type (
	// MonthlyMetricRow is one row of analytics_monthly_metrics: a store's
	// revenue and order count for a single calendar month.
	MonthlyMetricRow struct {
		StoreName      string          `json:"store_name"`
		YearMonth      YearMonth       `json:"year_month"`
		Revenue        decimal.Decimal `json:"revenue"`
		NumberOfOrders int64           `json:"number_of_orders"`
	}

	// ProductMetricRow is one row of analytics_product_metrics.
	ProductMetricRow struct {
		StoreName      string          `json:"store_name"`
		ProductName    string          `json:"product_name"`
		ProductType    string          `json:"product_type"`
		NumberSold     int64           `json:"number_sold"`
		ProductRevenue decimal.Decimal `json:"product_revenue"`
	}

	KPISummary struct {
		TotalRevenue decimal.Decimal `json:"total_revenue"`
		TotalOrders  int64           `json:"total_orders"`
	}

	ProductLine struct {
		ProductName string          `json:"product_name"`
		ProductType string          `json:"product_type"`
		UnitsSold   int64           `json:"units_sold"`
		Revenue     decimal.Decimal `json:"revenue"`
	}

	MonthlyPoint struct {
		Month          YearMonth       `json:"month"`
		Revenue        decimal.Decimal `json:"revenue"`
		NumberOfOrders int64           `json:"number_of_orders"`
	}

	// ProductTable is ordered by UnitsSold, highest first.
	ProductTable []ProductLine

	// MonthlySeries is ordered chronologically.
	MonthlySeries []MonthlyPoint
)

// Validate reports negative or otherwise malformed values in a monthly row.
func (r MonthlyMetricRow) Validate() error {
	if !r.YearMonth.IsValid() {
		return &DataFormatError{Field: "year_month", Value: r.YearMonth.String(), Err: ErrInvalidMonth}
	}
	if r.Revenue.IsNegative() {
		return &DataFormatError{Field: "revenue", Value: r.Revenue.String(), Err: ErrNegative}
	}
	if r.NumberOfOrders < 0 {
		return &DataFormatError{Field: "number_of_orders", Value: formatInt(r.NumberOfOrders), Err: ErrNegative}
	}
	return nil
}

func (r ProductMetricRow) Validate() error {
	if r.NumberSold < 0 {
		return &DataFormatError{Field: "number_sold", Value: formatInt(r.NumberSold), Err: ErrNegative}
	}
	if r.ProductRevenue.IsNegative() {
		return &DataFormatError{Field: "product_revenue", Value: r.ProductRevenue.String(), Err: ErrNegative}
	}
	return nil
}

// TotalUnits sums UnitsSold across the table.
func (t ProductTable) TotalUnits() int64 {
	var n int64
	for _, l := range t {
		n += l.UnitsSold
	}
	return n
}

func (t ProductTable) TotalRevenue() decimal.Decimal {
	total := decimal.Zero
	for _, l := range t {
		total = total.Add(l.Revenue)
	}
	return total
}

func (s MonthlySeries) TotalRevenue() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s {
		total = total.Add(p.Revenue)
	}
	return total
}

func (s MonthlySeries) TotalOrders() int64 {
	var n int64
	for _, p := range s {
		n += p.NumberOfOrders
	}
	return n
}
