package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Aggregate turns the raw per-store relations into the figures a dashboard
// render shows. It is a pure pipeline: filter, reduce, group, sort. Neither
// input slice is modified.
//
// Rows that survive the filter are validated first; a bad month or a
// negative value yields a *DataFormatError. A store that is absent from the
// data is not an error and produces zero totals and empty tables.
func Aggregate(monthly []MonthlyMetricRow, products []ProductMetricRow, f Filter) (KPISummary, ProductTable, MonthlySeries, error) {
	m := FilterMonthly(monthly, f)
	p := FilterProducts(products, f)

	for _, r := range m {
		if err := r.Validate(); err != nil {
			return KPISummary{}, nil, nil, err
		}
	}
	for _, r := range p {
		if err := r.Validate(); err != nil {
			return KPISummary{}, nil, nil, err
		}
	}

	return SummarizeKPI(m), BuildProductTable(p, f), BuildMonthlySeries(m, f), nil
}

// FilterMonthly returns a new slice holding the rows f selects.
func FilterMonthly(rows []MonthlyMetricRow, f Filter) []MonthlyMetricRow {
	out := make([]MonthlyMetricRow, 0, len(rows))
	for _, r := range rows {
		if f.Matches(r.StoreName) {
			out = append(out, r)
		}
	}
	return out
}

func FilterProducts(rows []ProductMetricRow, f Filter) []ProductMetricRow {
	out := make([]ProductMetricRow, 0, len(rows))
	for _, r := range rows {
		if f.Matches(r.StoreName) {
			out = append(out, r)
		}
	}
	return out
}

// SummarizeKPI sums revenue and orders over already filtered rows.
func SummarizeKPI(rows []MonthlyMetricRow) KPISummary {
	k := KPISummary{TotalRevenue: decimal.Zero}
	for _, r := range rows {
		k.TotalRevenue = k.TotalRevenue.Add(r.Revenue)
		k.TotalOrders += r.NumberOfOrders
	}
	return k
}

// BuildProductTable expects rows already filtered by f. For AllStores rows are
// summed per (product name, product type); for a single store each row becomes
// one line. The result is sorted by units sold, highest first, keeping
// encounter order for ties.
func BuildProductTable(rows []ProductMetricRow, f Filter) ProductTable {
	var table ProductTable
	switch f.Kind() {
	case SingleStoreKind:
		table = make(ProductTable, 0, len(rows))
		for _, r := range rows {
			table = append(table, ProductLine{
				ProductName: r.ProductName,
				ProductType: r.ProductType,
				UnitsSold:   r.NumberSold,
				Revenue:     r.ProductRevenue,
			})
		}
	case AllStoresKind:
		type key struct{ name, typ string }
		index := make(map[key]int)
		table = make(ProductTable, 0)
		for _, r := range rows {
			k := key{r.ProductName, r.ProductType}
			if i, ok := index[k]; ok {
				table[i].UnitsSold += r.NumberSold
				table[i].Revenue = table[i].Revenue.Add(r.ProductRevenue)
				continue
			}
			index[k] = len(table)
			table = append(table, ProductLine{
				ProductName: r.ProductName,
				ProductType: r.ProductType,
				UnitsSold:   r.NumberSold,
				Revenue:     r.ProductRevenue,
			})
		}
	}
	sort.SliceStable(table, func(i, j int) bool {
		return table[i].UnitsSold > table[j].UnitsSold
	})
	return table
}

// BuildMonthlySeries expects rows already filtered by f. For AllStores months
// are summed across stores. The result is in chronological order.
func BuildMonthlySeries(rows []MonthlyMetricRow, f Filter) MonthlySeries {
	var series MonthlySeries
	switch f.Kind() {
	case SingleStoreKind:
		series = make(MonthlySeries, 0, len(rows))
		for _, r := range rows {
			series = append(series, MonthlyPoint{
				Month:          r.YearMonth,
				Revenue:        r.Revenue,
				NumberOfOrders: r.NumberOfOrders,
			})
		}
	case AllStoresKind:
		index := make(map[YearMonth]int)
		series = make(MonthlySeries, 0)
		for _, r := range rows {
			if i, ok := index[r.YearMonth]; ok {
				series[i].Revenue = series[i].Revenue.Add(r.Revenue)
				series[i].NumberOfOrders += r.NumberOfOrders
				continue
			}
			index[r.YearMonth] = len(series)
			series = append(series, MonthlyPoint{
				Month:          r.YearMonth,
				Revenue:        r.Revenue,
				NumberOfOrders: r.NumberOfOrders,
			})
		}
	}
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Month.Before(series[j].Month)
	})
	return series
}
