// Package storage reads the analytics relations from SQL databases: Postgres
// in production and SQLite for local development.
package storage

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"jaffle/internal/core"
	"jaffle/internal/source"
)

// insertBatch bounds the rows per INSERT statement.
const insertBatch = 500

// dialect captures what differs between the two SQL backends.
type dialect struct {
	builder  sq.StatementBuilderType
	monthly  string
	products string
	// text renders col as text, substituting fallback for NULL.
	text func(col, fallback string) string
	// numeric wraps a decimal parameter for insertion.
	numeric func(v string) interface{}
}

var postgresDialect = dialect{
	builder:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	monthly:  "analytics.analytics_monthly_metrics",
	products: "analytics.analytics_product_metrics",
	text: func(col, fallback string) string {
		return fmt.Sprintf("COALESCE(%s::text, '%s')", col, fallback)
	},
	numeric: func(v string) interface{} {
		return sq.Expr("?::text::numeric", v)
	},
}

var sqliteDialect = dialect{
	builder:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
	monthly:  "analytics_monthly_metrics",
	products: "analytics_product_metrics",
	text: func(col, fallback string) string {
		return fmt.Sprintf("COALESCE(CAST(%s AS TEXT), '%s')", col, fallback)
	},
	numeric: func(v string) interface{} { return v },
}

// Missing numerics count as zero, as a sum over them would; a missing month
// surfaces as a parse error.
func (d dialect) monthlyQuery() sq.SelectBuilder {
	return d.builder.
		Select(
			d.text(source.ColStoreName, ""),
			d.text(source.ColYearMonth, ""),
			d.text(source.ColRevenue, "0"),
			d.text(source.ColNumberOfOrders, "0"),
		).
		From(d.monthly).
		OrderBy(source.ColStoreName, source.ColYearMonth)
}

func (d dialect) productQuery() sq.SelectBuilder {
	return d.builder.
		Select(
			d.text(source.ColStoreName, ""),
			d.text(source.ColProductName, ""),
			d.text(source.ColProductType, ""),
			d.text(source.ColNumberSold, "0"),
			d.text(source.ColProductRevenue, "0"),
		).
		From(d.products).
		OrderBy(source.ColStoreName, source.ColProductName)
}

func (d dialect) deleteAll(table string) sq.DeleteBuilder {
	return d.builder.Delete(table)
}

// monthlyInserts splits rows into INSERT statements of at most insertBatch rows.
func (d dialect) monthlyInserts(rows []core.MonthlyMetricRow) []sq.InsertBuilder {
	var out []sq.InsertBuilder
	for start := 0; start < len(rows); start += insertBatch {
		end := min(start+insertBatch, len(rows))
		ins := d.builder.Insert(d.monthly).Columns(source.MonthlyColumns...)
		for _, r := range rows[start:end] {
			ins = ins.Values(r.StoreName, r.YearMonth.String(), d.numeric(r.Revenue.String()), r.NumberOfOrders)
		}
		out = append(out, ins)
	}
	return out
}

func (d dialect) productInserts(rows []core.ProductMetricRow) []sq.InsertBuilder {
	var out []sq.InsertBuilder
	for start := 0; start < len(rows); start += insertBatch {
		end := min(start+insertBatch, len(rows))
		ins := d.builder.Insert(d.products).Columns(source.ProductColumns...)
		for _, r := range rows[start:end] {
			ins = ins.Values(r.StoreName, r.ProductName, r.ProductType, r.NumberSold, d.numeric(r.ProductRevenue.String()))
		}
		out = append(out, ins)
	}
	return out
}

// rowIterator is the part of pgx.Rows and *sql.Rows the scanners need.
type rowIterator interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanMonthly(rows rowIterator) ([]core.MonthlyMetricRow, error) {
	out := make([]core.MonthlyMetricRow, 0)
	for rows.Next() {
		var store, month, revenue, orders string
		if err := rows.Scan(&store, &month, &revenue, &orders); err != nil {
			return nil, core.NewConnectivityError("scan monthly metrics", err)
		}
		ym, err := core.ParseYearMonth(month)
		if err != nil {
			return nil, err
		}
		rev, err := core.ParseRevenue(source.ColRevenue, revenue)
		if err != nil {
			return nil, err
		}
		n, err := core.ParseCount(source.ColNumberOfOrders, orders)
		if err != nil {
			return nil, err
		}
		out = append(out, core.MonthlyMetricRow{StoreName: store, YearMonth: ym, Revenue: rev, NumberOfOrders: n})
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewConnectivityError("iterate monthly metrics", err)
	}
	return out, nil
}

func scanProducts(rows rowIterator) ([]core.ProductMetricRow, error) {
	out := make([]core.ProductMetricRow, 0)
	for rows.Next() {
		var store, name, typ, sold, revenue string
		if err := rows.Scan(&store, &name, &typ, &sold, &revenue); err != nil {
			return nil, core.NewConnectivityError("scan product metrics", err)
		}
		n, err := core.ParseCount(source.ColNumberSold, sold)
		if err != nil {
			return nil, err
		}
		rev, err := core.ParseRevenue(source.ColProductRevenue, revenue)
		if err != nil {
			return nil, err
		}
		out = append(out, core.ProductMetricRow{StoreName: store, ProductName: name, ProductType: typ, NumberSold: n, ProductRevenue: rev})
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewConnectivityError("iterate product metrics", err)
	}
	return out, nil
}
