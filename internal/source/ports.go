// Package source defines the ports through which the dashboard reads its two
// input relations, plus the header-driven table parsing shared by the
// file and spreadsheet adapters.
package source

import (
	"context"

	"jaffle/internal/core"
)

// Ports for outbound adapters.
type (
	// MetricsReader supplies the monthly and product relations.
	MetricsReader interface {
		ReadMonthlyMetrics(ctx context.Context) ([]core.MonthlyMetricRow, error)
		ReadProductMetrics(ctx context.Context) ([]core.ProductMetricRow, error)
	}

	// Pinger is implemented by readers backed by a remote service.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// MetricsWriter replaces the stored relations; used for seeding.
	MetricsWriter interface {
		ReplaceMetrics(ctx context.Context, monthly []core.MonthlyMetricRow, products []core.ProductMetricRow) error
	}
)

// Column names of the two analytics tables.
const (
	ColStoreName      = "store_name"
	ColYearMonth      = "year_month"
	ColRevenue        = "revenue"
	ColNumberOfOrders = "number_of_orders"
	ColProductName    = "product_name"
	ColProductType    = "product_type"
	ColNumberSold     = "number_sold"
	ColProductRevenue = "product_revenue"
)

var (
	MonthlyColumns = []string{ColStoreName, ColYearMonth, ColRevenue, ColNumberOfOrders}
	ProductColumns = []string{ColStoreName, ColProductName, ColProductType, ColNumberSold, ColProductRevenue}
)
