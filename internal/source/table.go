package source

import (
	"fmt"
	"strings"

	"jaffle/internal/core"
)

// header maps column names to positions, case-insensitively.
type header map[string]int

func newHeader(row []string, required []string) (header, error) {
	h := header{}
	for i, name := range row {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := h[key]; !dup {
			h[key] = i
		}
	}
	var missing []string
	for _, col := range required {
		if _, ok := h[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &core.DataFormatError{
			Field: "header",
			Value: strings.Join(row, ","),
			Err:   fmt.Errorf("%w: %s", core.ErrMissingColumn, strings.Join(missing, ",")),
		}
	}
	return h, nil
}

func (h header) get(row []string, col string) string {
	idx := h[col]
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ParseMonthlyTable converts a header row followed by data rows into monthly
// metric rows. Column order is free; blank rows are skipped.
func ParseMonthlyTable(records [][]string) ([]core.MonthlyMetricRow, error) {
	if len(records) == 0 {
		return nil, nil
	}
	h, err := newHeader(records[0], MonthlyColumns)
	if err != nil {
		return nil, err
	}
	out := make([]core.MonthlyMetricRow, 0, len(records)-1)
	for i, row := range records[1:] {
		if blank(row) {
			continue
		}
		r, err := parseMonthlyRow(h, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func parseMonthlyRow(h header, row []string) (core.MonthlyMetricRow, error) {
	ym, err := core.ParseYearMonth(h.get(row, ColYearMonth))
	if err != nil {
		return core.MonthlyMetricRow{}, err
	}
	revenue, err := core.ParseRevenue(ColRevenue, h.get(row, ColRevenue))
	if err != nil {
		return core.MonthlyMetricRow{}, err
	}
	orders, err := core.ParseCount(ColNumberOfOrders, h.get(row, ColNumberOfOrders))
	if err != nil {
		return core.MonthlyMetricRow{}, err
	}
	return core.MonthlyMetricRow{
		StoreName:      h.get(row, ColStoreName),
		YearMonth:      ym,
		Revenue:        revenue,
		NumberOfOrders: orders,
	}, nil
}

// ParseProductTable is the product counterpart of ParseMonthlyTable.
func ParseProductTable(records [][]string) ([]core.ProductMetricRow, error) {
	if len(records) == 0 {
		return nil, nil
	}
	h, err := newHeader(records[0], ProductColumns)
	if err != nil {
		return nil, err
	}
	out := make([]core.ProductMetricRow, 0, len(records)-1)
	for i, row := range records[1:] {
		if blank(row) {
			continue
		}
		sold, err := core.ParseCount(ColNumberSold, h.get(row, ColNumberSold))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		revenue, err := core.ParseRevenue(ColProductRevenue, h.get(row, ColProductRevenue))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, core.ProductMetricRow{
			StoreName:      h.get(row, ColStoreName),
			ProductName:    h.get(row, ColProductName),
			ProductType:    h.get(row, ColProductType),
			NumberSold:     sold,
			ProductRevenue: revenue,
		})
	}
	return out, nil
}

// MonthlyRecords renders rows back into a header plus data table.
func MonthlyRecords(rows []core.MonthlyMetricRow) [][]string {
	out := make([][]string, 0, len(rows)+1)
	out = append(out, append([]string(nil), MonthlyColumns...))
	for _, r := range rows {
		out = append(out, []string{r.StoreName, r.YearMonth.String(), r.Revenue.String(), fmt.Sprint(r.NumberOfOrders)})
	}
	return out
}

func ProductRecords(rows []core.ProductMetricRow) [][]string {
	out := make([][]string, 0, len(rows)+1)
	out = append(out, append([]string(nil), ProductColumns...))
	for _, r := range rows {
		out = append(out, []string{r.StoreName, r.ProductName, r.ProductType, fmt.Sprint(r.NumberSold), r.ProductRevenue.String()})
	}
	return out
}
