package google

import (
	"fmt"
	"strconv"
	"strings"

	"jaffle/internal/core"
	"jaffle/internal/source"
)

// parseMonthly converts a values matrix (as returned by the Sheets API) whose
// first row holds the column names into monthly metric rows.
func parseMonthly(values [][]interface{}) ([]core.MonthlyMetricRow, error) {
	return source.ParseMonthlyTable(toRecords(values))
}

func parseProducts(values [][]interface{}) ([]core.ProductMetricRow, error) {
	return source.ParseProductTable(toRecords(values))
}

func toRecords(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = toStrings(row)
	}
	return out
}

// toStrings renders cells as text. Unformatted numbers arrive as float64 and
// are printed without exponent so large revenues stay exact.
func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch n := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(n, 'f', -1, 64)
		case nil:
			out[i] = ""
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}
