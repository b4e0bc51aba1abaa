package services

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"jaffle/internal/core"
)

// Export formats.
const (
	FormatXLSX = "xlsx"
	FormatJSON = "json"
)

const (
	productsSheet = "Products"
	monthlySheet  = "Monthly"
	summarySheet  = "Summary"

	currencyFormat = "$#,##0.00"
	countFormat    = "#,##0"
)

// ProductHeaders are the display names of the product table columns.
var ProductHeaders = []string{"Product Name", "Product Type", "Units Sold", "Revenue $"}

var monthlyHeaders = []string{"Month", "Revenue", "Orders"}

// ExportService writes a rendered dashboard to a file format.
type ExportService struct {
	now func() time.Time
}

func NewExportService() *ExportService {
	return &ExportService{now: time.Now}
}

// ValidFormat reports whether format is one Write understands.
func ValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case FormatXLSX, FormatJSON:
		return true
	}
	return false
}

// ContentType returns the MIME type for an export format.
func ContentType(format string) string {
	if strings.ToLower(format) == FormatJSON {
		return "application/json"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Write dispatches on format.
func (s *ExportService) Write(w io.Writer, d core.Dashboard, format string) error {
	switch strings.ToLower(format) {
	case FormatXLSX:
		return s.WriteXLSX(w, d)
	case FormatJSON:
		return s.WriteJSON(w, d)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteJSON writes the dashboard view model as indented JSON.
func (s *ExportService) WriteJSON(w io.Writer, d core.Dashboard) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode dashboard: %w", err)
	}
	return nil
}

// WriteXLSX writes a workbook with Products, Monthly and Summary sheets.
func (s *ExportService) WriteXLSX(w io.Writer, d core.Dashboard) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", productsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{monthlySheet, summarySheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	st, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := writeProducts(f, st, d.Products); err != nil {
		return err
	}
	if err := writeMonthly(f, st, d.Monthly); err != nil {
		return err
	}
	if err := s.writeSummary(f, st, d); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type styles struct {
	header   int
	currency int
	count    int
}

func newStyles(f *excelize.File) (styles, error) {
	var (
		st  styles
		err error
	)
	cur, cnt := currencyFormat, countFormat
	if st.header, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return st, fmt.Errorf("header style: %w", err)
	}
	if st.currency, err = f.NewStyle(&excelize.Style{CustomNumFmt: &cur}); err != nil {
		return st, fmt.Errorf("currency style: %w", err)
	}
	if st.count, err = f.NewStyle(&excelize.Style{CustomNumFmt: &cnt}); err != nil {
		return st, fmt.Errorf("count style: %w", err)
	}
	return st, nil
}

func writeHeader(f *excelize.File, st styles, sheet string, headers []string) error {
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, st.header)
}

func writeProducts(f *excelize.File, st styles, table core.ProductTable) error {
	if err := writeHeader(f, st, productsSheet, ProductHeaders); err != nil {
		return err
	}
	for i, line := range table {
		cell := fmt.Sprintf("A%d", i+2)
		row := []interface{}{line.ProductName, line.ProductType, line.UnitsSold, line.Revenue.InexactFloat64()}
		if err := f.SetSheetRow(productsSheet, cell, &row); err != nil {
			return fmt.Errorf("write product row %d: %w", i+1, err)
		}
	}
	if n := len(table); n > 0 {
		if err := f.SetCellStyle(productsSheet, "C2", fmt.Sprintf("C%d", n+1), st.count); err != nil {
			return err
		}
		if err := f.SetCellStyle(productsSheet, "D2", fmt.Sprintf("D%d", n+1), st.currency); err != nil {
			return err
		}
	}
	return f.SetColWidth(productsSheet, "A", "B", 24)
}

func writeMonthly(f *excelize.File, st styles, series core.MonthlySeries) error {
	if err := writeHeader(f, st, monthlySheet, monthlyHeaders); err != nil {
		return err
	}
	for i, p := range series {
		cell := fmt.Sprintf("A%d", i+2)
		row := []interface{}{p.Month.String(), p.Revenue.InexactFloat64(), p.NumberOfOrders}
		if err := f.SetSheetRow(monthlySheet, cell, &row); err != nil {
			return fmt.Errorf("write monthly row %d: %w", i+1, err)
		}
	}
	if n := len(series); n > 0 {
		if err := f.SetCellStyle(monthlySheet, "B2", fmt.Sprintf("B%d", n+1), st.currency); err != nil {
			return err
		}
		if err := f.SetCellStyle(monthlySheet, "C2", fmt.Sprintf("C%d", n+1), st.count); err != nil {
			return err
		}
	}
	return nil
}

func (s *ExportService) writeSummary(f *excelize.File, st styles, d core.Dashboard) error {
	rows := [][]interface{}{
		{"Store", d.Filter.String()},
		{"Total Revenue", d.KPI.TotalRevenue.InexactFloat64()},
		{"Total Orders", d.KPI.TotalOrders},
		{"Generated At", s.now().UTC().Format(time.RFC3339)},
	}
	for i, row := range rows {
		r := row
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &r); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", "A4", st.header); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "B2", "B2", st.currency); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "B3", "B3", st.count); err != nil {
		return err
	}
	return f.SetColWidth(summarySheet, "A", "B", 20)
}
