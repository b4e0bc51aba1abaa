package services

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"jaffle/internal/core"
)

func sampleDashboard(t *testing.T) core.Dashboard {
	t.Helper()
	d, err := NewDashboardService(newFakeReader()).Render(t.Context(), core.AllStores())
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestWriteXLSX(t *testing.T) {
	svc := NewExportService()
	svc.now = func() time.Time { return time.Date(2019, 12, 31, 8, 0, 0, 0, time.UTC) }

	var buf bytes.Buffer
	if err := svc.Write(&buf, sampleDashboard(t), "XLSX"); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 3 || sheets[0] != "Products" || sheets[1] != "Monthly" || sheets[2] != "Summary" {
		t.Fatalf("unexpected sheets %v", sheets)
	}

	raw := excelize.Options{RawCellValue: true}
	products, err := f.GetRows("Products", raw)
	if err != nil {
		t.Fatal(err)
	}
	wantProducts := [][]string{
		{"Product Name", "Product Type", "Units Sold", "Revenue $"},
		{"vanilla ice", "beverage", "12", "72"},
		{"nutellaphone who dis?", "jaffle", "10", "110"},
	}
	assertRows(t, "Products", products, wantProducts)

	monthly, err := f.GetRows("Monthly", raw)
	if err != nil {
		t.Fatal(err)
	}
	assertRows(t, "Monthly", monthly, [][]string{
		{"Month", "Revenue", "Orders"},
		{"2019-01", "150", "15"},
		{"2019-02", "200.5", "20"},
	})

	summary, err := f.GetRows("Summary", raw)
	if err != nil {
		t.Fatal(err)
	}
	assertRows(t, "Summary", summary, [][]string{
		{"Store", "All"},
		{"Total Revenue", "350.5"},
		{"Total Orders", "35"},
		{"Generated At", "2019-12-31T08:00:00Z"},
	})
}

func TestWriteXLSXEmptyDashboard(t *testing.T) {
	var buf bytes.Buffer
	d := core.Dashboard{Filter: core.SingleStore("Nowhere")}
	if err := NewExportService().WriteXLSX(&buf, d); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows("Products")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %v", rows)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := NewExportService().Write(&buf, sampleDashboard(t), FormatJSON); err != nil {
		t.Fatal(err)
	}
	var out struct {
		Filter string `json:"filter"`
		KPI    struct {
			TotalRevenue string `json:"total_revenue"`
			TotalOrders  int64  `json:"total_orders"`
		} `json:"kpi"`
		Monthly []struct {
			Month string `json:"month"`
		} `json:"monthly"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out.Filter != "All" || out.KPI.TotalRevenue != "350.5" || out.KPI.TotalOrders != 35 {
		t.Fatalf("unexpected payload %+v", out)
	}
	if len(out.Monthly) != 2 || out.Monthly[0].Month != "2019-01" {
		t.Fatalf("unexpected monthly %+v", out.Monthly)
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	if err := NewExportService().Write(&bytes.Buffer{}, core.Dashboard{}, "csv"); err == nil {
		t.Fatal("expected error")
	}
	if ValidFormat("csv") || !ValidFormat("json") || !ValidFormat("XLSX") {
		t.Fatal("ValidFormat mismatch")
	}
}

func assertRows(t *testing.T, sheet string, got, want [][]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: expected %d rows, got %d: %v", sheet, len(want), len(got), got)
	}
	for i := range want {
		if len(got[i]) != len(want[i]) {
			t.Fatalf("%s row %d: got %v want %v", sheet, i, got[i], want[i])
		}
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Fatalf("%s row %d col %d: got %q want %q", sheet, i, j, got[i][j], want[i][j])
			}
		}
	}
}
