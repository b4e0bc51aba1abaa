package memory

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jaffle/internal/core"
)

func TestSampleStoreLoads(t *testing.T) {
	s, err := Sample()
	if err != nil {
		t.Fatal(err)
	}
	monthly, err := s.ReadMonthlyMetrics(context.Background())
	if err != nil || len(monthly) == 0 {
		t.Fatalf("expected sample monthly rows, got %d (err=%v)", len(monthly), err)
	}
	products, err := s.ReadProductMetrics(context.Background())
	if err != nil || len(products) == 0 {
		t.Fatalf("expected sample product rows, got %d (err=%v)", len(products), err)
	}
	if _, _, _, err := core.Aggregate(monthly, products, core.AllStores()); err != nil {
		t.Fatalf("sample data must aggregate cleanly: %v", err)
	}
}

func TestNewFromFilesFallsBackToSample(t *testing.T) {
	s, err := NewFromFiles(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	rows, _ := s.ReadMonthlyMetrics(context.Background())
	if len(rows) == 0 {
		t.Fatal("expected sample rows when files are missing")
	}
}

func TestNewFromFilesReadsDirectory(t *testing.T) {
	dir := t.TempDir()
	monthly := "store_name,year_month,revenue,number_of_orders\nA,2019-02,50,2\nA,2019-01,100,5\n"
	products := "product_name,store_name,product_type,number_sold,product_revenue\nCoffee,A,Beverage,10,30\n"
	if err := os.WriteFile(filepath.Join(dir, MonthlyFile), []byte(monthly), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ProductFile), []byte(products), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewFromFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	m, _ := s.ReadMonthlyMetrics(context.Background())
	if len(m) != 2 || m[0].YearMonth.String() != "2019-02" || m[1].NumberOfOrders != 5 {
		t.Fatalf("unexpected monthly rows %+v", m)
	}
	p, _ := s.ReadProductMetrics(context.Background())
	if len(p) != 1 || p[0].StoreName != "A" || p[0].ProductName != "Coffee" {
		t.Fatalf("unexpected product rows %+v", p)
	}
}

func TestNewFromFilesRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	bad := "store_name,year_month,revenue,number_of_orders\nA,March 2019,100,5\n"
	if err := os.WriteFile(filepath.Join(dir, MonthlyFile), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewFromFiles(dir)
	var de *core.DataFormatError
	if !errors.As(err, &de) {
		t.Fatalf("expected DataFormatError, got %v", err)
	}
}

func TestReadsReturnCopies(t *testing.T) {
	s := New([]core.MonthlyMetricRow{{StoreName: "A", YearMonth: core.MustYearMonth("2019-01")}}, nil)
	rows, _ := s.ReadMonthlyMetrics(context.Background())
	rows[0].StoreName = "changed"
	again, _ := s.ReadMonthlyMetrics(context.Background())
	if again[0].StoreName != "A" {
		t.Fatal("store contents were modified through a returned slice")
	}
}

func TestCSVRoundTripThroughWriter(t *testing.T) {
	s, err := Sample()
	if err != nil {
		t.Fatal(err)
	}
	products, _ := s.ReadProductMetrics(context.Background())

	var buf bytes.Buffer
	if err := WriteProductCSV(&buf, products); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "store_name,product_name,product_type,number_sold,product_revenue\n") {
		t.Fatalf("unexpected header: %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}
	back, err := ReadProductCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != len(products) {
		t.Fatalf("got %d rows, want %d", len(back), len(products))
	}
	for i := range back {
		if back[i].ProductName != products[i].ProductName || !back[i].ProductRevenue.Equal(products[i].ProductRevenue) {
			t.Fatalf("row %d differs: %+v vs %+v", i, back[i], products[i])
		}
	}
}

func TestReplaceMetrics(t *testing.T) {
	s := New(nil, nil)
	err := s.ReplaceMetrics(context.Background(), nil, []core.ProductMetricRow{{StoreName: "B"}})
	if err != nil {
		t.Fatal(err)
	}
	p, _ := s.ReadProductMetrics(context.Background())
	if len(p) != 1 || p[0].StoreName != "B" {
		t.Fatalf("unexpected rows %+v", p)
	}
}
