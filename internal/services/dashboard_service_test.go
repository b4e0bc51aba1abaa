package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"jaffle/internal/core"
)

type fakeReader struct {
	monthly    []core.MonthlyMetricRow
	products   []core.ProductMetricRow
	monthlyErr error
	productErr error
	block      bool
	calls      atomic.Int32
}

func (f *fakeReader) ReadMonthlyMetrics(ctx context.Context) ([]core.MonthlyMetricRow, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.monthly, f.monthlyErr
}

func (f *fakeReader) ReadProductMetrics(ctx context.Context) ([]core.ProductMetricRow, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.products, f.productErr
}

type pingingReader struct {
	fakeReader
	pingErr error
}

func (p *pingingReader) Ping(context.Context) error { return p.pingErr }

func newFakeReader() *fakeReader {
	return &fakeReader{
		monthly: []core.MonthlyMetricRow{
			{StoreName: "Philadelphia", YearMonth: core.MustYearMonth("2019-02"), Revenue: decimal.RequireFromString("200.50"), NumberOfOrders: 20},
			{StoreName: "Philadelphia", YearMonth: core.MustYearMonth("2019-01"), Revenue: decimal.RequireFromString("100"), NumberOfOrders: 10},
			{StoreName: "Brooklyn", YearMonth: core.MustYearMonth("2019-01"), Revenue: decimal.RequireFromString("50"), NumberOfOrders: 5},
		},
		products: []core.ProductMetricRow{
			{StoreName: "Philadelphia", ProductName: "nutellaphone who dis?", ProductType: "jaffle", NumberSold: 7, ProductRevenue: decimal.RequireFromString("77")},
			{StoreName: "Brooklyn", ProductName: "nutellaphone who dis?", ProductType: "jaffle", NumberSold: 3, ProductRevenue: decimal.RequireFromString("33")},
			{StoreName: "Brooklyn", ProductName: "vanilla ice", ProductType: "beverage", NumberSold: 12, ProductRevenue: decimal.RequireFromString("72")},
		},
	}
}

func TestDashboardServiceRenderAll(t *testing.T) {
	r := newFakeReader()
	svc := NewDashboardService(r)

	d, err := svc.Render(context.Background(), core.AllStores())
	if err != nil {
		t.Fatal(err)
	}
	if got := r.calls.Load(); got != 2 {
		t.Fatalf("expected both relations read once, got %d calls", got)
	}
	if !d.KPI.TotalRevenue.Equal(decimal.RequireFromString("350.5")) || d.KPI.TotalOrders != 35 {
		t.Fatalf("unexpected KPI %+v", d.KPI)
	}
	if len(d.Monthly) != 2 || d.Monthly[0].Month.String() != "2019-01" || d.Monthly[0].NumberOfOrders != 15 {
		t.Fatalf("unexpected series %+v", d.Monthly)
	}
	if len(d.Products) != 2 || d.Products[0].ProductName != "vanilla ice" || d.Products[1].UnitsSold != 10 {
		t.Fatalf("unexpected products %+v", d.Products)
	}
	want := []string{"All", "Brooklyn", "Philadelphia"}
	if len(d.Stores) != len(want) {
		t.Fatalf("unexpected stores %v", d.Stores)
	}
	for i := range want {
		if d.Stores[i] != want[i] {
			t.Fatalf("unexpected stores %v", d.Stores)
		}
	}
}

func TestDashboardServiceRenderSingleStore(t *testing.T) {
	svc := NewDashboardService(newFakeReader())
	d, err := svc.Render(context.Background(), core.SingleStore("Brooklyn"))
	if err != nil {
		t.Fatal(err)
	}
	if d.KPI.TotalOrders != 5 || len(d.Products) != 2 || len(d.Monthly) != 1 {
		t.Fatalf("unexpected dashboard %+v", d)
	}
}

func TestDashboardServiceErrors(t *testing.T) {
	boom := errors.New("connection refused")
	tests := []struct {
		name     string
		mutate   func(*fakeReader)
		wantConn bool
	}{
		{
			name:     "monthly read fails",
			mutate:   func(r *fakeReader) { r.monthlyErr = boom },
			wantConn: true,
		},
		{
			name:     "product read fails",
			mutate:   func(r *fakeReader) { r.productErr = boom },
			wantConn: true,
		},
		{
			name: "malformed row passes through",
			mutate: func(r *fakeReader) {
				r.monthlyErr = &core.DataFormatError{Field: "year_month", Value: "2019-13", Err: core.ErrInvalidMonth}
			},
		},
		{
			name: "negative value from aggregation",
			mutate: func(r *fakeReader) {
				r.monthly[0].Revenue = decimal.RequireFromString("-1")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newFakeReader()
			tt.mutate(r)
			_, err := NewDashboardService(r).Render(context.Background(), core.AllStores())
			if err == nil {
				t.Fatal("expected error")
			}
			var ce *core.ConnectivityError
			var de *core.DataFormatError
			if tt.wantConn {
				if !errors.As(err, &ce) || !errors.Is(err, boom) {
					t.Fatalf("expected ConnectivityError wrapping cause, got %v", err)
				}
				return
			}
			if !errors.As(err, &de) {
				t.Fatalf("expected DataFormatError, got %T %v", err, err)
			}
		})
	}
}

func TestDashboardServiceTimeout(t *testing.T) {
	r := newFakeReader()
	r.block = true
	svc := NewDashboardService(r, WithQueryTimeout(20*time.Millisecond))

	_, err := svc.Render(context.Background(), core.AllStores())
	var ce *core.ConnectivityError
	if !errors.As(err, &ce) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline wrapped in ConnectivityError, got %v", err)
	}
}

func TestDashboardServiceStores(t *testing.T) {
	stores, err := NewDashboardService(newFakeReader()).Stores(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(stores) != 3 || stores[0] != core.AllStoresLabel {
		t.Fatalf("unexpected stores %v", stores)
	}

	r := newFakeReader()
	r.productErr = errors.New("down")
	if _, err := NewDashboardService(r).Stores(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestDashboardServicePing(t *testing.T) {
	if err := NewDashboardService(newFakeReader()).Ping(context.Background()); err != nil {
		t.Fatalf("readers without Ping are always ready: %v", err)
	}

	p := &pingingReader{pingErr: errors.New("no route to host")}
	err := NewDashboardService(p).Ping(context.Background())
	var ce *core.ConnectivityError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConnectivityError, got %v", err)
	}
}
