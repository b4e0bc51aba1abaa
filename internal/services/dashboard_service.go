package services

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"jaffle/internal/core"
	"jaffle/internal/source"
)

const defaultQueryTimeout = 15 * time.Second

// DashboardService fetches both metric relations and runs the aggregation
// for one filter selection.
type DashboardService struct {
	reader  source.MetricsReader
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a DashboardService.
type Option func(*DashboardService)

// WithQueryTimeout bounds each render. Zero disables the bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *DashboardService) { s.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *DashboardService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewDashboardService(reader source.MetricsReader, opts ...Option) *DashboardService {
	s := &DashboardService{
		reader:  reader,
		timeout: defaultQueryTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Render produces the full dashboard for f. Reader failures come back as
// *core.ConnectivityError, malformed rows as *core.DataFormatError.
func (s *DashboardService) Render(ctx context.Context, f core.Filter) (core.Dashboard, error) {
	monthly, products, err := s.fetch(ctx)
	if err != nil {
		return core.Dashboard{}, err
	}

	d, err := core.BuildDashboard(monthly, products, f)
	if err != nil {
		return core.Dashboard{}, err
	}

	s.logger.DebugContext(ctx, "Dashboard rendered",
		"store", f.String(),
		"products", len(d.Products),
		"months", len(d.Monthly))
	return d, nil
}

// Stores returns the store selector options, "All" first.
func (s *DashboardService) Stores(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	products, err := s.reader.ReadProductMetrics(ctx)
	if err != nil {
		return nil, wrapReadError("read product metrics", err)
	}
	return core.StoreOptions(products), nil
}

// Ping checks the source when it supports it.
func (s *DashboardService) Ping(ctx context.Context) error {
	p, ok := s.reader.(source.Pinger)
	if !ok {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return wrapReadError("ping data source", p.Ping(ctx))
}

func (s *DashboardService) fetch(ctx context.Context) ([]core.MonthlyMetricRow, []core.ProductMetricRow, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		monthly  []core.MonthlyMetricRow
		products []core.ProductMetricRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.reader.ReadMonthlyMetrics(gctx)
		if err != nil {
			return wrapReadError("read monthly metrics", err)
		}
		monthly = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.reader.ReadProductMetrics(gctx)
		if err != nil {
			return wrapReadError("read product metrics", err)
		}
		products = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return monthly, products, nil
}

func (s *DashboardService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func wrapReadError(op string, err error) error {
	return core.NewConnectivityError(op, err)
}
