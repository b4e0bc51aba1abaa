package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jaffle/internal/core"
	"jaffle/internal/source"
)

// PostgresRepository reads the analytics schema through a pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
	d    dialect
}

var (
	_ source.MetricsReader = (*PostgresRepository)(nil)
	_ source.MetricsWriter = (*PostgresRepository)(nil)
	_ source.Pinger        = (*PostgresRepository)(nil)
)

// PostgresOptions tunes the pool; zero values keep pgx defaults.
type PostgresOptions struct {
	MaxConns int32
}

// NewPostgresRepository connects and pings. A malformed DSN is a
// configuration problem; a failed connect or ping is a connectivity problem.
func NewPostgresRepository(ctx context.Context, dsn string, opts PostgresOptions) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, &core.ConfigurationError{Problems: []string{fmt.Sprintf("invalid database connection string: %v", err)}}
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, core.NewConnectivityError("connect postgres", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, core.NewConnectivityError("ping postgres", err)
	}

	slog.InfoContext(ctx, "Connected to PostgreSQL",
		"host", cfg.ConnConfig.Host,
		"database", cfg.ConnConfig.Database,
		"max_conns", cfg.MaxConns)

	return &PostgresRepository{pool: pool, d: postgresDialect}, nil
}

func (r *PostgresRepository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return core.NewConnectivityError("ping postgres", r.pool.Ping(ctx))
}

func (r *PostgresRepository) ReadMonthlyMetrics(ctx context.Context) ([]core.MonthlyMetricRow, error) {
	query, args, err := r.d.monthlyQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build monthly query: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, core.NewConnectivityError("query "+r.d.monthly, err)
	}
	defer rows.Close()
	return scanMonthly(rows)
}

func (r *PostgresRepository) ReadProductMetrics(ctx context.Context) ([]core.ProductMetricRow, error) {
	query, args, err := r.d.productQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build product query: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, core.NewConnectivityError("query "+r.d.products, err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// ReplaceMetrics swaps the contents of both tables in one transaction.
func (r *PostgresRepository) ReplaceMetrics(ctx context.Context, monthly []core.MonthlyMetricRow, products []core.ProductMetricRow) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return core.NewConnectivityError("begin seed transaction", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	exec := func(b interface {
		ToSql() (string, []interface{}, error)
	}) error {
		query, args, err := b.ToSql()
		if err != nil {
			return fmt.Errorf("build statement: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return core.NewConnectivityError("seed analytics tables", err)
		}
		return nil
	}

	for _, table := range []string{r.d.monthly, r.d.products} {
		if err := exec(r.d.deleteAll(table)); err != nil {
			return err
		}
	}
	for _, ins := range r.d.monthlyInserts(monthly) {
		if err := exec(ins); err != nil {
			return err
		}
	}
	for _, ins := range r.d.productInserts(products) {
		if err := exec(ins); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return core.NewConnectivityError("commit seed transaction", err)
	}
	slog.InfoContext(ctx, "Analytics tables seeded", "monthly_rows", len(monthly), "product_rows", len(products))
	return nil
}
