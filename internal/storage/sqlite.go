package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"jaffle/internal/core"
	"jaffle/internal/source"
)

// SQLiteRepository serves the analytics tables from a local SQLite file.
type SQLiteRepository struct {
	db *sql.DB
	d  dialect
}

var (
	_ source.MetricsReader = (*SQLiteRepository)(nil)
	_ source.MetricsWriter = (*SQLiteRepository)(nil)
	_ source.Pinger        = (*SQLiteRepository)(nil)
)

// NewSQLiteRepository opens dbPath, creating its directory, and applies the
// embedded migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, core.NewConnectivityError("open sqlite database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, core.NewConnectivityError("ping sqlite database", err)
	}

	if err := RunSQLiteMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, d: sqliteDialect}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return core.NewConnectivityError("ping sqlite database", r.db.PingContext(ctx))
}

func (r *SQLiteRepository) ReadMonthlyMetrics(ctx context.Context) ([]core.MonthlyMetricRow, error) {
	query, args, err := r.d.monthlyQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build monthly query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.NewConnectivityError("query "+r.d.monthly, err)
	}
	defer rows.Close()
	return scanMonthly(rows)
}

func (r *SQLiteRepository) ReadProductMetrics(ctx context.Context) ([]core.ProductMetricRow, error) {
	query, args, err := r.d.productQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build product query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.NewConnectivityError("query "+r.d.products, err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// ReplaceMetrics swaps the contents of both tables in one transaction.
func (r *SQLiteRepository) ReplaceMetrics(ctx context.Context, monthly []core.MonthlyMetricRow, products []core.ProductMetricRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.NewConnectivityError("begin seed transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	exec := func(b interface {
		ToSql() (string, []interface{}, error)
	}) error {
		query, args, err := b.ToSql()
		if err != nil {
			return fmt.Errorf("build statement: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
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

	if err := tx.Commit(); err != nil {
		return core.NewConnectivityError("commit seed transaction", err)
	}
	slog.InfoContext(ctx, "Analytics tables seeded", "monthly_rows", len(monthly), "product_rows", len(products))
	return nil
}
