// Package memory keeps both relations in process memory, seeded from CSV
// files or from the bundled Jaffle Shop sample.
package memory

import (
	"context"
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"jaffle/internal/core"
	"jaffle/internal/source"
)

const (
	MonthlyFile = "monthly_metrics.csv"
	ProductFile = "product_metrics.csv"
)

//go:embed sample/*.csv
var sampleFS embed.FS

type Store struct {
	mu       sync.RWMutex
	monthly  []core.MonthlyMetricRow
	products []core.ProductMetricRow
}

var (
	_ source.MetricsReader = (*Store)(nil)
	_ source.MetricsWriter = (*Store)(nil)
)

func New(monthly []core.MonthlyMetricRow, products []core.ProductMetricRow) *Store {
	return &Store{
		monthly:  append([]core.MonthlyMetricRow(nil), monthly...),
		products: append([]core.ProductMetricRow(nil), products...),
	}
}

// NewFromFiles reads monthly_metrics.csv and product_metrics.csv from dir.
// A missing file falls back to the bundled sample for that relation; a
// malformed file is an error.
func NewFromFiles(dir string) (*Store, error) {
	monthly, err := loadMonthly(os.DirFS(dir), MonthlyFile)
	if errors.Is(err, fs.ErrNotExist) {
		monthly, err = loadMonthly(sampleFS, "sample/"+MonthlyFile)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Join(dir, MonthlyFile), err)
	}

	products, err := loadProducts(os.DirFS(dir), ProductFile)
	if errors.Is(err, fs.ErrNotExist) {
		products, err = loadProducts(sampleFS, "sample/"+ProductFile)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Join(dir, ProductFile), err)
	}

	return New(monthly, products), nil
}

// Sample returns a store holding the bundled sample data.
func Sample() (*Store, error) {
	monthly, err := loadMonthly(sampleFS, "sample/"+MonthlyFile)
	if err != nil {
		return nil, err
	}
	products, err := loadProducts(sampleFS, "sample/"+ProductFile)
	if err != nil {
		return nil, err
	}
	return New(monthly, products), nil
}

func (s *Store) ReadMonthlyMetrics(_ context.Context) ([]core.MonthlyMetricRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.MonthlyMetricRow(nil), s.monthly...), nil
}

func (s *Store) ReadProductMetrics(_ context.Context) ([]core.ProductMetricRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.ProductMetricRow(nil), s.products...), nil
}

func (s *Store) ReplaceMetrics(_ context.Context, monthly []core.MonthlyMetricRow, products []core.ProductMetricRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monthly = append([]core.MonthlyMetricRow(nil), monthly...)
	s.products = append([]core.ProductMetricRow(nil), products...)
	return nil
}

func loadMonthly(fsys fs.FS, name string) ([]core.MonthlyMetricRow, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadMonthlyCSV(f)
}

func loadProducts(fsys fs.FS, name string) ([]core.ProductMetricRow, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadProductCSV(f)
}

// ReadMonthlyCSV parses a CSV export of analytics_monthly_metrics.
func ReadMonthlyCSV(r io.Reader) ([]core.MonthlyMetricRow, error) {
	records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	return source.ParseMonthlyTable(records)
}

// ReadProductCSV parses a CSV export of analytics_product_metrics.
func ReadProductCSV(r io.Reader) ([]core.ProductMetricRow, error) {
	records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	return source.ParseProductTable(records)
}

// WriteMonthlyCSV writes rows in the layout ReadMonthlyCSV accepts.
func WriteMonthlyCSV(w io.Writer, rows []core.MonthlyMetricRow) error {
	return writeCSV(w, source.MonthlyRecords(rows))
}

func WriteProductCSV(w io.Writer, rows []core.ProductMetricRow) error {
	return writeCSV(w, source.ProductRecords(rows))
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, &core.DataFormatError{Field: "csv", Value: "", Err: err}
	}
	return records, nil
}

func writeCSV(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
