package backend

import (
	"context"

	"jaffle/internal/source"
	gsheet "jaffle/internal/source/google"
)

// BackendType names a data source implementation.
type BackendType string

const (
	PostgresBackend BackendType = "postgres"
	SQLiteBackend   BackendType = "sqlite"
	SheetsBackend   BackendType = "sheets"
	MemoryBackend   BackendType = "memory"
)

func (t BackendType) String() string { return string(t) }

func (t BackendType) IsValid() bool {
	switch t {
	case PostgresBackend, SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	}
	return false
}

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the reader, an optional writer and cleanup.
type BackendResult struct {
	Reader source.MetricsReader
	// Writer is nil for read-only sources such as Sheets.
	Writer  source.MetricsWriter
	Cleanup CleanupFunc
}

// Close runs Cleanup when set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Postgres
	PostgresDSN  string
	PoolMaxConns int32

	// SQLite
	SQLiteDBPath string

	// Memory: directory holding the CSV seed files
	DataDirectory string

	// Google Sheets
	Sheets gsheet.Options
}
