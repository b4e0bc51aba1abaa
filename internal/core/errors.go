package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidMonth  = errors.New("invalid month")
	ErrNegative      = errors.New("negative value")
	ErrNotNumeric    = errors.New("not a number")
	ErrMissingColumn = errors.New("missing column")
)

// ConfigurationError lists every missing or invalid connection parameter.
// It is fatal and raised before any query runs.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "configuration validation failed:\n- " + strings.Join(e.Problems, "\n- ")
}

// ConnectivityError means the data source was unreachable or a query failed.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// NewConnectivityError wraps err unless it is nil or already one of the typed
// errors of this package.
func NewConnectivityError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ConnectivityError
	var de *DataFormatError
	var cfg *ConfigurationError
	if errors.As(err, &ce) || errors.As(err, &de) || errors.As(err, &cfg) {
		return err
	}
	return &ConnectivityError{Op: op, Err: err}
}

// DataFormatError reports a month or numeric field that cannot be parsed.
type DataFormatError struct {
	Field string
	Value string
	Err   error
}

func (e *DataFormatError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *DataFormatError) Unwrap() error { return e.Err }
