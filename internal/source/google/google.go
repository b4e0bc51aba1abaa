// Package google reads the two metric relations from tabs of a Google
// Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"jaffle/internal/core"
	"jaffle/internal/source"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// ValuesGetter fetches a range of cell values. It is satisfied by the Sheets
// API through apiValues and by fakes in tests.
type ValuesGetter interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
}

type Options struct {
	SpreadsheetID   string
	MonthlySheet    string
	ProductSheet    string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	values        ValuesGetter
	spreadsheetID string
	monthlySheet  string
	productSheet  string
}

// Ensure interface conformance
var (
	_ source.MetricsReader = (*Client)(nil)
	_ source.Pinger        = (*Client)(nil)
)

// New creates a Sheets client authenticated with service account credentials
// from opts, falling back to GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, &core.ConfigurationError{Problems: []string{"missing GOOGLE_SPREADSHEET_ID"}}
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, err
	}
	return NewWithValues(apiValues{svc: svc}, opts), nil
}

// NewWithValues builds a client over an existing ValuesGetter.
func NewWithValues(values ValuesGetter, opts Options) *Client {
	monthly := strings.TrimSpace(opts.MonthlySheet)
	if monthly == "" {
		monthly = "monthly_metrics"
	}
	product := strings.TrimSpace(opts.ProductSheet)
	if product == "" {
		product = "product_metrics"
	}
	return &Client{
		values:        values,
		spreadsheetID: strings.TrimSpace(opts.SpreadsheetID),
		monthlySheet:  monthly,
		productSheet:  product,
	}
}

func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	credentialsJSON := []byte(strings.TrimSpace(opts.CredentialsJSON))
	if len(credentialsJSON) == 0 {
		file := strings.TrimSpace(opts.CredentialsFile)
		if file == "" {
			file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
		}
		if file == "" {
			return nil, &core.ConfigurationError{Problems: []string{"missing service account credentials (set GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE)"}}
		}
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, &core.ConfigurationError{Problems: []string{fmt.Sprintf("read service account file: %v", err)}}
		}
		credentialsJSON = b
	}

	slog.DebugContext(ctx, "Creating Google Sheets service",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsReadonlyScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, core.NewConnectivityError("create sheets service", err)
	}
	return service, nil
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

type apiValues struct {
	svc *gsheet.Service
}

func (a apiValues) Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	if a.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := a.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (c *Client) ReadMonthlyMetrics(ctx context.Context) ([]core.MonthlyMetricRow, error) {
	values, err := c.read(ctx, c.monthlySheet)
	if err != nil {
		return nil, err
	}
	return parseMonthly(values)
}

func (c *Client) ReadProductMetrics(ctx context.Context) ([]core.ProductMetricRow, error) {
	values, err := c.read(ctx, c.productSheet)
	if err != nil {
		return nil, err
	}
	return parseProducts(values)
}

// Ping reads the header row of the monthly tab.
func (c *Client) Ping(ctx context.Context) error {
	rng := fmt.Sprintf("%s!1:1", quoteSheet(c.monthlySheet))
	if _, err := c.values.Get(ctx, c.spreadsheetID, rng); err != nil {
		return core.NewConnectivityError("ping sheets "+rng, err)
	}
	return nil
}

func (c *Client) read(ctx context.Context, sheet string) ([][]interface{}, error) {
	rng := quoteSheet(sheet)
	values, err := c.values.Get(ctx, c.spreadsheetID, rng)
	if err != nil {
		return nil, core.NewConnectivityError("read "+rng, err)
	}
	return values, nil
}

// quoteSheet wraps a tab name in quotes when A1 notation requires it.
func quoteSheet(name string) string {
	if strings.ContainsAny(name, " '!") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}
