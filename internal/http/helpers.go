package http

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"jaffle/internal/core"
	"jaffle/internal/services"
)

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"currency": core.FormatCurrency,
		"count":    core.FormatCount,
		"decimal":  func(d decimal.Decimal) string { return d.String() },
	}
}

type storeOption struct {
	Name     string
	Selected bool
}

// dashboardView is the template data for the page and its partial.
type dashboardView struct {
	Title            string
	Selected         string
	Stores           []storeOption
	Dashboard        core.Dashboard
	ProductHeaders   []string
	KnownStore       bool
	SnapshotsEnabled bool
	Error            *errorView
}

func newDashboardView(f core.Filter, d core.Dashboard, stores []string, snapshots bool) dashboardView {
	selected := f.String()
	opts := make([]storeOption, 0, len(stores)+1)
	found := false
	for _, name := range stores {
		sel := name == selected
		found = found || sel
		opts = append(opts, storeOption{Name: name, Selected: sel})
	}
	if !found {
		// Keep an unknown selection visible rather than silently showing All.
		opts = append(opts, storeOption{Name: selected, Selected: true})
	}
	return dashboardView{
		Title:            DashboardTitle,
		Selected:         selected,
		Stores:           opts,
		Dashboard:        d,
		ProductHeaders:   services.ProductHeaders,
		KnownStore:       d.KnownStore(),
		SnapshotsEnabled: snapshots,
	}
}

// errorView is what the error panel shows.
type errorView struct {
	Status    int
	Kind      string
	Title     string
	Message   string
	RequestID string
}

// classifyError maps the error taxonomy to a status code and panel text.
// Connection details stay in the logs.
func classifyError(err error) *errorView {
	var (
		ce  *core.ConnectivityError
		de  *core.DataFormatError
		cfg *core.ConfigurationError
	)
	switch {
	case errors.As(err, &de):
		return &errorView{
			Status:  http.StatusInternalServerError,
			Kind:    "data_format",
			Title:   "Malformed sales data",
			Message: de.Error(),
		}
	case errors.As(err, &ce):
		return &errorView{
			Status:  http.StatusBadGateway,
			Kind:    "connectivity",
			Title:   "Data source unavailable",
			Message: "Could not " + ce.Op + ". Check the database connection and try again.",
		}
	case errors.As(err, &cfg):
		return &errorView{
			Status:  http.StatusInternalServerError,
			Kind:    "configuration",
			Title:   "Dashboard is misconfigured",
			Message: "The server configuration is invalid.",
		}
	default:
		return &errorView{
			Status:  http.StatusInternalServerError,
			Kind:    "internal",
			Title:   "Unexpected error",
			Message: "The dashboard could not be rendered.",
		}
	}
}

// apiError is the JSON error body.
type apiError struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (e *errorView) toAPI() apiError {
	return apiError{Error: e.Title, Kind: e.Kind, Message: e.Message, RequestID: e.RequestID}
}
