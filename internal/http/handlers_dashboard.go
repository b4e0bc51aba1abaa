package http

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"jaffle/internal/amqp"
	"jaffle/internal/charts"
	"jaffle/internal/core"
	applog "jaffle/internal/log"
	"jaffle/internal/middleware/trace"
	"jaffle/internal/services"
)

type chartRenderer func(w io.Writer, series core.MonthlySeries, opts charts.Options) error

// render runs the dashboard service and logs the outcome.
func (s *Server) render(r *http.Request) (core.Filter, core.Dashboard, *errorView) {
	ctx := r.Context()
	f := ParseFilter(r.URL.Query())

	d, err := s.dashboard.Render(ctx, f)
	s.recordRender(err)
	if err != nil {
		ev := classifyError(err)
		ev.RequestID = trace.GetRequestID(ctx)
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Dashboard render failed", err,
			applog.ComponentDashboard, applog.OpRender,
			applog.NewFields().WithErrorType(ev.Kind).WithRequestID(ev.RequestID).WithRender(f.String(), 0, 0))
		return f, core.Dashboard{}, ev
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).LogRender(ctx, f.String(), len(d.Products), len(d.Monthly))
	return f, d, nil
}

func (s *Server) viewFor(f core.Filter, d core.Dashboard, ev *errorView) dashboardView {
	stores := d.Stores
	if ev != nil {
		stores = []string{core.AllStoresLabel}
	}
	view := newDashboardView(f, d, stores, s.publisher != nil)
	view.Error = ev
	if ev != nil {
		view.KnownStore = true
	}
	return view
}

// executeTemplate renders into a buffer first so template failures still
// produce a clean 500.
func (s *Server) executeTemplate(w http.ResponseWriter, r *http.Request, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		ctx := r.Context()
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Template execution failed", err,
			applog.ComponentTemplate, applog.OpRender, applog.NewFields().With("template", name))
		ErrorResponse(http.StatusInternalServerError, "Unexpected error", "The page could not be rendered.").Write(w)
		return
	}
	NewHTMXResponse().Status(status).BodyHTML(buf.String()).Write(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("Page not found.").Write(w)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	f, d, ev := s.render(r)
	status := http.StatusOK
	if ev != nil {
		status = ev.Status
	}
	s.executeTemplate(w, r, status, "index.html", s.viewFor(f, d, ev))
}

// handleDashboardPartial serves the section swapped in when the store
// selector changes.
func (s *Server) handleDashboardPartial(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	f, d, ev := s.render(r)
	status := http.StatusOK
	if ev != nil {
		status = ev.Status
	}
	if isHTMX(r) {
		w.Header().Set("HX-Push-Url", "/?"+url.Values{"store": {f.String()}}.Encode())
	}
	s.executeTemplate(w, r, status, "dashboard", s.viewFor(f, d, ev))
}

func (s *Server) handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	_, d, ev := s.render(r)
	if ev != nil {
		NewHTMXResponse().Status(ev.Status).BodyJSON(ev.toAPI()).Write(w)
		return
	}
	NewHTMXResponse().BodyJSON(d).Write(w)
}

func (s *Server) handleAPIStores(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	ctx := r.Context()
	stores, err := s.dashboard.Stores(ctx)
	if err != nil {
		ev := classifyError(err)
		ev.RequestID = trace.GetRequestID(ctx)
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Store list failed", err,
			applog.ComponentDashboard, applog.OpRead, nil)
		NewHTMXResponse().Status(ev.Status).BodyJSON(ev.toAPI()).Write(w)
		return
	}
	NewHTMXResponse().BodyJSON(map[string][]string{"stores": stores}).Write(w)
}

func (s *Server) handleChart(renderChart chartRenderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resp := RequireGET(r); resp != nil {
			resp.Write(w)
			return
		}

		f, d, ev := s.render(r)
		if ev != nil {
			ErrorResponse(ev.Status, ev.Title, ev.Message).Write(w)
			return
		}

		var buf bytes.Buffer
		if err := renderChart(&buf, d.Monthly, s.chartOpts); err != nil {
			if errors.Is(err, charts.ErrNoData) {
				NotFoundError("No monthly data for " + f.String() + ".").Write(w)
				return
			}
			ctx := r.Context()
			applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Chart rendering failed", err,
				applog.ComponentCharts, applog.OpRender, nil)
			ErrorResponse(http.StatusInternalServerError, "Chart unavailable", "The chart could not be drawn.").Write(w)
			return
		}

		NewHTMXResponse().Header("Content-Type", "image/png").Body(buf.Bytes()).Write(w)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.exporter == nil {
		ServiceUnavailableError("Exports are not enabled.").Write(w)
		return
	}

	f, d, ev := s.render(r)
	if ev != nil {
		ErrorResponse(ev.Status, ev.Title, ev.Message).Write(w)
		return
	}

	var buf bytes.Buffer
	if err := s.exporter.Write(&buf, d, services.FormatXLSX); err != nil {
		ctx := r.Context()
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Export failed", err,
			applog.ComponentExport, applog.OpExport, nil)
		ErrorResponse(http.StatusInternalServerError, "Export failed", "The workbook could not be generated.").Write(w)
		return
	}

	NewHTMXResponse().
		Header("Content-Type", services.ContentType(services.FormatXLSX)).
		Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": exportFileName(f)})).
		Body(buf.Bytes()).
		Write(w)
}

func exportFileName(f core.Filter) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, f.String())
	return "jaffle_products_" + name + ".xlsx"
}

// handleSnapshot enqueues a snapshot request for the worker.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.publisher == nil {
		ServiceUnavailableError("Snapshots require AMQP_URL to be configured.").Write(w)
		return
	}

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Request body must be JSON or form encoded.").Write(w)
		return
	}
	format := p.Get("format")
	if format == "" {
		format = services.FormatXLSX
	}
	msg, err := amqp.NewSnapshotRequest(core.ParseFilter(sanitizeStore(p.Get("store"))), format)
	if err != nil {
		BadRequestError("Unsupported snapshot format " + format + ".").Write(w)
		return
	}

	ctx := r.Context()
	if err := s.publisher.PublishSnapshotRequest(ctx, msg); err != nil {
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Snapshot publish failed", err,
			applog.ComponentAMQP, applog.OpSnapshot, applog.NewFields().With(applog.FieldSnapshotID, msg.ID.String()))
		resp := ServiceUnavailableError("The snapshot queue is unavailable. Try again later.")
		if isHTMX(r) {
			resp.TriggerErrorNotification("Snapshot could not be queued")
		}
		resp.Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.snapshotsQueued, 1)

	if isHTMX(r) {
		NewHTMXResponse().
			Status(http.StatusAccepted).
			TriggerSnapshotQueued(msg.ID.String(), msg.Store).
			TriggerSuccessNotification("Snapshot queued").
			BodyHTML(`<span class="notice">Snapshot queued.</span>`).
			Write(w)
		return
	}
	NewHTMXResponse().Status(http.StatusAccepted).BodyJSON(map[string]string{
		"id":           msg.ID.String(),
		"store":        msg.Store,
		"format":       msg.Format,
		"requested_at": msg.RequestedAt.Format(time.RFC3339),
	}).Write(w)
}
