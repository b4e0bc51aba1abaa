package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	applog "jaffle/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().BodyJSON(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady pings the data source when it supports it.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]string{"templates": "ok", "data_source": "ok"}

	if err := s.dashboard.Ping(ctx); err != nil {
		applog.FromContext(ctx).WithComponent(applog.ComponentHTTP).WarnContext(ctx, "Readiness check failed", applog.FieldError, err.Error())
		checks["data_source"] = "unavailable"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}
	if s.publisher == nil {
		checks["snapshots"] = "disabled"
	} else {
		checks["snapshots"] = "ok"
	}

	NewHTMXResponse().Status(httpStatus).BodyJSON(map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	counters := []struct {
		name, help, kind string
		value            int64
	}{
		{"http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests},
		{"http_server_errors_total", "Responses with a 5xx status", "counter", traceMetrics.TotalErrors},
		{"http_response_time_avg_microseconds", "Average response time", "gauge", traceMetrics.AverageResponseTime},
		{"dashboard_renders_total", "Dashboard renders attempted", "counter", atomic.LoadInt64(&s.appMetrics.renders)},
		{"dashboard_render_errors_total", "Dashboard renders that failed", "counter", atomic.LoadInt64(&s.appMetrics.renderErrors)},
		{"snapshots_queued_total", "Snapshot requests published", "counter", atomic.LoadInt64(&s.appMetrics.snapshotsQueued)},
		{"rate_limit_hits_total", "Total rate limit hits", "counter", rateLimitMetrics.TotalHits},
		{"active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount},
		{"suspicious_requests_total", "Total suspicious requests detected", "counter", securityMetrics.SuspiciousRequests},
		{"blocked_requests_total", "Suspicious requests answered with 404", "counter", securityMetrics.BlockedRequests},
		{"uptime_seconds", "Application uptime in seconds", "gauge", int64(time.Since(s.appMetrics.uptime).Seconds())},
	}

	w.WriteHeader(http.StatusOK)
	for _, c := range counters {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n\n", c.name, c.help, c.name, c.kind, c.name, c.value)
	}
}
