package http

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"jaffle/internal/amqp"
	"jaffle/internal/charts"
	"jaffle/internal/core"
	applog "jaffle/internal/log"
	"jaffle/internal/middleware/ratelimit"
	"jaffle/internal/middleware/security"
	"jaffle/internal/middleware/trace"
	appweb "jaffle/web"
)

// DashboardTitle heads the page.
const DashboardTitle = "Jaffle Shop Sales Dashboard - 2019"

// DashboardService renders the dashboard for a store selection.
type DashboardService interface {
	Render(ctx context.Context, f core.Filter) (core.Dashboard, error)
	Stores(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

// Exporter writes a dashboard as a downloadable file.
type Exporter interface {
	Write(w io.Writer, d core.Dashboard, format string) error
}

// SnapshotPublisher enqueues snapshot requests. Optional.
type SnapshotPublisher interface {
	PublishSnapshotRequest(ctx context.Context, msg *amqp.SnapshotRequest) error
}

// ServerConfig wires a Server. Publisher may be nil.
type ServerConfig struct {
	Addr      string
	Dashboard DashboardService
	Exporter  Exporter
	Publisher SnapshotPublisher
	Logger    *applog.Logger
	RateLimit ratelimit.Config
	Charts    charts.Options
	// BlockSuspicious answers probing requests with 404 instead of only
	// logging them.
	BlockSuspicious bool
}

type appMetrics struct {
	renders         int64
	renderErrors    int64
	snapshotsQueued int64
	uptime          time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	dashboard DashboardService
	exporter  Exporter
	publisher SnapshotPublisher
	chartOpts charts.Options
	logger    *applog.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and builds the handler chain.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Dashboard == nil {
		return nil, fmt.Errorf("dashboard service is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = applog.Discard()
	}

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	detector := security.NewDetector()
	s := &Server{
		templates:        t,
		dashboard:        cfg.Dashboard,
		exporter:         cfg.Exporter,
		publisher:        cfg.Publisher,
		chartOpts:        cfg.Charts,
		logger:           logger.WithComponent(applog.ComponentHTTP),
		rateLimiter:      ratelimit.NewLimiter(cfg.RateLimit),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP, logger),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}

	mux := http.NewServeMux()

	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.Handle("/", s.dynamic(s.handleIndex))
	mux.Handle("/ui/dashboard", s.dynamic(s.handleDashboardPartial))
	mux.Handle("/api/dashboard", s.dynamic(s.handleAPIDashboard))
	mux.Handle("/api/stores", s.dynamic(s.handleAPIStores))
	mux.Handle("/charts/revenue.png", s.dynamic(s.handleChart(charts.RenderRevenue)))
	mux.Handle("/charts/orders.png", s.dynamic(s.handleChart(charts.RenderOrders)))
	mux.Handle("/export/products.xlsx", s.dynamic(s.handleExport))
	mux.Handle("/snapshots", s.dynamic(s.handleSnapshot))

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(detector.ExtractClientIP, s.onRateLimited)(handler)
	handler = detector.Middleware(cfg.BlockSuspicious)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// dynamic marks data-bearing responses as uncacheable.
func (s *Server) dynamic(h http.HandlerFunc) http.Handler {
	return security.NoStoreMiddleware(h)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "Too many requests", "Please wait a moment before refreshing.").Write(w)
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(s.rateLimiter.Stop)
	return s.Server.Shutdown(ctx)
}

func (s *Server) recordRender(err error) {
	atomic.AddInt64(&s.appMetrics.renders, 1)
	if err != nil {
		atomic.AddInt64(&s.appMetrics.renderErrors, 1)
	}
}
