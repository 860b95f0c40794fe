// Package http serves the record forms, queries, reports and sales uploads.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"restobook/internal/cache"
	"restobook/internal/core"
	applog "restobook/internal/log"
	"restobook/internal/middleware/ratelimit"
	"restobook/internal/middleware/security"
	"restobook/internal/middleware/trace"
	"restobook/internal/services"
	appweb "restobook/web"
)

// RecordService is the record workflow the handlers drive.
type RecordService interface {
	Submit(ctx context.Context, d core.Draft) (core.Row, error)
	Update(ctx context.Context, table core.Table, id int64, d core.Draft) (core.Row, error)
	Delete(ctx context.Context, table core.Table, id int64) error
	Query(ctx context.Context, view core.View, f core.Filters) (core.Result, error)
}

// SalesService is the bulk sales workflow.
type SalesService interface {
	Register(ctx context.Context, up services.SalesUpload) (core.SaleRegistration, error)
	Lines(ctx context.Context, registrationID string) ([]core.SaleRecord, error)
}

// HealthChecker reports whether the backing store answers.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Logger         *applog.Logger
	Results        *cache.Results
	MaxUploadBytes int64
	RateLimit      ratelimit.Config
	TrustedProxies []string
}

type appMetrics struct {
	recordsCreated     atomic.Int64
	salesRegistrations atomic.Int64
	cacheHits          atomic.Int64
	cacheMisses        atomic.Int64
	uptime             time.Time
}

type Server struct {
	http.Server
	logger    *applog.Logger
	templates *template.Template

	records RecordService
	sales   SalesService
	health  HealthChecker

	results          *cache.Results
	cacheManager     *cache.Manager
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	maxUploadBytes   int64

	appMetrics   *appMetrics
	shutdownOnce sync.Once
	now          func() time.Time
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, records RecordService, sales SalesService, health HealthChecker, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	detector, err := security.NewDetector(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}

	s := &Server{
		logger:           logger,
		templates:        t,
		records:          records,
		sales:            sales,
		health:           health,
		results:          opts.Results,
		cacheManager:     cache.NewManager(),
		rateLimiter:      ratelimit.NewLimiter(opts.RateLimit),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
		maxUploadBytes:   opts.MaxUploadBytes,
		appMetrics:       &appMetrics{uptime: time.Now()},
		now:              time.Now,
	}
	if s.results != nil {
		s.cacheManager.Register(s.results)
		s.cacheManager.StartCleanup(5 * time.Minute)
	}

	app := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		app.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", "error", err)
	}
	app.HandleFunc("/", s.handleIndex)
	app.HandleFunc("/records", s.handleRecords)
	app.HandleFunc("/records/update", s.handleUpdateRecord)
	app.HandleFunc("/records/delete", s.handleDeleteRecord)
	app.HandleFunc("/ui/records", s.handleRecordsPartial)
	app.HandleFunc("/reports/records.pdf", s.handleRecordsReport)
	app.HandleFunc("/sales", s.handleSales)

	throttled := s.rateLimiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again later.").Write(w)
	})(app)

	root := http.NewServeMux()
	root.HandleFunc("/healthz", s.handleHealth)
	root.HandleFunc("/readyz", s.handleReady)
	root.HandleFunc("/metrics", s.handleMetrics)
	root.Handle("/", throttled)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = root
	handler = headers.Middleware(handler)
	handler = detector.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Shutdown stops background cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// query serves reads from the result cache when one is configured.
func (s *Server) query(ctx context.Context, view core.View, f core.Filters) (core.Result, error) {
	if s.results == nil {
		return s.records.Query(ctx, view, f)
	}

	res, token, ok := s.results.Lookup(view, f)
	if ok {
		s.appMetrics.cacheHits.Add(1)
		applog.FromContext(ctx).DebugContext(ctx, "Query cache hit", applog.FieldView, view, applog.FieldRows, len(res.Rows))
		return res, nil
	}

	s.appMetrics.cacheMisses.Add(1)
	res, err := s.records.Query(ctx, view, f)
	if err != nil {
		return core.Result{}, err
	}
	s.results.Store(view, f, token, res)
	return res, nil
}

// recordsChanged drops cached query results after a write.
func (s *Server) recordsChanged() {
	if s.results != nil {
		s.results.Invalidate()
	}
}
