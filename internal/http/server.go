package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "flujo/internal/log"
	"flujo/internal/middleware/ratelimit"
	"flujo/internal/middleware/security"
	"flujo/internal/middleware/trace"
	"flujo/internal/services"
)

const maxImportBytes = 8 << 20

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

// Options configures the API server.
type Options struct {
	Addr    string
	Flows   *services.FlowService
	Imports *services.ImportService
	// Checks are run by /readyz, keyed by dependency name.
	Checks map[string]ReadinessCheck
	Logger *applog.Logger
	// RateLimit caps imports per client and minute; zero uses the default.
	RateLimit int
}

// Server exposes the flow engine over a JSON API.
type Server struct {
	http.Server
	flows   *services.FlowService
	imports *services.ImportService
	checks  map[string]ReadinessCheck
	logger  *applog.Logger

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	limits := ratelimit.DefaultConfig()
	if opts.RateLimit > 0 {
		limits.RequestsPerMinute = opts.RateLimit
	}

	s := &Server{
		flows:       opts.Flows,
		imports:     opts.Imports,
		checks:      opts.Checks,
		logger:      logger,
		rateLimiter: ratelimit.NewLimiter(limits),
		detector:    security.NewDetector(),
		started:     time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/flows/{view}", s.handleFlow)
	mux.HandleFunc("GET /api/flows/{view}/export", s.handleFlowExport)
	mux.HandleFunc("GET /api/forecast", s.handleForecast)
	mux.HandleFunc("GET /api/forecast/vat", s.handleForecastVAT)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("GET /api/imports", s.handleImports)

	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded", applog.NewFields().
			WithComponent(applog.ComponentRateLimit).
			WithClientIP(s.detector.ExtractClientIP(r)).
			WithHTTPRequest(r.Method, r.URL.Path, "", "", "").
			ToSlice()...)
		writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, retry later")
	})

	var handler http.Handler = mux
	handler = limited(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.InfoContext(ctx, "Shutting down HTTP server", applog.FieldOperation, applog.OpShutdown)
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
