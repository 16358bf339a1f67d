package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"goaltrack/internal/core"
	applog "goaltrack/internal/log"
	"goaltrack/internal/metrics"
	"goaltrack/internal/middleware/ratelimit"
	"goaltrack/internal/middleware/security"
	"goaltrack/internal/middleware/trace"
	"goaltrack/internal/services"
)

// LedgerAPI is the ledger side used by the handlers.
type LedgerAPI interface {
	Snapshot(ctx context.Context) (services.LedgerSnapshot, error)
	AddTransaction(ctx context.Context, tx core.Transaction) (services.LedgerSnapshot, error)
}

// MetricsAPI is the metrics side used by the handlers.
type MetricsAPI interface {
	Options(ctx context.Context, source string) (metrics.Options, error)
	Query(ctx context.Context, source string, q metrics.Query) (metrics.Report, error)
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
	Invalidate(source string)
	Sources() ([]string, error)
}

// Config configures NewServer. Zero values fall back to defaults.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	MaxUploadBytes     int64
	RequestTimeout     time.Duration
	Logger             *applog.Logger
	// Ready reports backend health for /readyz. Nil means always ready.
	Ready func(ctx context.Context) error
}

const (
	defaultMaxUploadBytes = 10 << 20
	defaultRequestTimeout = 15 * time.Second
)

// Server is the JSON API over the ledger and metrics services.
type Server struct {
	http.Server

	ledger   LedgerAPI
	metrics  MetricsAPI
	ready    func(ctx context.Context) error
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	maxUploadBytes int64
	requestTimeout time.Duration
	shutdownOnce   sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, ledger LedgerAPI, metricsAPI MetricsAPI) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = applog.New(applog.Config{Component: applog.ComponentHTTP, Handler: slog.Default().Handler()})
	}

	detector := security.NewDetector()
	s := &Server{
		ledger:         ledger,
		metrics:        metricsAPI,
		ready:          cfg.Ready,
		detector:       detector,
		tracer:         trace.NewMiddleware(detector.ClientIP),
		limiter:        ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		maxUploadBytes: cfg.MaxUploadBytes,
		requestTimeout: cfg.RequestTimeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/ledger", s.handleLedger)
	mux.HandleFunc("POST /api/ledger/transactions", s.handleAddTransaction)

	mux.HandleFunc("GET /api/metrics", s.handleMetricsQuery)
	mux.HandleFunc("GET /api/metrics/options", s.handleMetricsOptions)
	mux.HandleFunc("GET /api/metrics/sources", s.handleListSources)
	mux.HandleFunc("POST /api/metrics/sources", s.handleUploadSource)
	mux.HandleFunc("DELETE /api/metrics/sources/{id}", s.handleInvalidateSource)

	var h http.Handler = mux
	h = s.limiter.Middleware(detector.ClientIP, s.onRateLimited, http.MethodPost, http.MethodDelete)(h)
	h = s.flagSuspicious(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = s.tracer.AccessLog(h)
	h = applog.Middleware(logger, trace.RequestID)(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).
		WarnContext(r.Context(), "Rate limit exceeded", applog.FieldClientIP, s.detector.ClientIP(r))
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
}

// flagSuspicious logs scanner-like requests. They are still routed and
// usually end in a 404.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.Suspicious(r) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				applog.FieldClientIP, s.detector.ClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}

// withTimeout bounds the work a handler does against the backends.
func (s *Server) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.requestTimeout)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(statusView{Status: "ok", Time: time.Now().UTC()}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			ServiceUnavailableError("not ready").Write(w)
			return
		}
	}
	NewJSONResponse().Data(statusView{Status: "ready", Time: time.Now().UTC()}).Write(w)
}
