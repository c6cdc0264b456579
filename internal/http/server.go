package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"valuta/internal/amqp"
	"valuta/internal/core"
	applog "valuta/internal/log"
	"valuta/internal/middleware/ratelimit"
	"valuta/internal/middleware/security"
	"valuta/internal/middleware/trace"
	"valuta/internal/services"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Enqueuer hands recompute requests to the worker.
type Enqueuer interface {
	PublishRecompute(ctx context.Context, msg *amqp.RecomputeRequest) error
}

// Config holds the HTTP layer settings.
type Config struct {
	Addr           string
	DefaultUser    string
	RateLimit      ratelimit.Config
	TrustedProxies []string
	Headers        security.HeadersConfig
}

// Deps are the collaborators the handlers read from. Ready and Queue are optional.
type Deps struct {
	Dashboard *services.Dashboard
	Ready     map[string]Pinger
	Queue     Enqueuer
	Logger    *applog.Logger
	// Today overrides the clock used for parameter defaults
	Today func() core.Date
}

type Server struct {
	http.Server
	dashboard   *services.Dashboard
	ready       map[string]Pinger
	queue       Enqueuer
	tokens      *services.Tokens
	defaultUser string
	today       func() core.Date
	logger      *applog.Logger

	rateLimiter     *ratelimit.Limiter
	traceMiddleware *trace.Middleware
	startedAt       time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and the middleware chain.
func NewServer(cfg Config, deps Deps) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = applog.FromSlog(nil, applog.ComponentHTTP)
	}
	today := deps.Today
	if today == nil {
		today = core.Today
	}
	resolver, err := security.NewClientIPResolver(cfg.TrustedProxies...)
	if err != nil {
		return nil, err
	}
	headers := cfg.Headers
	if headers == (security.HeadersConfig{}) {
		headers = security.DefaultHeadersConfig()
	}

	s := &Server{
		dashboard:       deps.Dashboard,
		ready:           deps.Ready,
		queue:           deps.Queue,
		tokens:          services.NewTokens(nil),
		defaultUser:     cfg.DefaultUser,
		today:           today,
		logger:          logger,
		rateLimiter:     ratelimit.NewLimiter(cfg.RateLimit),
		traceMiddleware: trace.NewMiddleware(resolver.ClientIP, logger),
		startedAt:       time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	api := http.NewServeMux()
	api.HandleFunc("/api/budgets", s.handleBudgets)
	api.HandleFunc("/api/investments", s.handleInvestments)
	api.HandleFunc("/api/balance", s.handleBalance)
	api.HandleFunc("/api/convert", s.handleConvert)
	api.HandleFunc("/api/recompute", s.handleRecompute)

	onLimit := func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded").Write(w)
	}
	limited := s.rateLimiter.Middleware(resolver.ClientIP, onLimit)(api)
	mux.Handle("/api/", limited)

	var handler http.Handler = mux
	handler = security.Headers(headers)(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:           cfg.Addr,
		Handler:        handler,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16, // 64KB
	}
	return s, nil
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
