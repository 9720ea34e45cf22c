package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"bluetrace-hq/gateway/pkg/api/handlers"
	"bluetrace-hq/gateway/pkg/api/middleware"
	"bluetrace-hq/gateway/pkg/api/types"
	"bluetrace-hq/gateway/pkg/billing"
	"bluetrace-hq/gateway/pkg/config"
	"bluetrace-hq/gateway/pkg/datasets"
	"bluetrace-hq/gateway/pkg/keystore"
	"bluetrace-hq/gateway/pkg/limits"
	"bluetrace-hq/gateway/pkg/limits/ratelimit"
	"bluetrace-hq/gateway/pkg/security/auth"
	"bluetrace-hq/gateway/pkg/telemetry/health"
	"bluetrace-hq/gateway/pkg/telemetry/metrics"
	"bluetrace-hq/gateway/pkg/usage"
)

// Service identity reported by the root and health endpoints.
const (
	ServiceName = "BlueTrace API"
	Version     = "0.1.0"
)

// Dependencies are the components the server routes requests to.
type Dependencies struct {
	// Keys is the API key store. Required.
	Keys keystore.Store

	// Datasets serves the dataset endpoints. Required.
	Datasets *datasets.Repository

	// Limiter admits protected requests. Required.
	Limiter *ratelimit.SlidingWindowLimiter

	// Recorder meters authenticated requests. Nil disables metering.
	Recorder *usage.Recorder

	// Collector exposes metrics. A private collector is created when nil.
	Collector *metrics.Collector

	// LimitMetrics records admission decisions. When nil they are
	// registered on the collector's registry. Pass the instance already
	// given to the limiter as its observer to avoid a duplicate
	// registration.
	LimitMetrics *limits.Metrics

	// Health runs dependency checks. An empty checker is created when nil.
	Health *health.Checker

	// Config returns the current configuration. Plan limits, the admin
	// email and billing settings are read through it per request.
	// Default: config.GetConfig
	Config func() *config.Config
}

// Server is the BlueTrace HTTP API server.
type Server struct {
	config       config.ServerConfig
	handler      http.Handler
	httpServer   *http.Server
	listener     net.Listener
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
	logger       *slog.Logger
}

// New builds the server and its routes. cfg is the configuration snapshot
// taken at startup; only the sections read through deps.Config follow
// reloads.
func New(cfg *config.Config, deps Dependencies) (*Server, error) {
	if deps.Keys == nil || deps.Datasets == nil || deps.Limiter == nil {
		return nil, errors.New("server requires a key store, dataset repository and limiter")
	}
	if deps.Config == nil {
		deps.Config = config.GetConfig
	}
	if deps.Collector == nil {
		deps.Collector = metrics.NewCollector(cfg.Telemetry.Metrics, nil)
	}
	if deps.Health == nil {
		deps.Health = health.New(cfg.Telemetry.Health.CheckTimeout)
	}
	if deps.LimitMetrics == nil {
		deps.LimitMetrics = limits.NewMetrics(deps.Collector.Registry())
	}

	s := &Server{
		config: cfg.Server,
		logger: slog.Default().With("component", "server"),
	}
	s.handler = s.routes(cfg, deps)
	return s, nil
}

// routes registers every endpoint and wraps the mux in the global chain.
func (s *Server) routes(cfg *config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.Handler) {
		mux.Handle(pattern, middleware.Route(h))
	}

	collector := deps.Collector
	authn := auth.NewMiddleware(
		auth.NewAuthenticator(deps.Keys, cfg.Security.APIKeySalt, collector),
		cfg.Security.APIKeyHeader,
	)
	manager := limits.NewManager(
		limits.NewPlanResolver(deps.Config),
		deps.Limiter,
		deps.LimitMetrics,
	)

	protected := func(h http.Handler) http.Handler {
		return middleware.Chain(h,
			authn.Handle,
			usage.Middleware(deps.Recorder),
			middleware.RateLimit(manager),
		)
	}
	adminOnly := func(h http.Handler) http.Handler {
		return middleware.Chain(h,
			authn.Handle,
			auth.RequireAdmin(func() string { return deps.Config().Admin.Email }, collector),
			middleware.RateLimit(manager),
		)
	}

	// Public endpoints.
	handle("GET /{$}", handlers.Root(ServiceName, Version))
	handle("GET /v1/health", deps.Health.SummaryHandler(ServiceName, Version))
	handle("GET /health/live", deps.Health.LivenessHandler())
	handle("GET /health/ready", deps.Health.ReadinessHandler())
	if cfg.Telemetry.Metrics.IsEnabled() {
		handle("GET "+cfg.Telemetry.Metrics.Path, collector.Handler())
	}

	// Billing webhook; authenticated by signature, not API key.
	reconciler := billing.NewReconciler(deps.Keys, deps.Config, collector)
	handle("POST /stripe/webhook", billing.NewHandler(reconciler, cfg.Billing.MaxPayloadBytes))

	for pattern, h := range handlers.NewAdminHandler(deps.Keys, cfg.Security.APIKeySalt).Routes() {
		handle(pattern, adminOnly(h))
	}
	for pattern, h := range datasets.NewHandler(deps.Datasets).Routes() {
		handle(pattern, protected(h))
	}

	// Anything else gets the JSON envelope rather than the mux's plain text.
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		types.WriteError(w, types.NewNotFoundError("Not found: "+r.URL.Path, "See /v1/health for service status"))
	}))

	return middleware.Chain(mux,
		middleware.Recovery,
		middleware.RequestID,
		middleware.Logging,
		middleware.Metrics(collector),
		middleware.CORS(cfg.Server.CORS),
		middleware.Timeout(cfg.Server.RequestTimeout),
		middleware.MaxBodyBytes(cfg.Server.MaxBodyBytes),
	)
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until ctx is
// cancelled or the listener fails. Cancellation triggers a graceful
// shutdown bounded by the shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		BaseContext:    func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting api server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return err
	}
}

// Shutdown gracefully stops the server. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		srv := s.httpServer
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("api server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
