package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/tuplestream/logger"
	"github.com/kbukum/tuplestream/observability"
	"github.com/kbukum/tuplestream/resilience"
	"github.com/kbukum/tuplestream/server/endpoint"
	"github.com/kbukum/tuplestream/server/middleware"
)

// Server serves collections over HTTP/1.1 and h2c using Gin.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     Config
	log        *logger.Logger
	registry   *prometheus.Registry
	metrics    *endpoint.Metrics
	bulkhead   *resilience.Bulkhead
	listener   net.Listener
}

// New creates a new Server. Call ApplyMiddleware and the Register methods (or
// ApplyDefaults) before Start.
func New(cfg Config, log *logger.Logger) *Server {
	cfg.ApplyDefaults()

	// Set Gin mode based on global zerolog level.
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		engine:   engine,
		config:   cfg,
		log:      log.WithComponent("server"),
		registry: registry,
		metrics:  endpoint.NewMetrics(registry),
		bulkhead: resilience.NewBulkhead(cfg.Bulkhead),
	}

	// CORS and the body limit run below Gin so they cover every route.
	handler := middleware.Chain(
		middleware.CORS(&s.config.CORS),
		middleware.BodySizeLimit(cfg.MaxBodySize),
	)(engine)

	// h2c lets HTTP/2 clients stream without TLS.
	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          120 * time.Second,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h2c.NewHandler(handler, h2s),
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
	}
	return s
}

// GinEngine returns the underlying Gin engine for route registration.
func (s *Server) GinEngine() *gin.Engine { return s.engine }

// Handler returns the full handler chain, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Registry is the Prometheus registry served on /metrics.
func (s *Server) Registry() *prometheus.Registry { return s.registry }

// Bulkhead is the limiter of concurrent streams.
func (s *Server) Bulkhead() *resilience.Bulkhead { return s.bulkhead }

// ApplyMiddleware installs recovery, request IDs and request logging on the
// Gin engine.
func (s *Server) ApplyMiddleware() {
	s.engine.Use(middleware.Recovery(s.log))
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.RequestLogger(s.log))
}

// RegisterDefaultEndpoints registers /health, /alive, /ready and /metrics.
func (s *Server) RegisterDefaultEndpoints(service, version string, checkers ...observability.HealthChecker) {
	s.engine.GET("/health", endpoint.Health(service, version, checkers...))
	s.engine.GET("/alive", endpoint.Liveness(service))
	s.engine.GET("/ready", endpoint.Readiness(service, checkers...))
	s.engine.GET("/metrics", endpoint.Prometheus(s.registry))
}

// RegisterCollectionEndpoints registers the stream and update routes.
func (s *Server) RegisterCollectionEndpoints(ev endpoint.Evaluator, ix endpoint.Indexer) {
	s.engine.POST("/:collection/stream", endpoint.Stream(ev, s.bulkhead, s.metrics, s.log))
	s.engine.GET("/:collection/stream", endpoint.Stream(ev, s.bulkhead, s.metrics, s.log))
	s.engine.POST("/:collection/update", endpoint.Update(ix, s.log))
}

// ApplyDefaults applies the middleware stack and registers every endpoint.
func (s *Server) ApplyDefaults(service, version string, ev endpoint.Evaluator, ix endpoint.Indexer, checkers ...observability.HealthChecker) {
	s.ApplyMiddleware()
	s.RegisterDefaultEndpoints(service, version, checkers...)
	s.RegisterCollectionEndpoints(ev, ix)
}

// Start binds the port and begins serving. It returns once the listener is
// bound so the caller knows the port is ready; serving continues in a goroutine.
func (s *Server) Start(_ context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.listener = listener

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("server error", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	s.log.Info("HTTP server started", logger.Fields("addr", s.Addr()))
	return nil
}

// Stop gracefully shuts down the server with a 5-second deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}
