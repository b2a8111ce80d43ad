package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/tanu360/apple-intelligence-api/internal/cache"
	"github.com/tanu360/apple-intelligence-api/internal/config"
	"github.com/tanu360/apple-intelligence-api/internal/core"
	"github.com/tanu360/apple-intelligence-api/internal/metrics"
	"github.com/tanu360/apple-intelligence-api/internal/usage"

	"github.com/gin-gonic/gin"
)

// Server is the OpenAI-compatible gateway in front of one generation
// capability. Its lifecycle contract toward the host is Start, Stop and
// Status.
type Server struct {
	ginMode    string
	capability core.GenerationCapability
	estimator  usage.Estimator
	router     *gin.Engine

	cache          *cache.CacheService
	metricsService *metrics.MetricsService

	config    config.ServerConfig
	startedAt time.Time

	mu             sync.Mutex
	httpServer     *http.Server
	listener       net.Listener
	serveErr       chan error
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

// Status is the gateway's lifecycle state as seen by the host.
type Status struct {
	Running bool
	Addr    string
}

// NewServer creates a new server instance
func NewServer(cfg config.ServerConfig) (*Server, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required in ServerConfig")
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage is required in ServerConfig")
	}
	if cfg.Capability == nil {
		return nil, fmt.Errorf("capability is required in ServerConfig")
	}
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = core.DefaultServerVersion
	}
	if cfg.UsageEstimator == "" {
		cfg.UsageEstimator = core.DefaultUsageEstimator
	}

	estimator, err := usage.New(cfg.UsageEstimator)
	if err != nil {
		return nil, fmt.Errorf("failed to create usage estimator: %w", err)
	}

	metricsService := metrics.NewMetricsService(metrics.MetricsConfig{
		SaveInterval: core.MinSaveInterval,
		HistorySize:  core.HistoryBufferSize,
		Storage:      cfg.Storage,
		Logger:       cfg.Logger,
	})

	if err := metricsService.LoadStats(); err != nil {
		cfg.Logger.Warn("Failed to load historical stats: %v", err)
	}

	server := &Server{
		ginMode:        cfg.GinMode,
		capability:     cfg.Capability,
		estimator:      estimator,
		cache:          cache.NewCacheService(cfg.StatusCacheTTL, metricsService),
		metricsService: metricsService,
		config:         cfg,
		startedAt:      time.Now(),
	}

	server.setupRoutes()

	return server, nil
}

// Handler returns the HTTP handler serving the gateway routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds host:port and serves in the background. The base context
// every request derives from is created here and cancelled by Stop.
func (s *Server) Start(host string, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return fmt.Errorf("server already running on %s", s.listener.Addr())
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: core.ServerReadHeaderTimeout,
		ReadTimeout:       core.ServerReadTimeout,
		BaseContext:       func(net.Listener) context.Context { return shutdownCtx },
	}

	s.httpServer = srv
	s.listener = ln
	s.shutdownCtx = shutdownCtx
	s.shutdownCancel = shutdownCancel
	s.serveErr = make(chan error, 1)

	go func(errCh chan<- error) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}(s.serveErr)

	s.config.Logger.Info("Server listening on %s", ln.Addr())
	return nil
}

// Stop cancels in-flight requests and shuts the listener down. It is a
// no-op when the server is not running.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, cancel, errCh := s.httpServer, s.shutdownCancel, s.serveErr
	s.httpServer, s.listener, s.shutdownCancel, s.serveErr = nil, nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	// Streams block on the engine, not on the connection, so cancel them
	// before waiting for handlers to return.
	cancel()
	err := srv.Shutdown(ctx)
	if err != nil {
		err = errors.Join(err, srv.Close())
	}
	if serveErr := <-errCh; serveErr != nil {
		err = errors.Join(err, serveErr)
	}

	s.config.Logger.Info("Server stopped")
	return err
}

// Status reports whether the server is listening and on which address.
func (s *Server) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer == nil {
		return Status{}
	}
	return Status{Running: true, Addr: s.listener.Addr().String()}
}

// Run starts the server on the configured address and blocks until SIGINT
// or SIGTERM, then stops it gracefully.
func (s *Server) Run() error {
	if err := s.Start(s.config.Host, s.config.Port); err != nil {
		return err
	}

	s.mu.Lock()
	errCh := s.serveErr
	s.mu.Unlock()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case <-quit:
		s.config.Logger.Info("Shutdown signal received, shutting down gracefully...")
	case err, ok := <-errCh:
		if ok && err != nil {
			runErr = fmt.Errorf("server error: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), core.ServerShutdownTimeout)
	defer cancel()
	return errors.Join(runErr, s.Stop(ctx))
}

// Close stops the server and releases its services
func (s *Server) Close() error {
	var closeErr error

	ctx, cancel := context.WithTimeout(context.Background(), core.ServerShutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		closeErr = errors.Join(closeErr, fmt.Errorf("stop server: %w", err))
	}

	if s.metricsService != nil {
		if err := s.metricsService.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close metrics service: %w", err))
		}
	}

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close cache service: %w", err))
		}
	}

	return closeErr
}
