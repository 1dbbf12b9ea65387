package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	api "github.com/GriffinCanCode/appwatch/internal/api/http"
	"github.com/GriffinCanCode/appwatch/internal/api/middleware"
	"github.com/GriffinCanCode/appwatch/internal/domain/policy"
	"github.com/GriffinCanCode/appwatch/internal/domain/reconcile"
	"github.com/GriffinCanCode/appwatch/internal/domain/retention"
	"github.com/GriffinCanCode/appwatch/internal/infrastructure/config"
	"github.com/GriffinCanCode/appwatch/internal/infrastructure/logging"
	"github.com/GriffinCanCode/appwatch/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/appwatch/internal/providers/snapshot"
	"github.com/GriffinCanCode/appwatch/internal/storage"
)

// ShutdownTimeout bounds how long in-flight requests may run after Run's
// context ends
const ShutdownTimeout = 5 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	sweeper  *retention.Sweeper
	store    *storage.Store
	provider snapshot.Provider
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// Option customises a Server
type Option func(*options)

type options struct {
	provider snapshot.Provider
}

// WithProvider replaces the provider selected by configuration
func WithProvider(p snapshot.Provider) Option {
	return func(o *options) { o.provider = p }
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := logging.FromConfig(cfg.Logging.Level, cfg.Logging.Development)
	logger.Info("Initializing appwatch",
		zap.String("addr", cfg.Addr()),
		zap.String("db", cfg.Storage.Path),
		zap.String("settings", cfg.Policy.Path),
		zap.String("provider", cfg.Provider.Kind),
	)

	metrics := monitoring.NewMetrics()

	provider := o.provider
	if provider == nil {
		p, err := snapshot.New(snapshot.Config{Kind: cfg.Provider.Kind, Timeout: cfg.Provider.Timeout}, logger.Component("snapshot"))
		if err != nil {
			return nil, fmt.Errorf("snapshot provider: %w", err)
		}
		provider = p
	}

	store, err := storage.Open(cfg.Storage.Path, storage.WithMkdirAll())
	if err != nil {
		return nil, err
	}
	logger.Info("Session store opened", zap.String("path", cfg.Storage.Path))

	settings := policy.NewStore(cfg.Policy.Path, logger.Component("policy"))
	if s := settings.Load(); !s.MonitoringEnabled {
		logger.Info("Monitoring is disabled by settings")
	}

	engine := reconcile.NewEngine(provider, settings, store, logger.Component("reconcile"),
		reconcile.WithMetrics(metrics))
	sweeper := retention.NewSweeper(store, cfg.Retention.Horizon, cfg.Retention.Interval,
		logger.Component("retention"), retention.WithMetrics(metrics))

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.Component("http")))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limit := middleware.DefaultRateLimitConfig()
		limit.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limit.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(limit))
	}

	handlers := api.NewHandlers(engine, store, settings, metrics, logger.Component("api"))
	if err := api.Register(router, handlers); err != nil {
		store.Close()
		return nil, fmt.Errorf("register routes: %w", err)
	}

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		sweeper:  sweeper,
		store:    store,
		provider: provider,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Run serves HTTP and runs the retention sweeper until ctx ends or either
// fails. In-flight requests get ShutdownTimeout to finish.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return s.sweeper.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close releases the session store and flushes the logger
func (s *Server) Close() error {
	err := s.store.Close()
	if err != nil {
		s.logger.Error("Failed to close session store", zap.Error(err))
	}
	s.logger.Sync()
	return err
}
