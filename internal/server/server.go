package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/AdMonitor/internal/api/http"
	"github.com/GriffinCanCode/AdMonitor/internal/api/middleware"
	"github.com/GriffinCanCode/AdMonitor/internal/api/ws"
	"github.com/GriffinCanCode/AdMonitor/internal/domain/action"
	"github.com/GriffinCanCode/AdMonitor/internal/domain/classifier"
	"github.com/GriffinCanCode/AdMonitor/internal/domain/ingest"
	"github.com/GriffinCanCode/AdMonitor/internal/domain/protocol"
	"github.com/GriffinCanCode/AdMonitor/internal/domain/reconciler"
	"github.com/GriffinCanCode/AdMonitor/internal/domain/state"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/config"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/host"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/hostclient"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/storage"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/tracing"
)

// hostBridge is what the server needs from either bridge implementation
type hostBridge interface {
	host.Bridge
	Connected() bool
}

// Server wraps the HTTP server and dependencies
type Server struct {
	config     *config.Config
	logger     *logging.Logger
	metrics    *monitoring.Metrics
	tracer     *tracing.Tracer
	router     *gin.Engine
	http       *http.Server
	store      *state.Store
	reconciler *reconciler.Reconciler
	bridge     hostBridge
	wsBridge   *ws.Bridge

	initDone chan struct{}
	cancel   context.CancelFunc
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing AdMonitor server",
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("bridge", cfg.Host.Bridge),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)

	backend, err := openBackend(cfg.Storage)
	if err != nil {
		return nil, err
	}
	store := state.NewStore(backend, logger)

	s := &Server{
		config:   cfg,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracing.New("admonitor", logger),
		store:    store,
		initDone: make(chan struct{}),
	}

	switch cfg.Host.Bridge {
	case "http":
		clientCfg := hostclient.DefaultConfig()
		clientCfg.BaseURL = cfg.Host.URL
		clientCfg.RetryMax = cfg.Host.RetryMax
		s.bridge = hostclient.New(clientCfg, logger).WithMetrics(metrics)
		logger.Info("Using HTTP host bridge", zap.String("url", cfg.Host.URL))
	default:
		s.wsBridge = ws.NewBridge(logger).WithMetrics(metrics)
		s.bridge = s.wsBridge
		logger.Info("Using WebSocket host bridge")
	}

	gateway := action.New(s.bridge, cfg.Monitor.ActionTimeout.Std(), logger).WithMetrics(metrics)
	s.reconciler = reconciler.New(store, gateway, logger,
		reconciler.WithAdTimeout(cfg.Monitor.AdTimeout.Std()),
		reconciler.WithMetrics(metrics),
	)

	ingestor, err := ingest.New(
		classifier.New(cfg.Monitor.OperationMarker),
		s.reconciler,
		logger,
		ingest.WithOriginPatterns(cfg.Monitor.OriginPatterns...),
		ingest.WithMetrics(metrics),
	)
	if err != nil {
		s.tracer.Close()
		_ = store.Close()
		return nil, err
	}
	dispatcher := protocol.NewDispatcher(s.reconciler, logger).WithMetrics(metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(tracing.HTTPMiddleware(s.tracer))
	router.Use(middleware.RequestLogger(logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limits := middleware.DefaultRateLimitConfig()
		limits.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limits.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(limits))
	}

	handlers := apihttp.NewHandlers(ingestor, dispatcher, s.reconciler, s.bridge, metrics, logger)
	handlers.Register(router)

	if s.wsBridge != nil {
		router.GET("/bridge", s.wsBridge.HandleConnection)
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	s.router = router
	s.http = &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.initialize(ctx)

	logger.Info("Server initialized successfully")
	return s, nil
}

func openBackend(cfg config.StorageConfig) (state.Backend, error) {
	switch cfg.Driver {
	case "memory":
		return storage.NewMemory(), nil
	default:
		backend, err := storage.NewSQLite(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open state database: %w", err)
		}
		return backend, nil
	}
}

// initialize loads persisted state, retrying for the configured window.
// Requests that arrive earlier are answered as not ready.
func (s *Server) initialize(ctx context.Context) {
	defer close(s.initDone)

	if err := s.store.Load(ctx, s.config.Storage.LoadWindow.Std()); err != nil {
		s.logger.Error("Failed to load state", zap.Error(err))
		return
	}
	s.logger.SetDebug(s.store.DebugMode())
	s.metrics.SetPlayingAds(s.store.PlayingCount())
	s.logger.Info("State loaded",
		zap.Bool("debug", s.store.DebugMode()),
		zap.Int("playing", s.store.PlayingCount()),
	)
}

// Handler exposes the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Ready reports whether persisted state has been loaded
func (s *Server) Ready() bool {
	return s.reconciler.Ready()
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then releases every resource
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	err := s.http.Shutdown(ctx)
	if err != nil {
		s.logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	return errors.Join(err, s.Close())
}

// Close releases the bridge, the tracer and the store. Call it once.
func (s *Server) Close() error {
	s.cancel()
	<-s.initDone

	var errs []error
	if s.wsBridge != nil {
		if err := s.wsBridge.Close(); err != nil {
			s.logger.Warn("Failed to close bridge", zap.Error(err))
		}
	}
	s.tracer.Close()
	if err := s.store.Close(); err != nil {
		s.logger.Error("Failed to close store", zap.Error(err))
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}

	_ = s.logger.Sync()
	return errors.Join(errs...)
}
