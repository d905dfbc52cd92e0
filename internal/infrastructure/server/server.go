package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	nethttp "net/http"
	"path/filepath"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/bundlehost/internal/api/http"
	"github.com/GriffinCanCode/bundlehost/internal/api/middleware"
	"github.com/GriffinCanCode/bundlehost/internal/domain/builtin"
	"github.com/GriffinCanCode/bundlehost/internal/domain/component"
	"github.com/GriffinCanCode/bundlehost/internal/domain/loader"
	"github.com/GriffinCanCode/bundlehost/internal/domain/registry"
	"github.com/GriffinCanCode/bundlehost/internal/domain/transfer"
	"github.com/GriffinCanCode/bundlehost/internal/infrastructure/config"
	"github.com/GriffinCanCode/bundlehost/internal/infrastructure/logging"
	"github.com/GriffinCanCode/bundlehost/internal/infrastructure/monitoring"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router     *gin.Engine
	http       *nethttp.Server
	factory    *registry.Factory
	scanner    *registry.Scanner
	uploader   *transfer.Uploader
	extensions *config.Extensions
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)

	logger.Info("Initializing bundlehost server",
		zap.String("port", cfg.Server.Port),
		zap.Strings("component_paths", cfg.Components.Paths),
		zap.String("policy", cfg.Components.Policy),
	)

	props, err := config.LoadProperties(cfg.File)
	if err != nil {
		return nil, err
	}
	extensions := config.NewExtensions(props)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	policy, err := registry.ParsePolicy(cfg.Components.Policy)
	if err != nil {
		return nil, err
	}
	factory := registry.NewFactory(logger.Named("registry"),
		registry.WithPolicy(policy),
		registry.WithMetrics(metrics),
	)

	patterns, err := registry.NewExtensionPolicy(cfg.Components.Patterns...)
	if err != nil {
		return nil, err
	}
	scanner := registry.NewScanner(factory, loader.New(logger.Named("loader")), patterns, logger.Named("scanner"), metrics)

	uploader := transfer.NewUploader(
		extensions.ComponentsPath(),
		patterns,
		scanner,
		cfg.Server.MaxUploadBytes(),
		logger.Named("upload"),
		metrics,
	)
	downloader := transfer.NewDownloader(factory, component.TopologyProvider, logger.Named("download"), metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.Named("http")))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	var uploadMiddleware []gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		logger.Info("Upload rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		uploadMiddleware = append(uploadMiddleware, middleware.RateLimit(rl))
	}

	handlers := http.NewHandlers(factory, uploader, downloader, metrics, logger.Named("api")).
		WithMaxUploadBytes(cfg.Server.MaxUploadBytes())
	http.RegisterRoutes(router, handlers, http.RouteOptions{
		Extensions:       extensions,
		UploadMiddleware: uploadMiddleware,
	})

	logger.Info("Server initialized successfully",
		zap.Bool("uploads", extensions.IsExtensionEnabled(config.ExtensionComponents)),
		zap.Bool("downloads", extensions.IsExtensionEnabled(config.ExtensionTopologyBundles)),
		zap.String("upload_root", uploader.Root()),
	)

	return &Server{
		router: router,
		http: &nethttp.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		factory:    factory,
		scanner:    scanner,
		uploader:   uploader,
		extensions: extensions,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
	}, nil
}

// Handler exposes the router.
func (s *Server) Handler() nethttp.Handler { return s.router }

// Factory is the component registry populated by Bootstrap.
func (s *Server) Factory() *registry.Factory { return s.factory }

// Bootstrap registers the built-in components and scans the configured
// component roots plus the upload root. Bundles that fail to load are
// logged and skipped.
func (s *Server) Bootstrap(ctx context.Context) error {
	if err := builtin.Register(s.factory); err != nil {
		return fmt.Errorf("failed to register built-in components: %w", err)
	}

	report, err := s.scanner.ScanRoots(ctx, s.roots())
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("startup scan interrupted: %w", ctxErr)
	}
	if err != nil {
		for _, f := range report.Failures {
			s.logger.Warn("Skipped bundle", zap.Error(f))
		}
	}

	s.logger.Info("Startup scan complete",
		zap.Int("modules", len(report.Modules)),
		zap.Int("registered", len(report.Registered)),
		zap.Int("failed", len(report.Failures)),
		zap.Int("components", s.factory.Size()),
	)
	return nil
}

// roots lists the configured paths followed by the upload root, so uploads
// from earlier runs shadow bundles shipped with the deployment.
func (s *Server) roots() []string {
	roots := make([]string, 0, len(s.config.Components.Paths)+1)
	for _, p := range append(slices.Clone(s.config.Components.Paths), s.uploader.Root()) {
		if p == "" {
			continue
		}
		p = filepath.Clean(p)
		if !slices.Contains(roots, p) {
			roots = append(roots, p)
		}
	}
	return roots
}

// Run starts the HTTP server
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}

	_ = s.logger.Sync()
	return nil
}
