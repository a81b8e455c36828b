package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"cordpulse/internal/cache"
	"cordpulse/internal/config"
	apierrors "cordpulse/internal/errors"
	"cordpulse/internal/files"
	"cordpulse/internal/infrastructure"
	customMiddleware "cordpulse/internal/middleware"
	"cordpulse/internal/services"
	handlers "cordpulse/internal/transport/http"
	ws "cordpulse/internal/websocket"
	"cordpulse/pkg/contracts"
)

// AppName is shown in startup logs.
const AppName = "CORD Pulse - CORD-19 Metadata Analysis Dashboard"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders

	Source        *files.Source
	Dashboard     *services.DashboardService
	HealthService *services.HealthService
	WebSocketHub  *ws.Hub

	metrics   *infrastructure.PipelineMetrics
	wsMetrics *ws.OTelMetrics
	closeLog  func() error
}

// Option configures an Application.
type Option func(*Application)

// WithLogger replaces the logger built from the logging config.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Application) { a.Logger = logger }
}

// NewApplication wires every component from cfg.
func NewApplication(cfg *config.Config, opts ...Option) (*Application, error) {
	a := &Application{Config: cfg, closeLog: func() error { return nil }}
	for _, opt := range opts {
		opt(a)
	}

	if a.Logger == nil {
		logger, err := infrastructure.NewLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		a.Logger = logger.Logger
		a.closeLog = logger.Close
	}
	a.Logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("dataset", cfg.Dataset.Path))

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, contracts.Version, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.OTelProviders = providers

	if err := a.initializeServices(); err != nil {
		return nil, err
	}
	a.setupRouter()
	a.createServer()
	return a, nil
}

// NewDashboard builds the dashboard pipeline on its own, for the CLI.
func NewDashboard(cfg config.DatasetConfig, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) (*services.DashboardService, *files.Source) {
	source := files.NewSource(cfg.BaseDir,
		files.WithCredentialsFile(cfg.GCSCredentialsFile),
		files.WithLogger(infrastructure.WithComponent(logger, "files")))
	if metrics == nil {
		metrics = infrastructure.NoopPipelineMetrics()
	}
	dashboard := services.NewDashboardService(cfg, source,
		cache.NewDatasetCache(cfg.CacheTTL),
		services.WithLogger(logger),
		services.WithMetrics(metrics))
	return dashboard, source
}

func (a *Application) initializeServices() error {
	metrics, err := infrastructure.NewPipelineMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	a.metrics = metrics

	if a.wsMetrics, err = ws.NewOTelMetrics(a.OTelProviders.Meter); err != nil {
		return fmt.Errorf("failed to create websocket metrics: %w", err)
	}

	a.Dashboard, a.Source = NewDashboard(a.Config.Dataset, a.Logger, metrics)
	a.WebSocketHub = ws.NewHub(a.Logger)
	a.HealthService = services.NewHealthService(
		contracts.Version,
		contracts.BuildTime,
		contracts.GitCommit,
		a.Dashboard,
		a.WebSocketHub,
		a.Logger,
	)
	return nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errorHandler := apierrors.NewErrorHandler(a.Logger, false)

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.metrics).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.SecurityHeaders)
	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins:   a.Config.Security.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
			Logger:           a.Logger,
		}))
	}
	if rl := a.Config.Security.RateLimit; rl.Enabled {
		r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
	}

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	// the websocket session outlives any request timeout
	r.Handle("/ws", ws.NewHandler(a.WebSocketHub, a.Dashboard, a.Config.WebSocket, a.Logger,
		ws.WithAllowedOrigins(a.Config.Security.AllowedOrigins),
		ws.WithHandlerMetrics(a.wsMetrics),
		ws.WithSessionTimeout(a.Config.Server.RequestTimeout)))

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))

		page := handlers.NewPageHandler(a.Dashboard, a.Logger, errorHandler)
		r.Get("/", page.ServeDashboard)
		r.Get("/index.html", handlers.RedirectToDashboard)

		r.Route("/api", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))

			r.Mount("/dashboard", handlers.NewDashboardHandler(a.Dashboard, a.Logger, errorHandler).Routes())

			health := handlers.NewHealthHandler(a.HealthService, a.Logger)
			r.Mount("/health", health.Routes())
			r.Get("/version", health.Version)

			r.Post("/logs", handlers.NewClientLogHandler(a.Logger, errorHandler).Handle)
		})

		r.Mount("/metrics", handlers.NewMetricsHandler(a.OTelProviders.MetricsHandler(), a.Dashboard).Routes())
	})

	a.Router = r
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	s := a.Config.Server
	a.Server = &http.Server{
		Addr:           s.Addr(),
		Handler:        a.Router,
		ReadTimeout:    s.ReadTimeout,
		WriteTimeout:   s.WriteTimeout,
		IdleTimeout:    s.IdleTimeout,
		MaxHeaderBytes: s.MaxHeaderBytes,
	}
}

// Start preloads the dataset and starts serving. Serve errors cancel ctx
// through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	// a failed preload is reported on the page, not fatal here
	if status, err := a.Dashboard.Load(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Dataset preload failed", slog.String("error", err.Error()))
	} else {
		a.Logger.InfoContext(ctx, status.Message)
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	// hijacked websocket connections are not covered by Shutdown
	if err := a.WebSocketHub.Stop(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error closing WebSocket clients", slog.String("error", err.Error()))
	}
	if err := a.Source.Close(); err != nil {
		a.Logger.ErrorContext(ctx, "Error closing dataset source", slog.String("error", err.Error()))
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	if err := a.closeLog(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}
	return errors.Join(errs...)
}

// Run runs the application until interrupted or until the server fails.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.WarnContext(ctx, "Server stopped unexpectedly")
	}

	// shutdown gets a fresh context; ctx may already be cancelled
	stopCtx, stopCancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout+5*time.Second)
	defer stopCancel()
	return a.Stop(stopCtx)
}
