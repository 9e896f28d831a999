package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/Killgreck/agenda/internal/clock"
	"github.com/Killgreck/agenda/internal/config"
	"github.com/Killgreck/agenda/internal/handler"
	"github.com/Killgreck/agenda/internal/holiday"
	"github.com/Killgreck/agenda/internal/ingest"
	"github.com/Killgreck/agenda/internal/notify"
	"github.com/Killgreck/agenda/internal/reminder"
	"github.com/Killgreck/agenda/internal/repository"
	"github.com/Killgreck/agenda/internal/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Create a basic logger for startup (before OTel is initialized)
	startupLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	startupLogger.Info("starting application",
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	ctx := context.Background()

	// Initialize OpenTelemetry tracer provider
	tp, err := telemetry.InitTracerProvider(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		startupLogger.Error("failed to initialize tracer provider", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			startupLogger.Error("failed to shutdown tracer provider", slog.Any("error", err))
		}
	}()

	// Initialize OpenTelemetry meter provider
	mp, err := telemetry.InitMeterProvider(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		startupLogger.Error("failed to initialize meter provider", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := mp.Shutdown(ctx); err != nil {
			startupLogger.Error("failed to shutdown meter provider", slog.Any("error", err))
		}
	}()

	// Initialize OpenTelemetry logger provider (after other providers for log-trace correlation)
	lp, logger, err := telemetry.InitLoggerProvider(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		startupLogger.Error("failed to initialize logger provider", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := lp.Shutdown(ctx); err != nil {
			startupLogger.Error("failed to shutdown logger provider", slog.Any("error", err))
		}
	}()

	// Select the task store: Postgres when configured, in-memory otherwise.
	var repo repository.Repository
	if cfg.DatabaseURL != "" {
		pg, err := repository.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer pg.Close()
		repo = pg
		logger.Info("using postgres task store")
	} else {
		repo = repository.NewMemory()
		logger.Info("using in-memory task store")
	}

	// Notifiers: the websocket hub always runs; NATS when configured.
	hub := notify.NewHub(logger)
	notifiers := notify.Fanout{hub}
	if cfg.NATSURL != "" {
		nats, err := notify.NewNATSPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("failed to connect to NATS", slog.Any("error", err))
			os.Exit(1)
		}
		defer nats.Close()
		notifiers = append(notifiers, nats)
	}

	// Create metrics instruments
	meter := otel.Meter(cfg.ServiceName)
	metrics, err := telemetry.NewMetrics(meter, func() int64 {
		n, err := repo.Count(context.Background())
		if err != nil {
			return 0
		}
		return n
	})
	if err != nil {
		logger.Error("failed to create metrics", slog.Any("error", err))
		os.Exit(1)
	}

	clk := clock.Real()
	holidays := holiday.NewCalendar()

	ingestor := ingest.NewService(repo, holidays, clk, notifiers, logger, ingest.Options{
		CheckRecurringConflicts: cfg.CheckRecurringConflicts,
	})

	// Reminder sweep
	sweeper := reminder.NewSweeper(repo, notifiers, clk, logger)
	if err := sweeper.Start(cfg.ReminderSweep); err != nil {
		logger.Error("failed to start reminder sweeper", slog.Any("error", err))
		os.Exit(1)
	}
	defer sweeper.Stop()

	// Initialize handlers
	taskHandler := handler.NewTaskHandler(ingestor, repo, notifiers, clk, logger, metrics)

	// Create router
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint (excluded from tracing)
	r.Get("/health", taskHandler.Health)

	// Real-time event stream
	r.Get("/ws", hub.ServeHTTP)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/tasks", taskHandler.Routes())
		r.Get("/slots", taskHandler.Slots)
	})

	// Wrap router with OpenTelemetry HTTP instrumentation
	otelHandler := otelhttp.NewHandler(r, "http-server",
		otelhttp.WithFilter(func(r *http.Request) bool {
			// Skip tracing for health checks and the websocket stream
			return r.URL.Path != "/health" && r.URL.Path != "/ws"
		}),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      otelHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create context with timeout for shutdown
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Gracefully shutdown the server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("error", err))
	}

	logger.Info("server stopped")
}
