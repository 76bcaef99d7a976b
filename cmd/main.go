package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/statscout/internal/adapters/http/api"
	"github.com/okian/statscout/internal/adapters/http/site"
	"github.com/okian/statscout/internal/adapters/http/swagger"
	"github.com/okian/statscout/internal/adapters/similarity"
	"github.com/okian/statscout/internal/app"
	"github.com/okian/statscout/internal/config"
	"github.com/okian/statscout/pkg/logger"
	"github.com/okian/statscout/pkg/metrics"
	"github.com/okian/statscout/pkg/telemetry"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	handlerTimeout            = 2 * time.Minute
	writeTimeout              = handlerTimeout + 5*time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.InitWith(os.Stdout, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	tel, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.TraceEndpoint)
	if err != nil {
		loggerInstance.Warn(ctx, "tracing disabled", logger.String("trace_endpoint", cfg.TraceEndpoint), logger.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			loggerInstance.Error(ctx, "telemetry shutdown failed", logger.Error(err))
		}
	}()

	client := similarity.New(cfg.APIBaseURL,
		similarity.WithTimeout(cfg.RequestTimeout()),
		similarity.WithLogger(loggerInstance.Named("similarity")),
		similarity.WithUserAgent(cfg.UserAgent),
	)
	tracker := app.NewTracker()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(ctx, cfg, client, tracker, loggerInstance),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("api_base_url", client.BaseURL()),
			logger.String("coercion_policy", string(cfg.Policy())),
			logger.Bool("tracing", tel.Enabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped", logger.Any("stats", tracker.GetStats()))
}

// newRouter builds the HTTP surface: the form site, the JSON API and the docs.
func newRouter(ctx context.Context, cfg *config.Config, submitter app.Submitter, tracker *app.Tracker, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(handlerTimeout))
	r.Use(api.SubmissionID)

	handleOpts := []app.Option{
		app.WithPolicy(cfg.Policy()),
		app.WithTracker(tracker),
		app.WithSubmitGuard(cfg.SubmitGuard),
	}

	site.Register(ctx, r, site.Dependencies{
		Submitter:     submitter,
		HandleOptions: handleOpts,
		Logger:        log,
	})

	swagger.Register(ctx, r)

	apiServer := api.NewServer(api.Dependencies{
		Submitter:      submitter,
		HandleOptions:  handleOpts,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         log,
	}, tracker)
	apiServer.Register(ctx, r)

	return r
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		// average pause over the process lifetime
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
