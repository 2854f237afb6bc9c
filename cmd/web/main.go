package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
)

var version = "1.0.0"

var dataFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sales-dashboard",
		Short: "Sales performance dashboard over a CSV file",
		Long: `Serves a single-page sales dashboard computed from a CSV file with
Date, Product, Region and Total columns.

Running without a subcommand is the same as "serve".`,
		Version:      version,
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.PersistentFlags().StringVar(&dataFile, "data", "", "path to the sales CSV (overrides DATA_FILE)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the dashboard web server",
			Args:  cobra.NoArgs,
			RunE:  runServe,
		},
		newSummaryCmd(),
	)
	return root
}

// loadConfig reads the environment and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dataFile != "" {
		cfg.Data.CSVFile = dataFile
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newAnalytics(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*services.Analytics, *services.DatasetCache) {
	opts := []services.CacheOption{services.WithLoadTimeout(cfg.Data.LoadTimeout)}
	if metrics != nil {
		opts = append(opts, services.WithMetrics(metrics))
	}
	cache := services.NewDatasetCache(cfg.Data.CSVFile, logger, opts...)
	return services.NewAnalytics(cache, logger), cache
}

// buildHandler wraps the routes in the middleware chain. Metrics must stay
// innermost to see the route pattern the mux records on the request.
func buildHandler(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, srv http.Handler) http.Handler {
	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
		middleware.Metrics(metrics),
	)

	return middlewareChain(srv)
}

// startWatcher returns nil when the data file cannot be watched, for example
// because its directory does not exist yet. The cache still picks up file
// changes by modification time without it.
func startWatcher(cache *services.DatasetCache, debounce time.Duration, logger *slog.Logger) *services.Watcher {
	watcher, err := services.NewWatcher(cache.Path(), cache, debounce, logger)
	if err != nil {
		logger.Warn("data file watcher disabled", "path", cache.Path(), "error", err)
		return nil
	}
	if err := watcher.Start(context.Background()); err != nil {
		_ = watcher.Stop()
		logger.Warn("data file watcher disabled", "path", cache.Path(), "error", err)
		return nil
	}
	return watcher
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return err
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", version,
		"data_file", cfg.Data.CSVFile,
		"watch", cfg.Data.Watch,
		"trace_exporter", cfg.Telemetry.TraceExporter,
	)

	shutdownTracing, err := observability.InitTracing(cfg.Telemetry, version, os.Stderr)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	metrics := observability.NewMetrics()
	analytics, cache := newAnalytics(cfg, logger, metrics)

	// A broken file is not fatal: the dashboard shows the error until the
	// file is fixed.
	if report, err := analytics.Report(cmd.Context()); err != nil {
		logger.Warn("initial data load failed", "error", err)
	} else {
		logger.Info("sales data loaded", "records", report.RecordCount)
	}

	srv := server.NewServer(analytics, metrics, logger, version)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      buildHandler(cfg, logger, metrics, srv),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	if cfg.Data.Watch {
		if watcher := startWatcher(cache, cfg.Data.WatchDebounce, logger); watcher != nil {
			gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
				logger.Info("stopping data watcher")
				return watcher.Stop()
			})
		}
	}

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("flushing traces")
		return shutdownTracing(ctx)
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		return err
	}

	logger.Info("application stopped gracefully")
	return nil
}
