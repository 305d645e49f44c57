// Package cli provides the bootstrap shared by cmd/flujo, cmd/flujo-worker
// and cmd/flujoctl.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"flujo/internal/backend"
	"flujo/internal/cache"
	"flujo/internal/config"
	"flujo/internal/flow"
	"flujo/internal/forecast"
	"flujo/internal/ledger"
	applog "flujo/internal/log"
	"flujo/internal/services"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the application logger from LOG_LEVEL and LOG_FORMAT
// and installs it as the slog default.
func SetupLogger(cfg *config.Config, out io.Writer) *applog.Logger {
	logCfg := applog.DefaultConfig()
	if level, err := applog.ParseLevel(cfg.LogLevel); err == nil {
		logCfg.Level = level
	}
	logCfg.Format = cfg.LogFormat
	if out != nil {
		logCfg.Output = out
	}

	logger := applog.New(logCfg)
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend creates the configured record store.
// Returns the backend or exits the process on failure.
func InitBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) *backend.BackendResult {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return res
}

// FlowDefaults maps the flow engine settings of cfg.
func FlowDefaults(cfg *config.Config) services.FlowDefaults {
	return services.FlowDefaults{
		AmountField:         cfg.Amount(),
		Range:               flow.DateRange{Start: cfg.RangeStart, End: cfg.RangeEnd},
		ExcludedCategoryIDs: cfg.ExcludedCategoryIDs,
		ForecastSeed:        cfg.ForecastSeed,
		MaxBuckets:          cfg.MaxBuckets,
	}
}

// NewFlowService wires a FlowService with LRU caches sized from cfg. The
// returned manager evicts expired entries until stopped.
func NewFlowService(cfg *config.Config, reader ledger.RecordReader, logger *applog.Logger) (*services.FlowService, *cache.Manager) {
	views := cache.NewLRUCache[flow.View](cfg.CacheSize, cfg.CacheTTL)
	forecasts := cache.NewLRUCache[forecast.Result](cfg.CacheSize, cfg.CacheTTL)

	manager := cache.NewManager(logger)
	manager.Register(views)
	manager.Register(forecasts)
	manager.StartCleanup(cfg.CacheTTL)

	return services.NewFlowService(reader, views, forecasts, FlowDefaults(cfg), logger), manager
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// The returned context is cancelled on SIGINT or SIGTERM, after cleanup has
// run with a context bounded by timeout.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}
