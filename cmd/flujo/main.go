package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"flujo/internal/backend"
	"flujo/internal/cli"
	apphttp "flujo/internal/http"
	applog "flujo/internal/log"
	"flujo/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(applog.New(applog.DefaultConfig()))
	logger := cli.SetupLogger(cfg, os.Stdout)

	res := cli.InitBackend(context.Background(), logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	flows, cacheManager := cli.NewFlowService(cfg, res.Backend, logger)
	defer cacheManager.Stop()
	imports := services.NewImportService(res.Backend, res.Backend, res.Backend, res.Publisher(), logger)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:    ":" + cfg.Port,
		Flows:   flows,
		Imports: imports,
		Checks:  map[string]apphttp.ReadinessCheck{"storage": storageCheck(res.Backend)},
		Logger:  logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Starting flujo server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"queue_enabled", res.Queue != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}

// storageCheck pings stores that support it and falls back to a read.
func storageCheck(b backend.Backend) apphttp.ReadinessCheck {
	type pinger interface {
		Ping(ctx context.Context) error
	}
	return func(ctx context.Context) error {
		if p, ok := b.(pinger); ok {
			return p.Ping(ctx)
		}
		_, err := b.Records(ctx)
		return err
	}
}
