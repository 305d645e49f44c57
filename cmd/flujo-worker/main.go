package main

import (
	"context"
	"errors"
	"os"
	"time"

	"flujo/internal/backend"
	"flujo/internal/cli"
	applog "flujo/internal/log"
	"flujo/internal/services"
	"flujo/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(applog.New(applog.DefaultConfig()))
	logger := cli.SetupLogger(cfg, os.Stdout)
	logger.Info("Starting flujo-worker")

	if !backend.BackendType(cfg.DataBackend).Shared() {
		logger.Error("The import worker needs a shared backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the import worker")
		os.Exit(1)
	}

	res := cli.InitBackend(context.Background(), logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	if res.Queue == nil {
		logger.Error("AMQP broker unavailable", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		os.Exit(1)
	}

	flows, cacheManager := cli.NewFlowService(cfg, res.Backend, logger)
	defer cacheManager.Stop()
	imports := services.NewImportService(res.Backend, res.Backend, res.Backend, nil, logger)

	var importWorker *worker.ImportWorker
	if res.Exporter != nil {
		importWorker = worker.NewImportWorker(imports, flows, res.Exporter, cfg.Views(), logger)
		logger.Info("Exports refreshed after each batch", "views", cfg.Views())
	} else {
		importWorker = worker.NewImportWorker(imports, nil, nil, nil, logger)
		logger.Info("Spreadsheet export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if err := res.Queue.ConsumeImports(ctx, importWorker.HandleImportMessage); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}

	<-done
	logger.Info("Worker shutdown complete")
}
