package worker

import (
	"context"
	"fmt"
	"time"

	"flujo/internal/amqp"
	"flujo/internal/flow"
	"flujo/internal/ledger"
	applog "flujo/internal/log"
	"flujo/internal/services"
)

// Importer persists a batch received from the queue.
type Importer interface {
	Apply(ctx context.Context, batchID, source string, recs ledger.Records) (ledger.Stats, error)
}

// TableSource renders the export table of a view.
type TableSource interface {
	Export(ctx context.Context, q flow.Query) (flow.ExportTable, error)
}

// ImportWorker stores queued import batches and refreshes the exported
// views afterwards.
type ImportWorker struct {
	importer Importer
	tables   TableSource
	sink     ledger.TableExporter
	views    []flow.ViewKind
	logger   *applog.Logger
}

// NewImportWorker creates a worker. tables and sink are optional; without
// them batches are only stored.
func NewImportWorker(importer Importer, tables TableSource, sink ledger.TableExporter, views []flow.ViewKind, logger *applog.Logger) *ImportWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &ImportWorker{
		importer: importer,
		tables:   tables,
		sink:     sink,
		views:    views,
		logger:   logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleImportMessage processes a single import message from AMQP
func (w *ImportWorker) HandleImportMessage(ctx context.Context, msg *amqp.ImportMessage) error {
	w.logger.InfoContext(ctx, "Processing import message", applog.NewFields().
		WithOperation(applog.OpConsume).
		WithBatch(msg.BatchID, msg.Len()).
		ToSlice()...)

	stats, err := w.importer.Apply(ctx, msg.BatchID, msg.Source, msg.Records)
	if err != nil {
		if services.IsValidationError(err) {
			return &amqp.PermanentError{Err: fmt.Errorf("batch %s: %w", msg.BatchID, err)}
		}
		return fmt.Errorf("apply batch %s: %w", msg.BatchID, err)
	}

	w.logger.InfoContext(ctx, "Import batch stored", applog.NewFields().
		WithBatch(msg.BatchID, stats.Total()).
		With("lag_ms", time.Since(msg.Timestamp).Milliseconds()).
		ToSlice()...)

	// The batch is stored; a failed refresh must not requeue it.
	if err := w.RefreshExports(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to refresh exports", applog.NewFields().
			WithBatch(msg.BatchID, stats.Total()).
			WithError(err).
			ToSlice()...)
	}
	return nil
}

// RefreshExports rewrites every configured view through the sink.
func (w *ImportWorker) RefreshExports(ctx context.Context) error {
	if w.sink == nil || w.tables == nil {
		return nil
	}
	for _, v := range w.views {
		t, err := w.tables.Export(ctx, flow.Query{View: v})
		if err != nil {
			return fmt.Errorf("export %s: %w", v, err)
		}
		ref, err := w.sink.Export(ctx, string(v), t)
		if err != nil {
			return fmt.Errorf("publish %s: %w", v, err)
		}
		w.logger.InfoContext(ctx, "Export refreshed", applog.NewFields().
			WithOperation(applog.OpExport).
			With(applog.FieldView, string(v)).
			With(applog.FieldSheetsRef, ref).
			ToSlice()...)
	}
	return nil
}
