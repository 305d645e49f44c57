package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"flujo/internal/amqp"
	"flujo/internal/core"
	"flujo/internal/ledger"
	applog "flujo/internal/log"
)

// ErrEmptyImport is returned for a batch without records.
var ErrEmptyImport = errors.New("import batch has no records")

// Publisher hands import batches to the asynchronous worker.
type Publisher interface {
	PublishImport(ctx context.Context, msg *amqp.ImportMessage) error
}

// ImportResult describes a submitted batch.
type ImportResult struct {
	BatchID string       `json:"batchId"`
	Queued  bool         `json:"queued"`
	Stats   ledger.Stats `json:"stats"`
}

// ImportService validates record batches and persists them, either directly
// or through the import queue when a Publisher is configured.
type ImportService struct {
	reader    ledger.RecordReader
	writer    ledger.RecordWriter
	batches   ledger.BatchRecorder
	publisher Publisher
	logger    *applog.Logger
	newID     func() string
	now       func() time.Time
}

// NewImportService wires the import pipeline. batches and publisher are optional.
func NewImportService(reader ledger.RecordReader, writer ledger.RecordWriter, batches ledger.BatchRecorder, publisher Publisher, logger *applog.Logger) *ImportService {
	if logger == nil {
		logger = applog.Discard()
	}
	return &ImportService{
		reader:    reader,
		writer:    writer,
		batches:   batches,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentImport),
		newID:     func() string { return uuid.NewString() },
		now:       time.Now,
	}
}

// Submit normalizes and validates recs, then queues them when a publisher
// is configured or stores them right away otherwise.
func (s *ImportService) Submit(ctx context.Context, source string, recs ledger.Records) (ImportResult, error) {
	batchID := s.newID()

	recs, err := s.normalize(ctx, recs)
	if err != nil {
		return ImportResult{BatchID: batchID}, err
	}

	if s.publisher != nil {
		msg := amqp.NewImportMessage(batchID, source, recs)
		err := s.publisher.PublishImport(ctx, msg)
		if err == nil {
			s.logger.InfoContext(ctx, "Import batch queued", applog.NewFields().
				WithOperation(applog.OpPublish).
				WithBatch(batchID, recs.Len()).
				ToSlice()...)
			return ImportResult{BatchID: batchID, Queued: true}, nil
		}
		// Queue unavailable: the batch is already valid, store it inline.
		s.logger.WarnContext(ctx, "Failed to publish import batch, storing directly", applog.NewFields().
			WithBatch(batchID, recs.Len()).
			WithError(err).
			ToSlice()...)
	}

	stats, err := s.store(ctx, batchID, source, recs)
	if err != nil {
		return ImportResult{BatchID: batchID}, err
	}
	return ImportResult{BatchID: batchID, Stats: stats}, nil
}

// Apply stores a batch received from the import queue.
func (s *ImportService) Apply(ctx context.Context, batchID, source string, recs ledger.Records) (ledger.Stats, error) {
	recs, err := s.normalize(ctx, recs)
	if err != nil {
		return ledger.Stats{}, err
	}
	return s.store(ctx, batchID, source, recs)
}

// Batches lists recent imports, newest first.
func (s *ImportService) Batches(ctx context.Context, limit int) ([]ledger.Batch, error) {
	if s.batches == nil {
		return []ledger.Batch{}, nil
	}
	return s.batches.Batches(ctx, limit)
}

func (s *ImportService) store(ctx context.Context, batchID, source string, recs ledger.Records) (ledger.Stats, error) {
	stats, err := s.writer.Save(ctx, recs)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save import batch", applog.NewFields().
			WithOperation(applog.OpImport).
			WithBatch(batchID, recs.Len()).
			WithError(err).
			ToSlice()...)
		return ledger.Stats{}, fmt.Errorf("save batch %s: %w", batchID, err)
	}

	if s.batches != nil {
		b := ledger.Batch{ID: batchID, Source: source, Stats: stats, CreatedAt: s.now()}
		if err := s.batches.RecordBatch(ctx, b); err != nil {
			// Records are stored; only the audit entry is missing.
			s.logger.WarnContext(ctx, "Failed to record import batch", applog.NewFields().
				WithBatch(batchID, stats.Total()).
				WithError(err).
				ToSlice()...)
		}
	}

	applog.NewStructuredLogger(s.logger).LogImport(ctx, batchID, stats.Total())
	return stats, nil
}

// normalize assigns missing ids, resolves category names used as guides
// and validates the result.
func (s *ImportService) normalize(ctx context.Context, recs ledger.Records) (ledger.Records, error) {
	if recs.Len() == 0 {
		return recs, ErrEmptyImport
	}

	existing, err := s.reader.Records(ctx)
	if err != nil {
		return recs, fmt.Errorf("load categories: %w", err)
	}
	catalog := core.NewCatalog(append(existing.Categories, recs.Categories...), nil)

	out := ledger.Records{
		Categories:   append([]core.Category(nil), recs.Categories...),
		Accounts:     append([]core.Account(nil), recs.Accounts...),
		Transactions: make([]core.Transaction, len(recs.Transactions)),
		Scheduled:    make([]core.ScheduledPayment, len(recs.Scheduled)),
	}
	for i, t := range recs.Transactions {
		if strings.TrimSpace(t.ID) == "" {
			t.ID = s.newID()
		}
		t.Guide = resolveGuide(catalog, t.Guide)
		out.Transactions[i] = t
	}
	for i, p := range recs.Scheduled {
		if strings.TrimSpace(p.ID) == "" {
			p.ID = s.newID()
		}
		p.Guide = resolveGuide(catalog, p.Guide)
		out.Scheduled[i] = p
	}

	if err := out.Validate(); err != nil {
		return recs, err
	}
	return out, nil
}

// resolveGuide maps a category name to its id. Unknown guides are kept
// verbatim and show as uncategorized.
func resolveGuide(catalog *core.Catalog, guide string) string {
	guide = strings.TrimSpace(guide)
	if guide == "" {
		return guide
	}
	if _, ok := catalog.Category(guide); ok {
		return guide
	}
	if cat, ok := catalog.FindCategory(guide); ok {
		return cat.ID
	}
	return guide
}

// IsValidationError reports whether err rejects the batch content itself.
func IsValidationError(err error) bool {
	var recErr *ledger.RecordError
	return errors.As(err, &recErr) || errors.Is(err, ErrEmptyImport)
}
