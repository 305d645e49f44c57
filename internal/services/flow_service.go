package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flujo/internal/cache"
	"flujo/internal/core"
	"flujo/internal/flow"
	"flujo/internal/forecast"
	"flujo/internal/ledger"
	applog "flujo/internal/log"
)

var (
	// ErrInvalidYear is returned for forecast years outside 1900..9999.
	ErrInvalidYear = errors.New("invalid year")
	// ErrNotForecastMonth is returned when a VAT breakdown is asked for a
	// month that holds actual data.
	ErrNotForecastMonth = errors.New("month is not forecast")
	// ErrRangeTooLarge is returned when a view would lay out more buckets
	// than FlowDefaults.MaxBuckets.
	ErrRangeTooLarge = errors.New("date range too large")
)

// DefaultMaxBuckets bounds the columns of one view: ten years of days.
const DefaultMaxBuckets = 3660

// FlowDefaults fill the parts of a query the caller leaves empty.
type FlowDefaults struct {
	AmountField         core.AmountField
	Range               flow.DateRange
	ExcludedCategoryIDs []string
	ForecastSeed        int64
	MaxBuckets          int
}

// FlowService computes flow views and forecasts over the stored records.
// Results are memoized by the content of the records and the query, so a
// new import never serves a stale table.
type FlowService struct {
	reader    ledger.RecordReader
	views     *cache.Memo[flow.View]
	forecasts *cache.Memo[forecast.Result]
	defaults  FlowDefaults
	logger    *applog.Logger
	now       func() time.Time
}

func NewFlowService(reader ledger.RecordReader, views cache.Cache[flow.View], forecasts cache.Cache[forecast.Result], defaults FlowDefaults, logger *applog.Logger) *FlowService {
	if logger == nil {
		logger = applog.Discard()
	}
	if defaults.AmountField == "" {
		defaults.AmountField = core.Home
	}
	if defaults.MaxBuckets <= 0 {
		defaults.MaxBuckets = DefaultMaxBuckets
	}
	return &FlowService{
		reader:    reader,
		views:     cache.NewMemo(views),
		forecasts: cache.NewMemo(forecasts),
		defaults:  defaults,
		logger:    logger.WithComponent(applog.ComponentFlow),
		now:       time.Now,
	}
}

// View computes the view selected by q.
func (s *FlowService) View(ctx context.Context, q flow.Query) (flow.View, error) {
	q = s.complete(q)

	recs, err := s.reader.Records(ctx)
	if err != nil {
		return flow.View{}, fmt.Errorf("load records: %w", err)
	}
	src := recs.Sources()
	if n := flow.BucketCount(src, q); n > s.defaults.MaxBuckets {
		return flow.View{}, fmt.Errorf("%w: %d %s buckets, at most %d", ErrRangeTooLarge, n, q.View, s.defaults.MaxBuckets)
	}

	key, err := cache.Key("view", recs, q, core.FormatDate(q.Today))
	if err != nil {
		return flow.View{}, err
	}

	v, hit, err := s.views.Do(key, func() (flow.View, error) {
		return flow.Build(src, q), nil
	})
	if err != nil {
		return flow.View{}, err
	}

	buckets := 0
	if v.Table != nil {
		buckets = len(v.Table.Buckets)
	}
	applog.NewStructuredLogger(s.logger).LogViewComputed(ctx, string(v.Kind), v.Start, v.End, buckets, hit)
	return v, nil
}

// Export computes the view selected by q and flattens it into rows.
func (s *FlowService) Export(ctx context.Context, q flow.Query) (flow.ExportTable, error) {
	v, err := s.View(ctx, q)
	if err != nil {
		return flow.ExportTable{}, err
	}
	return flow.Export(v), nil
}

// Forecast computes the monthly forecast of year over the transaction
// history, using the home or foreign amount as selected by field.
func (s *FlowService) Forecast(ctx context.Context, year int, field core.AmountField) (forecast.Result, error) {
	if year < 1900 || year > 9999 {
		return forecast.Result{}, fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	if field == "" {
		field = s.defaults.AmountField
	}

	recs, err := s.reader.Records(ctx)
	if err != nil {
		return forecast.Result{}, fmt.Errorf("load records: %w", err)
	}
	key, err := cache.Key("forecast", recs, year, field, s.defaults.ExcludedCategoryIDs, s.defaults.ForecastSeed)
	if err != nil {
		return forecast.Result{}, err
	}

	res, hit, err := s.forecasts.Do(key, func() (forecast.Result, error) {
		src := recs.Sources()
		// One engine per computation: the seeded generator is not shareable.
		engine := forecast.New(forecast.Options{
			Catalog:             src.Catalog,
			ExcludedCategoryIDs: s.defaults.ExcludedCategoryIDs,
			Rand:                forecast.NewRand(s.defaults.ForecastSeed),
		})
		return engine.Forecast(src.Items(flow.ViewMonthly, field, nil), year), nil
	})
	if err != nil {
		return forecast.Result{}, err
	}

	s.logger.InfoContext(ctx, "Forecast computed", applog.NewFields().
		WithOperation(applog.OpForecast).
		With(applog.FieldCacheHit, hit).
		With(applog.FieldYear, year).
		With("forecasted_months", len(res.Forecasted)).
		ToSlice()...)
	return res, nil
}

// VAT returns the VAT breakdown of a forecast month (1..12) of year.
func (s *FlowService) VAT(ctx context.Context, year, month int, field core.AmountField) (forecast.VATBreakdown, error) {
	if month < 1 || month > 12 {
		return forecast.VATBreakdown{}, fmt.Errorf("%w: month %d", ErrNotForecastMonth, month)
	}
	res, err := s.Forecast(ctx, year, field)
	if err != nil {
		return forecast.VATBreakdown{}, err
	}
	key := fmt.Sprintf("%04d-%02d", year, month)
	b, ok := res.VATFor(key)
	if !ok {
		return forecast.VATBreakdown{}, fmt.Errorf("%w: %s", ErrNotForecastMonth, key)
	}
	return b, nil
}

// Publish writes t through exporter under name.
func (s *FlowService) Publish(ctx context.Context, exporter ledger.TableExporter, name string, t flow.ExportTable) (string, error) {
	ref, err := exporter.Export(ctx, name, t)
	if err != nil {
		applog.NewStructuredLogger(s.logger).LogError(ctx, "Export failed", err,
			applog.ComponentFlow, applog.OpExport,
			applog.NewFields().With("name", name))
		return "", fmt.Errorf("export %s: %w", name, err)
	}
	s.logger.InfoContext(ctx, "Table exported", applog.NewFields().
		WithOperation(applog.OpExport).
		With("name", name).
		With("ref", ref).
		With("rows", len(t.Rows)).
		ToSlice()...)
	return ref, nil
}

// CacheStats reports the view and forecast memo counters.
func (s *FlowService) CacheStats() (views, forecasts cache.MemoStats) {
	return s.views.Stats(), s.forecasts.Stats()
}

func (s *FlowService) complete(q flow.Query) flow.Query {
	if q.View == "" {
		q.View = flow.ViewMonthly
	}
	if q.AmountField == "" {
		q.AmountField = s.defaults.AmountField
	}
	if q.Range.Start == "" {
		q.Range.Start = s.defaults.Range.Start
	}
	if q.Range.End == "" {
		q.Range.End = s.defaults.Range.End
	}
	if q.Today.IsZero() {
		q.Today = s.now()
	}
	return q
}
