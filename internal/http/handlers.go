package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"flujo/internal/flow"
	"flujo/internal/ledger"
	applog "flujo/internal/log"
	"flujo/internal/services"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady runs every readiness check with a shared timeout
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			checks[name] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	writeJSON(w, r, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides request, cache and security counters in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.tracer.GetMetrics()
	limitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "HTTP responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_response_time_average_microseconds", "gauge", "Average response time", traceMetrics.AverageResponseTime)

	if s.flows != nil {
		views, forecasts := s.flows.CacheStats()
		fmt.Fprintf(w, "# HELP cache_entries Current cache entries\n# TYPE cache_entries gauge\n")
		fmt.Fprintf(w, "cache_entries{type=\"views\"} %d\ncache_entries{type=\"forecasts\"} %d\n\n", views.Entries, forecasts.Entries)
		fmt.Fprintf(w, "# HELP cache_hits_total Total cache hits\n# TYPE cache_hits_total counter\n")
		fmt.Fprintf(w, "cache_hits_total{type=\"views\"} %d\ncache_hits_total{type=\"forecasts\"} %d\n\n", views.Hits, forecasts.Hits)
		fmt.Fprintf(w, "# HELP cache_misses_total Total cache misses\n# TYPE cache_misses_total counter\n")
		fmt.Fprintf(w, "cache_misses_total{type=\"views\"} %d\ncache_misses_total{type=\"forecasts\"} %d\n\n", views.Misses, forecasts.Misses)
	}

	metric("rate_limit_hits_total", "counter", "Total rate limit hits", limitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", limitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.started).Seconds()))
}

func (s *Server) flowQuery(r *http.Request) (flow.Query, error) {
	view, err := flow.ParseView(r.PathValue("view"))
	if err != nil {
		return flow.Query{}, err
	}
	return parseFlowQuery(view, r.URL.Query())
}

// handleFlow returns a computed flow view
func (s *Server) handleFlow(w http.ResponseWriter, r *http.Request) {
	q, err := s.flowQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.flows.View(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

// handleFlowExport returns a flow view flattened into rows
func (s *Server) handleFlowExport(w http.ResponseWriter, r *http.Request) {
	q, err := s.flowQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.flows.Export(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, t)
}

// handleForecast returns the forecast of ?year=, defaulting to the current year
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	year := time.Now().Year()
	if query.Has("year") {
		y, err := parseIntParam(query, "year")
		if err != nil {
			s.fail(w, r, err)
			return
		}
		year = y
	}
	q, err := parseFlowQuery(flow.ViewMonthly, query)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.flows.Forecast(r.Context(), year, q.AmountField)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleForecastVAT returns the VAT breakdown of one forecast month
func (s *Server) handleForecastVAT(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	year, err := parseIntParam(query, "year")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	month, err := parseIntParam(query, "month")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q, err := parseFlowQuery(flow.ViewMonthly, query)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	b, err := s.flows.VAT(r.Context(), year, month, q.AmountField)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, b)
}

// handleImport accepts a JSON record batch
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var recs ledger.Records
	if err := dec.Decode(&recs); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "import batch too large")
			return
		}
		s.fail(w, r, badRequest("malformed import batch: %v", err))
		return
	}

	source := sanitizeInput(r.URL.Query().Get("source"))
	if source == "" {
		source = "api"
	}

	res, err := s.imports.Submit(r.Context(), source, recs)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.Queued {
		status = http.StatusAccepted
	}
	writeJSON(w, r, status, res)
}

// handleImports lists recent import batches, newest first
func (s *Server) handleImports(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := sanitizeInput(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			s.fail(w, r, badRequest("invalid limit %q: must be between 1 and 500", v))
			return
		}
		limit = n
	}

	batches, err := s.imports.Batches(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"batches": batches})
}

// fail maps err onto a status code. Only unexpected errors are logged at
// error level and their details stay out of the response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, services.ErrInvalidYear), errors.Is(err, services.ErrRangeTooLarge):
		status = http.StatusBadRequest
	case errors.Is(err, flow.ErrUnknownView), errors.Is(err, services.ErrNotForecastMonth):
		status = http.StatusNotFound
	case services.IsValidationError(err):
		status = http.StatusUnprocessableEntity
	}

	logger := applog.FromContext(r.Context())
	if status == http.StatusInternalServerError {
		applog.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err,
			applog.ComponentHTTP, applog.OpRequest,
			applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", ""))
		writeError(w, r, status, "internal error")
		return
	}

	logger.DebugContext(r.Context(), "Request rejected", applog.FieldStatusCode, status, applog.FieldError, err)
	writeError(w, r, status, err.Error())
}
