package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"flujo/internal/core"
	"flujo/internal/flow"
	applog "flujo/internal/log"
	"flujo/internal/middleware/trace"
)

// errBadRequest marks malformed query parameters.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// parseFlowQuery reads the view parameters shared by the flow endpoints.
func parseFlowQuery(view flow.ViewKind, q url.Values) (flow.Query, error) {
	out := flow.Query{View: view}

	for _, p := range []struct {
		name string
		dst  *string
	}{{"start", &out.Range.Start}, {"end", &out.Range.End}} {
		v := sanitizeInput(q.Get(p.name))
		if v == "" {
			continue
		}
		if _, err := core.ParseDate(v); err != nil {
			return flow.Query{}, badRequest("invalid %s %q: must be YYYY-MM-DD", p.name, v)
		}
		*p.dst = v
	}
	if out.Range.Start != "" && out.Range.End != "" && out.Range.End < out.Range.Start {
		return flow.Query{}, badRequest("end %s is before start %s", out.Range.End, out.Range.Start)
	}

	if v := sanitizeInput(q.Get("amount")); v != "" {
		f, err := core.ParseAmountField(v)
		if err != nil {
			return flow.Query{}, badRequest("invalid amount %q: must be home or foreign", v)
		}
		out.AmountField = f
	}

	if v := sanitizeInput(q.Get("granularity")); v != "" {
		g, err := flow.ParseGranularity(v)
		if err != nil {
			return flow.Query{}, badRequest("%v", err)
		}
		out.Granularity = g
	}

	for _, b := range q["bank"] {
		if b = sanitizeInput(b); b != "" {
			out.Banks = append(out.Banks, b)
		}
	}

	if v := sanitizeInput(q.Get("upToToday")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return flow.Query{}, badRequest("invalid upToToday %q", v)
		}
		out.UpToToday = b
	}
	return out, nil
}

// parseIntParam reads a required integer query parameter.
func parseIntParam(q url.Values, name string) (int, error) {
	v := sanitizeInput(q.Get(name))
	if v == "" {
		return 0, badRequest("missing %s", name)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("invalid %s %q", name, v)
	}
	return n, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode response", applog.FieldError, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorBody{Error: msg, RequestID: trace.GetRequestID(r.Context())})
}
