package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"flujo/internal/backend"
	"flujo/internal/cache"
	"flujo/internal/cli"
	"flujo/internal/core"
	"flujo/internal/flow"
	"flujo/internal/services"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = "csv"
)

// session holds what a command needs from the record store.
type session struct {
	res     *backend.BackendResult
	flows   *services.FlowService
	imports *services.ImportService
	caches  *cache.Manager
}

// openSession creates the configured backend. Imports are always stored
// inline from the CLI, even when a queue is configured.
func openSession(ctx context.Context) (*session, error) {
	bc, err := backend.FromAppConfig(appConfig)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
	if err != nil {
		return nil, err
	}
	flows, caches := cli.NewFlowService(appConfig, res.Backend, logger)
	return &session{
		res:     res,
		flows:   flows,
		imports: services.NewImportService(res.Backend, res.Backend, res.Backend, nil, logger),
		caches:  caches,
	}, nil
}

func (s *session) Close() {
	s.caches.Stop()
	if err := s.res.Cleanup(); err != nil {
		logger.Warn("Failed to close backend", "error", err)
	}
}

func checkFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be one of %s", format, strings.Join(allowed, ", "))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeTable renders an export table with aligned columns.
func writeTable(w io.Writer, t flow.ExportTable) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, strings.Join(t.Headers, "\t")+"\t")
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(cells(row), "\t")+"\t")
	}
	return tw.Flush()
}

// writeCSV writes an export table with a header line.
func writeCSV(w io.Writer, t flow.ExportTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := cw.Write(cells(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func renderTable(w io.Writer, format string, t flow.ExportTable, raw any) error {
	switch format {
	case formatJSON:
		return writeJSON(w, raw)
	case formatCSV:
		return writeCSV(w, t)
	default:
		return writeTable(w, t)
	}
}

func cells(row []any) []string {
	out := make([]string, len(row))
	for i, c := range row {
		switch v := c.(type) {
		case nil:
			out[i] = ""
		case float64:
			out[i] = core.FormatAmount(v)
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}
