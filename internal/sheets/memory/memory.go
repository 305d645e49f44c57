package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"flujo/internal/flow"
	"flujo/internal/ledger"
	"flujo/internal/sheets"
)

var _ ledger.TableExporter = (*Exporter)(nil)

// Exporter keeps exported tables in memory, one value matrix per tab.
type Exporter struct {
	mu     sync.Mutex
	base   string
	tables map[string][][]any
}

func New(base string) *Exporter {
	return &Exporter{base: base, tables: make(map[string][][]any)}
}

// Export replaces the tab content and returns its A1 range.
func (e *Exporter) Export(_ context.Context, name string, t flow.ExportTable) (string, error) {
	tab := sheets.TabName(e.base, name)
	if strings.TrimSpace(tab) == "" {
		return "", errors.New("empty sheet name")
	}
	values := sheets.Values(t)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.tables[tab] = values
	return fmt.Sprintf("mem:%s", sheets.A1Range(tab, len(values), sheets.Width(values))), nil
}

// Table returns the values last exported to tab.
func (e *Exporter) Table(tab string) ([][]any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.tables[tab]
	return v, ok
}

// Tabs lists the exported tab names in order.
func (e *Exporter) Tabs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.tables))
	for k := range e.tables {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
