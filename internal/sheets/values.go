// Package sheets holds the spreadsheet rendering shared by the export adapters.
package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"flujo/internal/flow"
)

// Values converts an export table into a value matrix, header row first.
// Blank cells become empty strings so that a write clears stale content.
func Values(t flow.ExportTable) [][]any {
	out := make([][]any, 0, len(t.Rows)+1)
	header := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	out = append(out, header)
	for _, row := range t.Rows {
		r := make([]any, len(row))
		for i, v := range row {
			if v == nil {
				r[i] = ""
				continue
			}
			r[i] = v
		}
		out = append(out, r)
	}
	return out
}

// Width is the widest row of values.
func Width(values [][]any) int {
	w := 0
	for _, row := range values {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// ColumnName returns the A1 column letters of the 1-based column n.
func ColumnName(n int) string {
	if n < 1 {
		return ""
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// A1Range returns the range covering rows x cols anchored at A1 of tab.
func A1Range(tab string, rows, cols int) string {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	return fmt.Sprintf("%s!A1:%s%d", QuoteTab(tab), ColumnName(cols), rows)
}

// QuoteTab quotes a tab name for A1 notation when it needs it.
func QuoteTab(tab string) string {
	if tab == "" {
		return tab
	}
	simple := true
	for _, r := range tab {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			simple = false
			break
		}
	}
	if simple {
		return tab
	}
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

// TabName joins the configured base sheet name and the export name,
// e.g. "Flujo" + "monthly" -> "Flujo monthly". A base already starting
// with a four digit year is kept as is.
func TabName(base, name string) string {
	base = strings.TrimSpace(base)
	name = strings.TrimSpace(name)
	switch {
	case base == "":
		return name
	case name == "":
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return base + " " + name
}
