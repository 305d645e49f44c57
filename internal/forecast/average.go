package forecast

import (
	"math"
	"strings"

	"flujo/internal/core"
	"flujo/internal/flow"
)

// index is the monthly per-category view of the history.
type index struct {
	sums     map[string]map[string]float64 // category -> month -> sum
	ids      map[string]string             // category -> category id
	names    []string
	last     string
	lastYear int
}

func buildIndex(history []flow.Item) *index {
	idx := &index{
		sums: make(map[string]map[string]float64),
		ids:  make(map[string]string),
	}
	for _, it := range history {
		t, err := core.ParseDate(it.Date)
		if err != nil {
			continue
		}
		m := flow.MonthKey(t)
		row, ok := idx.sums[it.Category]
		if !ok {
			row = make(map[string]float64)
			idx.sums[it.Category] = row
			idx.names = append(idx.names, it.Category)
		}
		row[m] += it.Amount
		if it.CategoryID != "" {
			idx.ids[it.Category] = it.CategoryID
		}
		if m > idx.last {
			idx.last = m
			idx.lastYear = t.Year()
		}
	}
	return idx
}

// window returns the months immediately preceding the last real month.
func (idx *index) window(n int) []string {
	start, ok := flow.Month.BucketStart(idx.last)
	if !ok {
		return nil
	}
	out := make([]string, 0, n)
	for k := n; k >= 1; k-- {
		out = append(out, flow.MonthKey(start.AddDate(0, -k, 0)))
	}
	return out
}

// averages computes the trailing average of every forecastable category:
// the window sum divided by the number of window months that have data.
// Categories without data in the window get no entry.
func (r *run) averages() map[string]float64 {
	opts := r.e.opts
	window := r.idx.window(opts.Window)
	out := make(map[string]float64)
	for _, name := range r.idx.names {
		if !r.forecastable(name) {
			continue
		}
		var (
			sum    float64
			months int
		)
		for _, m := range window {
			v, ok := r.idx.sums[name][m]
			if !ok {
				continue
			}
			sum += v
			months++
		}
		if months == 0 {
			continue
		}
		avg := sum / float64(months)
		if math.IsNaN(avg) || avg == 0 {
			continue
		}
		out[name] = avg
	}
	return out
}

// forecastable reports whether name takes the trailing-average path.
func (r *run) forecastable(name string) bool {
	opts := r.e.opts
	if strings.HasPrefix(name, opts.VATPrefix) {
		return false
	}
	if matchesName(name, opts.BonusName) || matchesName(name, opts.ProfitShareName) {
		return false
	}
	return r.active(name)
}

// active is false for categories flagged inactive or excluded by id.
func (r *run) active(name string) bool {
	cat := r.e.opts.Catalog
	id, ok := r.idx.ids[name]
	if !ok {
		c, found := cat.CategoryByName(name)
		if !found {
			return true
		}
		id = c.ID
	}
	if r.e.excluded[id] {
		return false
	}
	if c, found := cat.Category(id); found && c.InactiveForForecast {
		return false
	}
	return true
}
