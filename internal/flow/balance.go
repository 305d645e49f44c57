package flow

import (
	"time"

	"flujo/internal/core"
)

// Balance is the opening and closing balance of one bucket.
type Balance struct {
	Bucket  string  `json:"bucket"`
	Opening float64 `json:"opening"`
	Closing float64 `json:"closing"`
}

// RunningBalance folds bucket nets left to right starting from initial.
// Buckets missing from totals contribute zero.
func RunningBalance(initial float64, buckets []string, totals map[string]Totals) []Balance {
	out := make([]Balance, len(buckets))
	open := initial
	for i, b := range buckets {
		closing := open + totals[b].Net
		out[i] = Balance{Bucket: b, Opening: open, Closing: closing}
		open = closing
	}
	return out
}

// InitialBalance sums the amounts of items dated strictly before cutoff.
// Items with unparsable dates are ignored.
func InitialBalance(items []Item, cutoff time.Time) float64 {
	limit := core.FormatDate(cutoff)
	var sum float64
	for _, it := range items {
		t, err := core.ParseDate(it.Date)
		if err != nil {
			continue
		}
		if core.FormatDate(t) < limit {
			sum += it.Amount
		}
	}
	return sum
}
