package flow

import (
	"math"

	"flujo/internal/core"
)

// Epsilon is the magnitude below which a transfer net is treated as zero.
const Epsilon = 1e-9

// Totals are the per-bucket accumulators. Income is never split from
// transfers, so it can go negative when transfers net out of the period.
type Totals struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Net     float64 `json:"net"`
}

// Table is a bucketed aggregation of items by category.
type Table struct {
	Granularity      Granularity                   `json:"granularity"`
	Buckets          []string                      `json:"buckets"`
	DataByCategory   map[string]map[string]float64 `json:"dataByCategory"`
	Totals           map[string]Totals             `json:"totals"`
	InitialBalance   float64                       `json:"initialBalance"`
	TransferCategory string                        `json:"transferCategory"`

	index map[string]bool
}

// NewTable returns an empty table with zeroed totals for every bucket.
func NewTable(g Granularity, buckets []string, transferName string) *Table {
	t := &Table{
		Granularity:      g,
		Buckets:          buckets,
		DataByCategory:   make(map[string]map[string]float64),
		Totals:           make(map[string]Totals, len(buckets)),
		TransferCategory: transferName,
		index:            make(map[string]bool, len(buckets)),
	}
	for _, b := range buckets {
		t.Totals[b] = Totals{}
		t.index[b] = true
	}
	return t
}

// Aggregate buckets items into a new table. Items with unparsable dates or
// outside the bucket list are skipped.
//
// Routing trusts the item type: Income goes to the income accumulator and
// anything else to expense. Transfer items are netted per bucket and the net
// lands in income only.
func Aggregate(items []Item, g Granularity, buckets []string, transferName string) *Table {
	t := NewTable(g, buckets, transferName)
	for _, it := range items {
		key, ok := g.KeyOf(it.Date)
		if !ok {
			continue
		}
		t.Post(it.Category, key, it.Amount, it.Type)
	}
	return t
}

// Post adds amount to category in bucket and updates the bucket totals.
// It reports false when the bucket is not part of the table.
func (t *Table) Post(category, bucket string, amount float64, typ core.TransactionType) bool {
	if !t.Has(bucket) {
		return false
	}
	if t.DataByCategory == nil {
		t.DataByCategory = make(map[string]map[string]float64)
	}
	if t.Totals == nil {
		t.Totals = make(map[string]Totals)
	}
	row, ok := t.DataByCategory[category]
	if !ok {
		row = make(map[string]float64)
		t.DataByCategory[category] = row
	}
	row[bucket] += amount

	tot := t.Totals[bucket]
	switch {
	case category == t.TransferCategory:
		// summing transfer legs into income is the same as netting first
		tot.Income += amount
	case typ == core.Income:
		tot.Income += amount
	default:
		tot.Expense += amount
	}
	tot.Net += amount
	t.Totals[bucket] = tot
	return true
}

// Value returns the amount of category in bucket.
func (t *Table) Value(category, bucket string) (float64, bool) {
	row, ok := t.DataByCategory[category]
	if !ok {
		return 0, false
	}
	v, ok := row[bucket]
	return v, ok
}

// Has reports whether bucket belongs to the table.
func (t *Table) Has(bucket string) bool {
	if t.index == nil {
		t.index = make(map[string]bool, len(t.Buckets))
		for _, b := range t.Buckets {
			t.index[b] = true
		}
	}
	return t.index[bucket]
}

// CategoryTotal sums category over every bucket.
func (t *Table) CategoryTotal(category string) float64 {
	var sum float64
	for _, v := range t.DataByCategory[category] {
		sum += v
	}
	return sum
}

// Categories returns every category present in the table, sorted.
func (t *Table) Categories() []string {
	names := make([]string, 0, len(t.DataByCategory))
	for name := range t.DataByCategory {
		names = append(names, name)
	}
	return SortCategories(names)
}

// IncomeCategories lists categories shown in the income section: any
// positive bucket, or for the transfer category any non-zero bucket.
func (t *Table) IncomeCategories() []string {
	var out []string
	for name, row := range t.DataByCategory {
		for _, v := range row {
			if v > 0 || (name == t.TransferCategory && math.Abs(v) > Epsilon) {
				out = append(out, name)
				break
			}
		}
	}
	return SortCategories(out)
}

// ExpenseCategories lists categories with any negative bucket. The transfer
// category never appears here.
func (t *Table) ExpenseCategories() []string {
	var out []string
	for name, row := range t.DataByCategory {
		if name == t.TransferCategory {
			continue
		}
		for _, v := range row {
			if v < 0 {
				out = append(out, name)
				break
			}
		}
	}
	return SortCategories(out)
}

// GrandTotals sums the totals of every bucket.
func (t *Table) GrandTotals() Totals {
	var sum Totals
	for _, b := range t.Buckets {
		tot := t.Totals[b]
		sum.Income += tot.Income
		sum.Expense += tot.Expense
		sum.Net += tot.Net
	}
	return sum
}
