package flow

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"flujo/internal/core"
)

type ViewKind string

const (
	ViewDaily     ViewKind = "daily"
	ViewWeekly    ViewKind = "weekly"
	ViewMonthly   ViewKind = "monthly"
	ViewCombined  ViewKind = "combined"
	ViewScheduled ViewKind = "scheduled"
)

var ErrUnknownView = errors.New("unknown view")

// Views lists every supported view in display order.
var Views = []ViewKind{ViewDaily, ViewWeekly, ViewMonthly, ViewCombined, ViewScheduled}

func ParseView(s string) (ViewKind, error) {
	v := ViewKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Views {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// Granularity is the default bucket size of the view.
func (v ViewKind) Granularity() Granularity {
	switch v {
	case ViewDaily:
		return Day
	case ViewMonthly:
		return Month
	default:
		return Week
	}
}

func (v ViewKind) sources() (transactions, scheduled bool) {
	switch v {
	case ViewCombined:
		return true, true
	case ViewScheduled:
		return false, true
	default:
		return true, false
	}
}

// Query selects and shapes the records of a view.
type Query struct {
	View        ViewKind         `json:"view"`
	Granularity Granularity      `json:"granularity,omitempty"`
	AmountField core.AmountField `json:"amountField"`
	Range       DateRange        `json:"range"`
	Banks       []string         `json:"banks,omitempty"`
	// UpToToday extends a missing end bound to Today.
	UpToToday bool      `json:"upToToday,omitempty"`
	Today     time.Time `json:"-"`
}

// Sources are the immutable inputs of one computation.
type Sources struct {
	Transactions []core.Transaction
	Scheduled    []core.ScheduledPayment
	Catalog      *core.Catalog
}

// Items maps the sources selected by the view into one item stream, with the
// bank filter applied.
func (s Sources) Items(v ViewKind, field core.AmountField, banks []string) []Item {
	withTx, withScheduled := v.sources()
	var streams [][]Item
	if withTx {
		streams = append(streams, FilterBanks(FromTransactions(s.Transactions, s.Catalog, field), banks))
	}
	if withScheduled {
		streams = append(streams, FromScheduledPayments(s.Scheduled, s.Catalog, field))
	}
	return Merge(streams...)
}

// Summary holds the headline figures of a view.
type Summary struct {
	Income         float64 `json:"income"`
	Expense        float64 `json:"expense"`
	Net            float64 `json:"net"`
	CashRatio      float64 `json:"cashRatio"`
	OpeningBalance float64 `json:"openingBalance"`
	ClosingBalance float64 `json:"closingBalance"`
}

// View is a fully computed table ready for presentation.
type View struct {
	Kind              ViewKind  `json:"kind"`
	Start             string    `json:"start,omitempty"`
	End               string    `json:"end,omitempty"`
	Table             *Table    `json:"table"`
	Balances          []Balance `json:"balances"`
	IncomeCategories  []string  `json:"incomeCategories"`
	ExpenseCategories []string  `json:"expenseCategories"`
	Summary           Summary   `json:"summary"`
}

// Build computes a view from scratch.
func Build(src Sources, q Query) View {
	if q.View == "" {
		q.View = ViewMonthly
	}
	g := q.granularity()
	items := src.Items(q.View, q.AmountField, q.Banks)
	transfer := src.Catalog.TransferName()

	start, end, ok := DefaultRange(items, q.Range, q.Today, q.UpToToday)
	if !ok {
		t := NewTable(g, nil, transfer)
		return View{Kind: q.View, Table: t, Balances: []Balance{}}
	}

	t := Aggregate(Within(items, start, end), g, g.Range(start, end), transfer)
	t.InitialBalance = InitialBalance(items, start)
	return Finish(q.View, t, core.FormatDate(start), core.FormatDate(end))
}

// BucketCount returns the number of buckets Build would lay out for q.
func BucketCount(src Sources, q Query) int {
	if q.View == "" {
		q.View = ViewMonthly
	}
	items := src.Items(q.View, q.AmountField, q.Banks)
	start, end, ok := DefaultRange(items, q.Range, q.Today, q.UpToToday)
	if !ok {
		return 0
	}
	return q.granularity().Count(start, end)
}

func (q Query) granularity() Granularity {
	if q.Granularity != "" {
		return q.Granularity
	}
	return q.View.Granularity()
}

// Finish derives balances, sections and the summary of an aggregated table.
func Finish(kind ViewKind, t *Table, start, end string) View {
	balances := RunningBalance(t.InitialBalance, t.Buckets, t.Totals)
	return View{
		Kind:              kind,
		Start:             start,
		End:               end,
		Table:             t,
		Balances:          balances,
		IncomeCategories:  t.IncomeCategories(),
		ExpenseCategories: t.ExpenseCategories(),
		Summary:           Summarize(t, balances),
	}
}

// Within keeps items dated inside [start, end].
func Within(items []Item, start, end time.Time) []Item {
	lo, hi := core.FormatDate(start), core.FormatDate(end)
	out := make([]Item, 0, len(items))
	for _, it := range items {
		t, err := core.ParseDate(it.Date)
		if err != nil {
			continue
		}
		if d := core.FormatDate(t); d >= lo && d <= hi {
			out = append(out, it)
		}
	}
	return out
}

// Summarize computes the headline figures of t.
func Summarize(t *Table, balances []Balance) Summary {
	tot := t.GrandTotals()
	s := Summary{
		Income:         tot.Income,
		Expense:        tot.Expense,
		Net:            tot.Net,
		CashRatio:      CashRatio(tot.Income, tot.Expense),
		OpeningBalance: t.InitialBalance,
		ClosingBalance: t.InitialBalance,
	}
	if n := len(balances); n > 0 {
		s.ClosingBalance = balances[n-1].Closing
	}
	return s
}

// CashRatio is income over the magnitude of expense, or 0 without expenses.
func CashRatio(income, expense float64) float64 {
	den := math.Abs(expense)
	if den < Epsilon {
		return 0
	}
	r := income / den
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}
