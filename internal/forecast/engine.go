// Package forecast extends a year of monthly actuals into the months that have
// no real data yet.
//
// Months up to the last month with real records are reported as they are.
// Later months are synthesized per category from a trailing average, capped
// year over year, perturbed by a seeded random factor that is reconciled in
// the final month, and completed by a VAT line derived from the other
// forecasts of the same month.
package forecast

import (
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"sort"
	"time"

	"flujo/internal/core"
	"flujo/internal/flow"
)

// Options configures an Engine. Zero fields take the values of DefaultOptions.
type Options struct {
	Catalog             *core.Catalog
	ExcludedCategoryIDs []string

	// Rand drives the monthly variation. A nil Rand disables variation.
	Rand      *rand.Rand
	Variation float64
	Epsilon   float64
	Window    int

	PayrollName     string
	BonusName       string
	ProfitShareName string

	VATPrefix      string
	VATRate        float64
	VATExclusions  []string
	OperatingMatch *regexp.Regexp
}

// DefaultVATExclusions are expense lines that carry no creditable VAT.
var DefaultVATExclusions = []string{
	"Nómina",
	"Aguinaldo",
	"PTU",
	"IMSS",
	"ISR retenido",
	"INFONAVIT",
	"SAR",
	"Impuesto sobre nómina",
}

func DefaultOptions() Options {
	return Options{
		Variation:       0.2,
		Epsilon:         0.01,
		Window:          3,
		PayrollName:     "Nómina",
		BonusName:       "Aguinaldo",
		ProfitShareName: "PTU",
		VATPrefix:       "29-",
		VATRate:         0.16,
		VATExclusions:   DefaultVATExclusions,
		OperatingMatch:  regexp.MustCompile(`P\d{4}`),
	}
}

// NewRand returns a generator seeded with seed, or with the clock when seed is 0.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Variation == 0 {
		o.Variation = d.Variation
	}
	if o.Epsilon == 0 {
		o.Epsilon = d.Epsilon
	}
	if o.Window <= 0 {
		o.Window = d.Window
	}
	if o.PayrollName == "" {
		o.PayrollName = d.PayrollName
	}
	if o.BonusName == "" {
		o.BonusName = d.BonusName
	}
	if o.ProfitShareName == "" {
		o.ProfitShareName = d.ProfitShareName
	}
	if o.VATPrefix == "" {
		o.VATPrefix = d.VATPrefix
	}
	if o.VATRate == 0 {
		o.VATRate = d.VATRate
	}
	if o.VATExclusions == nil {
		o.VATExclusions = d.VATExclusions
	}
	if o.OperatingMatch == nil {
		o.OperatingMatch = d.OperatingMatch
	}
	return o
}

// Engine computes yearly forecasts. It is not safe for concurrent use when
// Options.Rand is set, since the generator is shared.
type Engine struct {
	opts     Options
	excluded map[string]bool
}

func New(opts Options) *Engine {
	opts = opts.withDefaults()
	excluded := make(map[string]bool, len(opts.ExcludedCategoryIDs))
	for _, id := range opts.ExcludedCategoryIDs {
		excluded[id] = true
	}
	return &Engine{opts: opts, excluded: excluded}
}

// Result is one forecast year.
type Result struct {
	Year       int            `json:"year"`
	Table      *flow.Table    `json:"table"`
	Balances   []flow.Balance `json:"balances"`
	LastActual string         `json:"lastActual,omitempty"`
	Forecasted []string       `json:"forecasted"`
	// Averages holds the monthly baseline used per forecast category,
	// after dampening. Seasonal categories hold their single posted value.
	Averages map[string]float64      `json:"averages"`
	VAT      map[string]VATBreakdown `json:"vat"`
}

// IsForecast reports whether month was synthesized.
func (r Result) IsForecast(month string) bool {
	for _, m := range r.Forecasted {
		if m == month {
			return true
		}
	}
	return false
}

// VATFor returns the VAT breakdown of a forecast month.
func (r Result) VATFor(month string) (VATBreakdown, bool) {
	b, ok := r.VAT[month]
	return b, ok
}

// View wraps the result table as a monthly flow view.
func (r Result) View() flow.View {
	start := fmt.Sprintf("%04d-01-01", r.Year)
	end := fmt.Sprintf("%04d-12-31", r.Year)
	return flow.Finish(flow.ViewMonthly, r.Table, start, end)
}

// Forecast computes year from history. History items are the actual records
// (any years); only their months and categories matter.
func (e *Engine) Forecast(history []flow.Item, year int) Result {
	r := newRun(e, history)
	return r.forecast(year, e.opts.Rand)
}

type run struct {
	e        *Engine
	history  []flow.Item
	idx      *index
	priors   map[int]map[string]float64
	transfer string
}

func newRun(e *Engine, history []flow.Item) *run {
	return &run{
		e:        e,
		history:  history,
		idx:      buildIndex(history),
		priors:   make(map[int]map[string]float64),
		transfer: e.opts.Catalog.TransferName(),
	}
}

func (r *run) forecast(year int, rng *rand.Rand) Result {
	opts := r.e.opts
	months := yearMonths(year)
	table := flow.NewTable(flow.Month, months, r.transfer)
	table.InitialBalance = flow.InitialBalance(r.history, time.Date(year, 1, 1, 12, 0, 0, 0, time.UTC))

	res := Result{
		Year:       year,
		Table:      table,
		LastActual: r.idx.last,
		Forecasted: []string{},
		Averages:   make(map[string]float64),
		VAT:        make(map[string]VATBreakdown),
	}

	for _, it := range r.history {
		key, ok := flow.Month.KeyOf(it.Date)
		if !ok {
			continue
		}
		table.Post(it.Category, key, it.Amount, it.Type)
	}

	if r.idx.last == "" {
		res.Balances = flow.RunningBalance(table.InitialBalance, months, table.Totals)
		return res
	}
	for _, m := range months {
		if m > r.idx.last {
			res.Forecasted = append(res.Forecasted, m)
		}
	}
	if len(res.Forecasted) == 0 {
		res.Balances = flow.RunningBalance(table.InitialBalance, months, table.Totals)
		return res
	}

	averages := r.averages()
	if year > r.idx.lastYear {
		r.dampen(averages, year)
	}

	// phase 1: ordinary and seasonal categories
	posted := make(map[string]map[string]float64, len(res.Forecasted))
	for _, m := range res.Forecasted {
		posted[m] = make(map[string]float64)
	}
	post := func(category, month string, v float64) {
		table.Post(category, month, v, core.TypeForAmount(v))
		posted[month][category] += v
	}

	// vary applies the epsilon itself and keeps the reconciling month
	for _, name := range sortedKeys(averages) {
		avg := averages[name]
		res.Averages[name] = avg
		for _, mv := range vary(avg, len(res.Forecasted), rng, opts.Variation, opts.Epsilon) {
			post(name, res.Forecasted[mv.i], mv.v)
		}
	}
	for name, s := range r.seasonal(averages, res.Forecasted) {
		res.Averages[name] = s.value
		if math.Abs(s.value) >= opts.Epsilon {
			post(name, s.month, s.value)
		}
	}

	// phase 2: VAT from the phase 1 values of each month
	vatName, hasVAT := r.vatCategory()
	for _, m := range res.Forecasted {
		b := r.e.vat(m, posted[m], r.transfer, vatName)
		res.VAT[m] = b
		if hasVAT {
			post(vatName, m, b.Posted)
		}
	}

	res.Balances = flow.RunningBalance(table.InitialBalance, months, table.Totals)
	return res
}

// priorTotals returns per-category totals of year, forecasting it without
// variation when needed. Results are memoized for the run.
func (r *run) priorTotals(year int) map[string]float64 {
	if t, ok := r.priors[year]; ok {
		return t
	}
	res := r.forecast(year, nil)
	totals := make(map[string]float64, len(res.Table.DataByCategory))
	for name := range res.Table.DataByCategory {
		totals[name] = res.Table.CategoryTotal(name)
	}
	r.priors[year] = totals
	return totals
}

// dampen caps averages whose yearly projection outgrows the prior year.
func (r *run) dampen(averages map[string]float64, year int) {
	prior := r.priorTotals(year - 1)
	for name, avg := range averages {
		p := prior[name]
		if p == 0 {
			continue
		}
		if math.Abs(avg*12) > math.Abs(p) {
			averages[name] = p / 12
		}
	}
}

func yearMonths(year int) []string {
	return flow.Month.Range(
		time.Date(year, 1, 1, 12, 0, 0, 0, time.UTC),
		time.Date(year, 12, 1, 12, 0, 0, 0, time.UTC),
	)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// matchesName compares a category name with a configured name, ignoring any
// numeric prefix on the category.
func matchesName(category, name string) bool {
	return category == name || core.StripPrefix(category) == name
}
