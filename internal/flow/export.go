package flow

import (
	"math"

	"flujo/internal/core"
)

// Row labels of the exported table.
const (
	LabelConcept        = "Concepto"
	LabelTotal          = "Total"
	LabelOpeningBalance = "Saldo inicial"
	LabelIncome         = "Ingresos"
	LabelIncomeTotal    = "Total ingresos"
	LabelExpense        = "Egresos"
	LabelExpenseTotal   = "Total egresos"
	LabelNetFlow        = "Flujo neto"
	LabelClosingBalance = "Saldo final"
)

// ExportTable is a row-oriented rendering of a view. A nil cell is blank.
type ExportTable struct {
	Headers []string `json:"headers"`
	Rows    [][]any  `json:"rows"`
}

// Export flattens a view into rows: opening balance, the income section,
// the expense section, net flow and closing balance. A category cell is
// blank unless its value belongs to the section it is listed in.
func Export(v View) ExportTable {
	t := v.Table
	headers := make([]string, 0, len(t.Buckets)+2)
	headers = append(headers, LabelConcept)
	for _, b := range t.Buckets {
		headers = append(headers, t.Granularity.Label(b))
	}
	headers = append(headers, LabelTotal)

	var rows [][]any

	opening := make([]float64, len(t.Buckets))
	closing := make([]float64, len(t.Buckets))
	for i, bal := range v.Balances {
		if i < len(t.Buckets) {
			opening[i], closing[i] = bal.Opening, bal.Closing
		}
	}
	finalBalance := t.InitialBalance
	if n := len(v.Balances); n > 0 {
		finalBalance = v.Balances[n-1].Closing
	}
	rows = append(rows, numberRow(LabelOpeningBalance, opening, t.InitialBalance))

	rows = append(rows, headerRow(LabelIncome, len(t.Buckets)))
	for _, name := range v.IncomeCategories {
		rows = append(rows, categoryRow(t, name, func(x float64) bool {
			return x > 0 || (name == t.TransferCategory && math.Abs(x) > Epsilon)
		}))
	}
	rows = append(rows, totalsRow(t, LabelIncomeTotal, func(tot Totals) float64 { return tot.Income }))

	rows = append(rows, headerRow(LabelExpense, len(t.Buckets)))
	for _, name := range v.ExpenseCategories {
		rows = append(rows, categoryRow(t, name, func(x float64) bool { return x < 0 }))
	}
	rows = append(rows, totalsRow(t, LabelExpenseTotal, func(tot Totals) float64 { return tot.Expense }))

	rows = append(rows, totalsRow(t, LabelNetFlow, func(tot Totals) float64 { return tot.Net }))
	rows = append(rows, numberRow(LabelClosingBalance, closing, finalBalance))

	return ExportTable{Headers: headers, Rows: rows}
}

func headerRow(label string, n int) []any {
	row := make([]any, n+2)
	row[0] = label
	return row
}

func numberRow(label string, values []float64, total float64) []any {
	row := make([]any, 0, len(values)+2)
	row = append(row, label)
	for _, x := range values {
		row = append(row, core.RoundCents(x))
	}
	return append(row, core.RoundCents(total))
}

func totalsRow(t *Table, label string, pick func(Totals) float64) []any {
	values := make([]float64, len(t.Buckets))
	var sum float64
	for i, b := range t.Buckets {
		values[i] = pick(t.Totals[b])
		sum += values[i]
	}
	return numberRow(label, values, sum)
}

func categoryRow(t *Table, name string, show func(float64) bool) []any {
	row := make([]any, 0, len(t.Buckets)+2)
	row = append(row, name)
	var (
		sum   float64
		shown bool
	)
	for _, b := range t.Buckets {
		x, ok := t.Value(name, b)
		if !ok || !show(x) {
			row = append(row, nil)
			continue
		}
		row = append(row, core.RoundCents(x))
		sum += x
		shown = true
	}
	if !shown {
		return append(row, nil)
	}
	return append(row, core.RoundCents(sum))
}
