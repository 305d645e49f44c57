package forecast

import (
	"math"
	"strings"
)

// Line is one category contributing to a VAT computation.
type Line struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// VATBreakdown explains the VAT line of one forecast month.
type VATBreakdown struct {
	Month          string  `json:"month"`
	Incomes        []Line  `json:"incomes"`
	Expenses       []Line  `json:"expenses"`
	TaxableIncome  float64 `json:"taxableIncome"`
	TaxableExpense float64 `json:"taxableExpense"`
	Collected      float64 `json:"ivaCollected"`
	Creditable     float64 `json:"ivaCreditable"`
	NetPayable     float64 `json:"netVatPayable"`
	// Posted is the value written to the VAT category, -NetPayable.
	Posted float64 `json:"posted"`
}

// vat derives the VAT line of a month from its other forecast values.
// Operating income lines are recognised by a product code in their name;
// every other negative line counts as creditable expense unless it is
// excluded by name or is the transfer category.
func (e *Engine) vat(month string, values map[string]float64, transfer, vatName string) VATBreakdown {
	opts := e.opts
	b := VATBreakdown{Month: month, Incomes: []Line{}, Expenses: []Line{}}
	for _, name := range sortedKeys(values) {
		v := values[name]
		if name == transfer || name == vatName || strings.HasPrefix(name, opts.VATPrefix) {
			continue
		}
		switch {
		case opts.OperatingMatch.MatchString(name):
			if v > 0 {
				b.Incomes = append(b.Incomes, Line{Category: name, Amount: v})
				b.TaxableIncome += v
			}
		case v < 0 && !e.vatExcluded(name):
			b.Expenses = append(b.Expenses, Line{Category: name, Amount: v})
			b.TaxableExpense += v
		}
	}
	b.Collected = vatPortion(b.TaxableIncome, opts.VATRate)
	b.Creditable = vatPortion(math.Abs(b.TaxableExpense), opts.VATRate)
	b.NetPayable = b.Collected - b.Creditable
	b.Posted = -b.NetPayable
	return b
}

// vatPortion extracts the tax contained in a VAT-inclusive amount.
func vatPortion(gross, rate float64) float64 {
	return gross / (1 + rate) * rate
}

func (e *Engine) vatExcluded(name string) bool {
	for _, ex := range e.opts.VATExclusions {
		if matchesName(name, ex) {
			return true
		}
	}
	return false
}
