package forecast

import (
	"math"
	"strings"
)

type seasonalValue struct {
	month string
	value float64
}

// seasonal places the year-end bonus in December and the profit share in
// May, each at half the payroll average as an expense. Both need a payroll
// average and an existing category to post to.
func (r *run) seasonal(averages map[string]float64, forecasted []string) map[string]seasonalValue {
	opts := r.e.opts
	if len(forecasted) == 0 {
		return nil
	}
	var payroll float64
	for _, name := range sortedKeys(averages) {
		if matchesName(name, opts.PayrollName) {
			payroll = averages[name]
			break
		}
	}
	if payroll == 0 {
		return nil
	}
	value := -math.Abs(payroll) / 2
	year := forecasted[0][:4]

	out := make(map[string]seasonalValue, 2)
	for _, s := range []struct{ name, month string }{
		{opts.BonusName, year + "-12"},
		{opts.ProfitShareName, year + "-05"},
	} {
		if !contains(forecasted, s.month) {
			continue
		}
		name, ok := r.resolveName(func(n string) bool { return matchesName(n, s.name) })
		if !ok || !r.active(name) {
			continue
		}
		out[name] = seasonalValue{month: s.month, value: value}
	}
	return out
}

// vatCategory finds the category that receives the derived VAT line.
func (r *run) vatCategory() (string, bool) {
	prefix := r.e.opts.VATPrefix
	name, ok := r.resolveName(func(n string) bool { return strings.HasPrefix(n, prefix) })
	if !ok || !r.active(name) {
		return "", false
	}
	return name, true
}

// resolveName looks for a category name in the catalog first and then in
// the history.
func (r *run) resolveName(match func(string) bool) (string, bool) {
	for _, c := range r.e.opts.Catalog.Categories() {
		if match(c.Name) {
			return c.Name, true
		}
	}
	for _, name := range r.idx.names {
		if match(name) {
			return name, true
		}
	}
	return "", false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
