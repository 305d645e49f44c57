package flow

import (
	"strings"

	"flujo/internal/core"
)

type Source string

const (
	SourceTransaction Source = "transaction"
	SourceScheduled   Source = "scheduled"
	SourceForecast    Source = "forecast"
)

// Item is the normalized unit the aggregator consumes.
type Item struct {
	Date       string               `json:"date"`
	Category   string               `json:"category"`
	CategoryID string               `json:"categoryId,omitempty"`
	Amount     float64              `json:"amount"`
	Type       core.TransactionType `json:"type"`
	Bank       string               `json:"bank,omitempty"`
	Source     Source               `json:"source"`
}

// FromTransactions maps transactions to items. The type is carried over
// verbatim, even when it disagrees with the sign of the amount.
func FromTransactions(txs []core.Transaction, cat *core.Catalog, field core.AmountField) []Item {
	out := make([]Item, 0, len(txs))
	for _, t := range txs {
		out = append(out, Item{
			Date:       t.Date,
			Category:   cat.CategoryName(t.Guide),
			CategoryID: t.Guide,
			Amount:     t.Amount(field),
			Type:       t.Type,
			Bank:       t.Bank,
			Source:     SourceTransaction,
		})
	}
	return out
}

// FromScheduledPayments maps scheduled payments to items. Payments without a
// guide are labelled by their concept; the type is synthesized from the sign.
func FromScheduledPayments(ps []core.ScheduledPayment, cat *core.Catalog, field core.AmountField) []Item {
	out := make([]Item, 0, len(ps))
	for _, p := range ps {
		amount := p.AmountFor(field)
		name := strings.TrimSpace(p.Concept)
		if strings.TrimSpace(p.Guide) != "" {
			name = cat.CategoryName(p.Guide)
		} else if name == "" {
			name = core.UncategorizedName
		}
		out = append(out, Item{
			Date:       p.Date,
			Category:   name,
			CategoryID: p.Guide,
			Amount:     amount,
			Type:       core.TypeForAmount(amount),
			Source:     SourceScheduled,
		})
	}
	return out
}

// Merge concatenates item streams in order.
func Merge(streams ...[]Item) []Item {
	n := 0
	for _, s := range streams {
		n += len(s)
	}
	out := make([]Item, 0, n)
	for _, s := range streams {
		out = append(out, s...)
	}
	return out
}

// FilterBanks keeps transaction items whose bank is in banks. Items from other
// sources have no bank and always pass. An empty list keeps everything.
func FilterBanks(items []Item, banks []string) []Item {
	if len(banks) == 0 {
		return items
	}
	keep := make(map[string]bool, len(banks))
	for _, b := range banks {
		if b = strings.TrimSpace(b); b != "" {
			keep[b] = true
		}
	}
	if len(keep) == 0 {
		return items
	}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Source != SourceTransaction || keep[it.Bank] {
			out = append(out, it)
		}
	}
	return out
}
