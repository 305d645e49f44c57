package flow

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"flujo/internal/core"
)

// SortCategories orders category names: names with a "<N>-" prefix first,
// by N ascending, then the rest alphabetically under Spanish collation.
// Ties fall back to byte order so the result depends only on the input set.
func SortCategories(names []string) []string {
	out := append([]string(nil), names...)
	col := collate.New(language.Spanish)
	sort.SliceStable(out, func(i, j int) bool {
		return lessCategory(col, out[i], out[j])
	})
	return out
}

func lessCategory(col *collate.Collator, a, b string) bool {
	na, _, pa := core.SplitPrefix(a)
	nb, _, pb := core.SplitPrefix(b)
	if pa != pb {
		return pa
	}
	if pa && na != nb {
		return na < nb
	}
	if c := col.CompareString(a, b); c != 0 {
		return c < 0
	}
	return a < b
}
