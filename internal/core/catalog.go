package core

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Catalog is a read-only view over the category and account catalogs.
// It is built once per computation and passed explicitly to the engine.
type Catalog struct {
	categories map[string]Category
	accounts   map[string]Account
	order      []string
}

// NewCatalog indexes categories and accounts by id. Later duplicates win.
func NewCatalog(categories []Category, accounts []Account) *Catalog {
	c := &Catalog{
		categories: make(map[string]Category, len(categories)),
		accounts:   make(map[string]Account, len(accounts)),
	}
	for _, cat := range categories {
		if _, seen := c.categories[cat.ID]; !seen {
			c.order = append(c.order, cat.ID)
		}
		c.categories[cat.ID] = cat
	}
	for _, acc := range accounts {
		c.accounts[acc.ID] = acc
	}
	return c
}

// Category returns the category with the given id.
func (c *Catalog) Category(id string) (Category, bool) {
	if c == nil {
		return Category{}, false
	}
	cat, ok := c.categories[id]
	return cat, ok
}

// CategoryName resolves id to a display name, falling back to UncategorizedName.
// The transfer category always resolves to a distinct name.
func (c *Catalog) CategoryName(id string) string {
	if cat, ok := c.Category(id); ok && strings.TrimSpace(cat.Name) != "" {
		return cat.Name
	}
	if id == TransferCategoryID {
		return DefaultTransferName
	}
	return UncategorizedName
}

// Account returns the account with the given id.
func (c *Catalog) Account(id string) (Account, bool) {
	if c == nil {
		return Account{}, false
	}
	acc, ok := c.accounts[id]
	return acc, ok
}

// AccountName resolves id to a display name, returning id itself when unknown.
func (c *Catalog) AccountName(id string) string {
	if acc, ok := c.Account(id); ok {
		return acc.Name
	}
	return id
}

// Categories returns the catalog categories in insertion order.
func (c *Catalog) Categories() []Category {
	if c == nil {
		return nil
	}
	out := make([]Category, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.categories[id])
	}
	return out
}

// Accounts returns the accounts sorted by id.
func (c *Catalog) Accounts() []Account {
	if c == nil {
		return nil
	}
	out := make([]Account, 0, len(c.accounts))
	for _, acc := range c.accounts {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TransferName is the display name of the reserved transfer category.
func (c *Catalog) TransferName() string {
	return c.CategoryName(TransferCategoryID)
}

// CategoryByName returns the category whose name equals name, either
// verbatim or once its numeric prefix is stripped.
func (c *Catalog) CategoryByName(name string) (Category, bool) {
	for _, cat := range c.Categories() {
		if cat.Name == name || StripPrefix(cat.Name) == name {
			return cat, true
		}
	}
	return Category{}, false
}

// FindCategory resolves free text to a category: exact id first, then a
// diacritic- and case-insensitive substring match on names. When several
// names match, the shortest one wins.
func (c *Catalog) FindCategory(text string) (Category, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Category{}, false
	}
	if cat, ok := c.Category(text); ok {
		return cat, true
	}
	needle := Fold(text)
	var (
		best  Category
		found bool
	)
	for _, cat := range c.Categories() {
		bare := Fold(StripPrefix(cat.Name))
		if !strings.Contains(Fold(cat.Name), needle) && (bare == "" || !strings.Contains(needle, bare)) {
			continue
		}
		if !found || len(cat.Name) < len(best.Name) {
			best, found = cat, true
		}
	}
	return best, found
}

// Fold lowercases s and strips diacritics ("Nómina" -> "nomina").
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// SplitPrefix parses a leading "<N>-" prefix. ok is false when the name has none.
func SplitPrefix(name string) (n int, rest string, ok bool) {
	i := strings.IndexByte(name, '-')
	if i <= 0 {
		return 0, name, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(name[:i]))
	if err != nil || n < 0 {
		return 0, name, false
	}
	return n, strings.TrimSpace(name[i+1:]), true
}

// StripPrefix drops a leading "<N>-" prefix if present.
func StripPrefix(name string) string {
	_, rest, _ := SplitPrefix(name)
	return rest
}
