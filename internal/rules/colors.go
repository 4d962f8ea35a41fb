package rules

import (
	"strings"

	"stockimport/internal"
	"stockimport/internal/util"
)

// ColorTable maps misspelled or vendor color names to the storefront name.
// Keys are matched case-insensitively.
type ColorTable map[string]string

func NewColorTable(pairs map[string]string) ColorTable {
	t := make(ColorTable, len(pairs))
	for bad, good := range pairs {
		key := colorKey(bad)
		if key == "" || strings.TrimSpace(good) == "" {
			continue
		}
		t[key] = strings.TrimSpace(good)
	}
	return t
}

func (t ColorTable) Canonical(color string) (string, bool) {
	good, ok := t[colorKey(color)]
	return good, ok
}

func colorKey(s string) string {
	return strings.ToLower(util.NormalizeSpaces(s))
}

// CanonicalizeColors rewrites colors found in the table and title-cases the
// rest, then rebuilds every SKU from style, color and size.
func CanonicalizeColors(table ColorTable) func([]internal.VariantItem, *Stats) []internal.VariantItem {
	return func(items []internal.VariantItem, st *Stats) []internal.VariantItem {
		for i := range items {
			it := &items[i]
			if good, ok := table.Canonical(it.Color); ok {
				if good != it.Color {
					st.ColorsCanonicalized++
				}
				it.Color = good
			} else {
				it.Color = util.TitleCase(it.Color)
			}
			it.SKU = internal.BuildSKU(it.Style, it.Color, it.Size)
		}
		return items
	}
}
