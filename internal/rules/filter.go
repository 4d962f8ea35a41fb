package rules

import (
	"sort"
	"strings"
	"time"

	"stockimport/internal"
)

// FilterDiscontinued removes styles registered as discontinued by the sale
// source a regular source is linked to.
func FilterDiscontinued(src internal.DataSource, styles []string) func([]internal.VariantItem, *Stats) []internal.VariantItem {
	return func(items []internal.VariantItem, st *Stats) []internal.VariantItem {
		if src.IsSale() || src.LinkedSaleSourceID == "" || len(styles) == 0 {
			return items
		}
		blocked := make(map[string]bool, len(styles))
		for _, s := range styles {
			blocked[strings.ToUpper(strings.TrimSpace(s))] = true
		}
		filtered := map[string]bool{}
		out := items[:0:0]
		for _, it := range items {
			key := strings.ToUpper(it.Style)
			if blocked[key] {
				filtered[key] = true
				continue
			}
			out = append(out, it)
		}
		st.DiscontinuedStylesFiltered = len(filtered)
		st.FilteredStyles = make([]string, 0, len(filtered))
		for s := range filtered {
			st.FilteredStyles = append(st.FilteredStyles, s)
		}
		sort.Strings(st.FilteredStyles)
		return out
	}
}

// DedupeAndZeroFuture keeps the first item per style/color/size and holds
// stock at zero while the ship date, shifted by the day offset, is still
// ahead.
func DedupeAndZeroFuture(rule internal.FutureDateRule, now time.Time) func([]internal.VariantItem, *Stats) []internal.VariantItem {
	return func(items []internal.VariantItem, st *Stats) []internal.VariantItem {
		zero := internal.BoolValue(rule.ZeroFutureStock, true)
		cutoff := internal.EndOfDay(now)
		seen := make(map[string]bool, len(items))
		out := items[:0:0]
		for _, it := range items {
			key := it.Key()
			if seen[key] {
				st.DuplicatesRemoved++
				continue
			}
			seen[key] = true
			if zero && it.ShipDate != nil && it.Stock > 0 && it.ShipDate.AddDate(0, 0, internal.Value(rule.DayOffset)).After(cutoff) {
				it.Stock = 0
				st.FutureZeroed++
			}
			if it.SKU == "" {
				it.SKU = internal.BuildSKU(it.Style, it.Color, it.Size)
			}
			out = append(out, it)
		}
		return out
	}
}

// DiscontinuedStyles lists the styles a sale import registers: every style
// in the file, or only flagged ones when AllStylesInSale is off.
func DiscontinuedStyles(items []internal.VariantItem, rule internal.DiscontinuedRule) []string {
	all := internal.BoolValue(rule.AllStylesInSale, true)
	set := map[string]bool{}
	for _, it := range items {
		if all || it.Discontinued {
			set[strings.ToUpper(it.Style)] = true
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
