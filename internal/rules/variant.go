package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockimport/internal"
	"stockimport/internal/expand"
	"stockimport/internal/util"
)

// VariantRules enforces size bounds and the zero-stock policy. Expanded sizes
// are exempt from the zero-stock drop but leave with the real size they were
// expanded from.
func VariantRules(limits internal.SizeLimitRule, rule internal.VariantRule, now time.Time) func([]internal.VariantItem, *Stats) []internal.VariantItem {
	return func(items []internal.VariantItem, st *Stats) []internal.VariantItem {
		dropZero := internal.BoolValue(rule.DropZeroStock, false)
		keepFuture := internal.BoolValue(rule.KeepFutureDated, true)

		out := items[:0:0]
		for _, it := range items {
			lo, hi := boundsFor(limits, it.Style)
			if outside(it.Size, lo, hi) {
				st.VariantRemoved++
				continue
			}
			if dropZero && it.Stock == 0 && !it.IsExpandedSize && !(keepFuture && it.HasFutureDate(now)) {
				st.VariantRemoved++
				continue
			}
			out = append(out, it)
		}
		return dropOrphans(out, st)
	}
}

// dropOrphans removes expanded sizes whose origin size is no longer present
// as a real item of the same style and color.
func dropOrphans(items []internal.VariantItem, st *Stats) []internal.VariantItem {
	origins := make(map[string]bool, len(items))
	for _, it := range items {
		if !it.IsExpandedSize {
			origins[it.Key()] = true
		}
	}
	out := items[:0]
	for _, it := range items {
		if it.IsExpandedSize && !origins[internal.VariantKey(it.Style, it.Color, it.ExpandedFromSize)] {
			st.VariantRemoved++
			continue
		}
		out = append(out, it)
	}
	return out
}

func boundsFor(limits internal.SizeLimitRule, style string) (string, string) {
	upper := strings.ToUpper(style)
	for _, o := range limits.Overrides {
		if o.Prefix != "" && strings.HasPrefix(upper, strings.ToUpper(o.Prefix)) {
			return o.Min, o.Max
		}
	}
	return limits.Min, limits.Max
}

// outside reports whether size falls below lo or above hi. Sizes that cannot
// be compared with a bound are kept.
func outside(size, lo, hi string) bool {
	if lo != "" {
		if c, ok := util.CompareSizes(size, lo); ok && c < 0 {
			return true
		}
	}
	if hi != "" {
		if c, ok := util.CompareSizes(size, hi); ok && c > 0 {
			return true
		}
	}
	return false
}

// PriceExpansion runs tier expansion. With storefront prices enabled the
// lookup answers first and the item's own price is the fallback.
func PriceExpansion(rule internal.PriceExpansionRule, lookup PriceLookup) func([]internal.VariantItem, *Stats) []internal.VariantItem {
	return func(items []internal.VariantItem, st *Stats) []internal.VariantItem {
		if !internal.BoolValue(rule.Enabled, false) || len(rule.Tiers) == 0 {
			return items
		}
		price := expand.ItemPrice
		if internal.BoolValue(rule.UseStorefrontPrice, false) {
			if lookup == nil {
				st.Warnings = append(st.Warnings, "price expansion: storefront prices requested but no price lookup is configured")
			} else {
				price = func(it internal.VariantItem) (decimal.Decimal, bool) {
					if p, ok := lookup.StylePrice(it.Style); ok {
						return p, true
					}
					return expand.ItemPrice(it)
				}
			}
		}
		res := expand.ByPrice(items, rule.Tiers, price)
		st.Expanded += res.Added + res.Converted
		for _, w := range res.Warnings {
			st.Warnings = append(st.Warnings, fmt.Sprintf("price expansion: %s", w))
		}
		return res.Items
	}
}
