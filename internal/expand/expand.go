package expand

import (
	"fmt"

	"github.com/shopspring/decimal"

	"stockimport/internal"
	"stockimport/internal/util"
)

type Result struct {
	Items     []internal.VariantItem
	Added     int
	Converted int
	Warnings  []string
}

// PriceFunc returns the price used to pick a tier for an item.
type PriceFunc func(item internal.VariantItem) (decimal.Decimal, bool)

// ByStock adds sizes around every real size whose stock reaches the trigger.
func ByStock(items []internal.VariantItem, rule internal.StockExpansionRule) Result {
	if !internal.BoolValue(rule.Enabled, false) || (rule.ExpandDown <= 0 && rule.ExpandUp <= 0) {
		return Result{Items: items}
	}
	trigger := max(rule.MinTrigger, 1)
	return around(items, "stock", max(rule.ExpandedStock, 0), func(it internal.VariantItem) (int, int, bool) {
		if it.Stock < trigger {
			return 0, 0, false
		}
		return rule.ExpandDown, rule.ExpandUp, true
	})
}

// ByPrice adds sizes around in-stock sizes using the first tier whose range
// contains the item's price. Expanded sizes always carry zero stock.
func ByPrice(items []internal.VariantItem, tiers []internal.PriceExpansionTier, price PriceFunc) Result {
	if len(tiers) == 0 || price == nil {
		return Result{Items: items}
	}
	return around(items, "price", 0, func(it internal.VariantItem) (int, int, bool) {
		if it.Stock <= 0 {
			return 0, 0, false
		}
		p, ok := price(it)
		if !ok {
			return 0, 0, false
		}
		for _, t := range tiers {
			if t.Contains(p) {
				return t.ExpandDown, t.ExpandUp, t.ExpandDown > 0 || t.ExpandUp > 0
			}
		}
		return 0, 0, false
	})
}

// ItemPrice reads the price carried by the item itself.
func ItemPrice(it internal.VariantItem) (decimal.Decimal, bool) {
	if it.Price == nil {
		return decimal.Decimal{}, false
	}
	return *it.Price, true
}

// around expands each real item by the counts pick returns. Real in-stock
// sizes are never duplicated, a real zero-stock row at a target size becomes
// the expanded row unless it carries a ship date or a discontinued flag, and
// a target already expanded by an earlier pass is reported rather than
// expanded twice.
func around(items []internal.VariantItem, pass string, stock int, pick func(internal.VariantItem) (int, int, bool)) Result {
	res := Result{Items: make([]internal.VariantItem, len(items), len(items)+len(items)/2)}
	copy(res.Items, items)

	index := make(map[string]int, len(items))
	for i, it := range res.Items {
		if _, seen := index[it.Key()]; !seen {
			index[it.Key()] = i
		}
	}
	ours := map[string]bool{}
	reported := map[string]bool{}

	for _, base := range items {
		if base.IsExpandedSize {
			continue
		}
		down, up, ok := pick(base)
		if !ok {
			continue
		}
		below, above, ok := util.AdjacentSizes(base.Size, down, up)
		if !ok {
			continue
		}
		for _, size := range append(below, above...) {
			key := internal.VariantKey(base.Style, base.Color, size)
			pos, exists := index[key]
			if !exists {
				res.Items = append(res.Items, expanded(base, size, stock))
				index[key] = len(res.Items) - 1
				ours[key] = true
				res.Added++
				continue
			}
			existing := &res.Items[pos]
			switch {
			case existing.IsExpandedSize:
				if !ours[key] && !reported[key] {
					reported[key] = true
					res.Warnings = append(res.Warnings, fmt.Sprintf(
						"double expansion: %s %s size %s already expanded from %s, %s pass from %s skipped",
						base.Style, base.Color, size, existing.ExpandedFromSize, pass, base.Size))
				}
			case existing.Stock > 0, existing.ShipDate != nil, existing.Discontinued:
			default:
				existing.IsExpandedSize = true
				existing.ExpandedFromSize = base.Size
				existing.Stock = stock
				existing.ShipDate = nil
				ours[key] = true
				res.Converted++
			}
		}
	}
	return res
}

func expanded(base internal.VariantItem, size string, stock int) internal.VariantItem {
	return internal.VariantItem{
		Style:            base.Style,
		Color:            base.Color,
		Size:             size,
		Stock:            stock,
		Price:            base.Price,
		Brand:            base.Brand,
		IsExpandedSize:   true,
		ExpandedFromSize: base.Size,
		SKU:              internal.BuildSKU(base.Style, base.Color, size),
	}
}
