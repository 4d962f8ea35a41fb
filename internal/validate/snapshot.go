package validate

import (
	"sort"
	"strings"
	"time"

	"stockimport/internal"
)

// MaxListed bounds the style and color lists stored on a snapshot.
const MaxListed = 500

func ComputeSnapshot(sourceID string, items []internal.VariantItem, now time.Time) internal.ImportSnapshot {
	snap := internal.ImportSnapshot{
		SourceID:  sourceID,
		ItemCount: len(items),
		Summaries: map[string]internal.StyleSummary{},
		CreatedAt: now,
	}
	colors := map[string]bool{}
	styleColors := map[string]map[string]bool{}
	styleSizes := map[string]map[string]bool{}

	for _, it := range items {
		snap.TotalStock += it.Stock
		if it.Stock > 0 {
			snap.InStockCount++
		}
		if it.Price != nil {
			snap.PricedCount++
		}
		style := strings.ToUpper(it.Style)
		color := strings.ToUpper(it.Color)
		if color != "" {
			colors[color] = true
		}
		if styleColors[style] == nil {
			styleColors[style] = map[string]bool{}
			styleSizes[style] = map[string]bool{}
		}
		if color != "" {
			styleColors[style][color] = true
		}
		if it.Size != "" {
			styleSizes[style][strings.ToUpper(it.Size)] = true
		}

		sum := snap.Summaries[style]
		sum.VariantCount++
		sum.TotalStock += it.Stock
		sum.HasDiscontinued = sum.HasDiscontinued || it.Discontinued
		sum.HasFutureDate = sum.HasFutureDate || it.HasFutureDate(now)
		if it.IsExpandedSize {
			sum.ExpandedCount++
		}
		snap.Summaries[style] = sum
	}
	for style, sum := range snap.Summaries {
		sum.Colors = sortedKeys(styleColors[style], 0)
		sum.Sizes = sortedKeys(styleSizes[style], 0)
		snap.Summaries[style] = sum
	}
	snap.StyleCount = len(snap.Summaries)
	snap.ColorCount = len(colors)
	styles := make(map[string]bool, len(snap.Summaries))
	for s := range snap.Summaries {
		styles[s] = true
	}
	snap.Styles = sortedKeys(styles, MaxListed)
	snap.Colors = sortedKeys(colors, MaxListed)
	return snap
}

func sortedKeys(set map[string]bool, limit int) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
