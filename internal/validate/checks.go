package validate

import (
	"fmt"
	"math"
	"strings"
	"time"

	"stockimport/internal"
)

const (
	CategoryDelta        = "delta"
	CategoryDistribution = "distribution"
	CategoryBounds       = "bounds"
	CategorySpot         = "spot"
)

// Compare checks a fresh import against the previous snapshot and the
// configured expectations. Failures are reported, never enforced.
func Compare(items []internal.VariantItem, current internal.ImportSnapshot, previous *internal.ImportSnapshot, rule internal.ChecksumRule, now time.Time) internal.ValidationReport {
	r := &reportBuilder{}
	if !internal.BoolValue(rule.Enabled, true) {
		r.add("checksum", CategoryDelta, internal.CheckSkip, "checksum validation disabled")
		return r.report()
	}

	tolerances := []struct {
		name      string
		cur       int
		prev      func(internal.ImportSnapshot) int
		tolerance float64
	}{
		{"item_count", current.ItemCount, func(s internal.ImportSnapshot) int { return s.ItemCount }, internal.Value(rule.ItemCountTolerancePct)},
		{"total_stock", current.TotalStock, func(s internal.ImportSnapshot) int { return s.TotalStock }, internal.Value(rule.StockTolerancePct)},
		{"style_count", current.StyleCount, func(s internal.ImportSnapshot) int { return s.StyleCount }, internal.Value(rule.StyleCountTolerancePct)},
		{"color_count", current.ColorCount, func(s internal.ImportSnapshot) int { return s.ColorCount }, internal.Value(rule.ColorCountTolerancePct)},
	}
	for _, t := range tolerances {
		switch {
		case previous == nil:
			r.add(t.name, CategoryDelta, internal.CheckSkip, "no previous import")
		case t.tolerance <= 0:
			r.add(t.name, CategoryDelta, internal.CheckSkip, "no tolerance configured")
		default:
			r.tolerance(t.name, t.cur, t.prev(*previous), t.tolerance)
		}
	}

	if previous != nil {
		added, removed := styleDelta(current, *previous)
		r.limit("styles_added", added, previous.StyleCount, internal.Value(rule.MaxStylesAddedPct))
		r.limit("styles_removed", removed, previous.StyleCount, internal.Value(rule.MaxStylesRemovedPct))
	}

	if current.ItemCount > 0 {
		r.minimum("in_stock_pct", pct(current.InStockCount, current.ItemCount), internal.Value(rule.MinInStockPct))
		r.minimum("priced_pct", pct(current.PricedCount, current.ItemCount), internal.Value(rule.MinPricedPct))
	}

	if minItems := internal.Value(rule.MinItems); minItems > 0 {
		status := internal.CheckPass
		if current.ItemCount < minItems {
			status = internal.CheckFail
		}
		r.add("min_items", CategoryBounds, status, fmt.Sprintf("%d items, minimum %d", current.ItemCount, minItems))
	}
	if maxItems := internal.Value(rule.MaxItems); maxItems > 0 {
		status := internal.CheckPass
		if current.ItemCount > maxItems {
			status = internal.CheckFail
		}
		r.add("max_items", CategoryBounds, status, fmt.Sprintf("%d items, maximum %d", current.ItemCount, maxItems))
	}

	for _, sc := range rule.SpotChecks {
		r.spot(sc, items, now)
	}
	return r.report()
}

type reportBuilder struct {
	checks []internal.CheckResult
}

func (r *reportBuilder) add(name, category string, status internal.CheckStatus, msg string) {
	r.checks = append(r.checks, internal.CheckResult{Name: name, Category: category, Status: status, Message: msg})
}

func (r *reportBuilder) report() internal.ValidationReport {
	rep := internal.ValidationReport{Passed: true, Checks: r.checks}
	for _, c := range r.checks {
		if c.Status == internal.CheckFail {
			rep.Passed = false
		}
	}
	return rep
}

func (r *reportBuilder) tolerance(name string, cur, prev int, tolerance float64) {
	if prev == 0 {
		if cur == 0 {
			r.add(name, CategoryDelta, internal.CheckPass, "0 before and now")
		} else {
			r.add(name, CategoryDelta, internal.CheckSkip, fmt.Sprintf("previous import had 0, now %d", cur))
		}
		return
	}
	change := math.Abs(float64(cur-prev)) * 100 / float64(prev)
	status := internal.CheckPass
	if change > tolerance {
		status = internal.CheckFail
	}
	r.add(name, CategoryDelta, status, fmt.Sprintf("%d -> %d (%.1f%% change, tolerance %.1f%%)", prev, cur, change, tolerance))
}

func (r *reportBuilder) limit(name string, n, base int, maxPct float64) {
	if maxPct <= 0 {
		return
	}
	if base == 0 {
		r.add(name, CategoryDelta, internal.CheckSkip, "previous import had no styles")
		return
	}
	p := pct(n, base)
	status := internal.CheckPass
	if p > maxPct {
		status = internal.CheckFail
	}
	r.add(name, CategoryDelta, status, fmt.Sprintf("%d styles (%.1f%%, limit %.1f%%)", n, p, maxPct))
}

func (r *reportBuilder) minimum(name string, value, minPct float64) {
	if minPct <= 0 {
		return
	}
	status := internal.CheckPass
	if value < minPct {
		status = internal.CheckFail
	}
	r.add(name, CategoryDistribution, status, fmt.Sprintf("%.1f%%, minimum %.1f%%", value, minPct))
}

func (r *reportBuilder) spot(sc internal.SpotCheck, items []internal.VariantItem, now time.Time) {
	name := "spot:" + strings.Join(nonEmpty(sc.Style, sc.Color, sc.Size), "/")
	var matched []internal.VariantItem
	for _, it := range items {
		if !strings.EqualFold(it.Style, sc.Style) {
			continue
		}
		if sc.Color != "" && !strings.EqualFold(it.Color, sc.Color) {
			continue
		}
		if sc.Size != "" && !strings.EqualFold(it.Size, sc.Size) {
			continue
		}
		matched = append(matched, it)
	}
	expect := strings.ToLower(strings.TrimSpace(sc.Expect))
	if expect == "" {
		expect = "exists"
	}
	var ok bool
	switch expect {
	case "exists":
		ok = len(matched) > 0
	case "in_stock", "has_stock":
		ok = anyMatch(matched, func(it internal.VariantItem) bool { return it.Stock > 0 })
	case "has_price", "priced":
		ok = anyMatch(matched, func(it internal.VariantItem) bool { return it.Price != nil })
	case "discontinued":
		ok = anyMatch(matched, func(it internal.VariantItem) bool { return it.Discontinued })
	case "future_date", "has_future_date":
		ok = anyMatch(matched, func(it internal.VariantItem) bool { return it.HasFutureDate(now) })
	default:
		r.add(name, CategorySpot, internal.CheckSkip, fmt.Sprintf("unknown expectation %q", sc.Expect))
		return
	}
	status := internal.CheckPass
	if !ok {
		status = internal.CheckFail
	}
	r.add(name, CategorySpot, status, fmt.Sprintf("expect %s, %d matching items", expect, len(matched)))
}

func anyMatch(items []internal.VariantItem, fn func(internal.VariantItem) bool) bool {
	for _, it := range items {
		if fn(it) {
			return true
		}
	}
	return false
}

func nonEmpty(parts ...string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

func styleDelta(current, previous internal.ImportSnapshot) (added, removed int) {
	for s := range current.Summaries {
		if _, ok := previous.Summaries[s]; !ok {
			added++
		}
	}
	for s := range previous.Summaries {
		if _, ok := current.Summaries[s]; !ok {
			removed++
		}
	}
	return added, removed
}
