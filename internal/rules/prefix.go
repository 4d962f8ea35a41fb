package rules

import (
	"fmt"
	"regexp"
	"strings"

	"stockimport/internal"
	"stockimport/internal/util"
)

var (
	reSaleSuffix     = regexp.MustCompile(`(?i)\s+sales?$`)
	rePrefixSpaceRun = regexp.MustCompile(`\s+`)
)

// SourcePrefix is the namespace a source puts in front of its styles: the
// display name, without a trailing "Sale"/"Sales" for sale sources.
func SourcePrefix(src internal.DataSource) string {
	name := util.NormalizeSpaces(src.Name)
	if src.IsSale() {
		name = reSaleSuffix.ReplaceAllString(name, "")
	}
	return normalizePrefix(name)
}

func normalizePrefix(p string) string {
	return strings.ToUpper(rePrefixSpaceRun.ReplaceAllString(strings.TrimSpace(p), "-"))
}

type compiledPrefix struct {
	re     *regexp.Regexp
	prefix string
}

// PrefixStyles namespaces every style. The first configured pattern matching
// the raw style wins, then the item's brand, then the source prefix. Styles
// already carrying the prefix are left alone.
func PrefixStyles(rule internal.StylePrefixRule, src internal.DataSource) func([]internal.VariantItem, *Stats) []internal.VariantItem {
	return func(items []internal.VariantItem, st *Stats) []internal.VariantItem {
		if !internal.BoolValue(rule.Enabled, true) {
			return items
		}
		var patterns []compiledPrefix
		for _, p := range rule.Patterns {
			re, err := regexp.Compile("(?i)" + p.Match)
			if err != nil {
				st.Warnings = append(st.Warnings, fmt.Sprintf("prefix: pattern %q: %v", p.Match, err))
				continue
			}
			patterns = append(patterns, compiledPrefix{re: re, prefix: normalizePrefix(p.Prefix)})
		}
		sep := rule.Separator
		if sep == "" {
			sep = "-"
		}
		fallback := SourcePrefix(src)

		for i := range items {
			it := &items[i]
			prefix := ""
			for _, p := range patterns {
				if p.re.MatchString(it.Style) {
					prefix = p.prefix
					break
				}
			}
			if prefix == "" && it.Brand != "" {
				prefix = normalizePrefix(it.Brand)
			}
			if prefix == "" {
				prefix = fallback
			}
			if prefix == "" || strings.HasPrefix(strings.ToUpper(it.Style), prefix+strings.ToUpper(sep)) {
				continue
			}
			it.Style = prefix + sep + it.Style
			it.SKU = internal.BuildSKU(it.Style, it.Color, it.Size)
			st.Prefixed++
		}
		return items
	}
}
