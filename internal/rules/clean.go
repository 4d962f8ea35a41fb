package rules

import (
	"fmt"
	"regexp"
	"strings"

	"stockimport/internal"
)

type replacer struct {
	re      *regexp.Regexp
	find    string
	replace string
}

// Clean applies find/replace, prefix and suffix stripping and character
// stripping to the style only. Items whose style ends up empty are dropped.
func Clean(rule internal.CleaningRule) func([]internal.VariantItem, *Stats) []internal.VariantItem {
	return func(items []internal.VariantItem, st *Stats) []internal.VariantItem {
		var replacers []replacer
		for _, fr := range rule.FindReplace {
			if fr.Find == "" {
				continue
			}
			if !fr.Regex {
				replacers = append(replacers, replacer{find: fr.Find, replace: fr.Replace})
				continue
			}
			re, err := regexp.Compile(fr.Find)
			if err != nil {
				st.Warnings = append(st.Warnings, fmt.Sprintf("cleaning: find pattern %q: %v", fr.Find, err))
				continue
			}
			replacers = append(replacers, replacer{re: re, replace: fr.Replace})
		}
		strip, err := stripExpr(rule.StripChars)
		if err != nil {
			st.Warnings = append(st.Warnings, fmt.Sprintf("cleaning: strip characters %q: %v", rule.StripChars, err))
		}
		upper := internal.BoolValue(rule.Uppercase, true)

		out := items[:0:0]
		for _, it := range items {
			style := it.Style
			for _, r := range replacers {
				if r.re != nil {
					style = r.re.ReplaceAllString(style, r.replace)
				} else {
					style = strings.ReplaceAll(style, r.find, r.replace)
				}
			}
			style = strings.TrimSpace(style)
			style = trimAffix(style, rule.StripPrefixes, strings.HasPrefix, func(s, a string) string { return s[len(a):] })
			style = trimAffix(style, rule.StripSuffixes, strings.HasSuffix, func(s, a string) string { return s[:len(s)-len(a)] })
			if strip != nil {
				style = strip.ReplaceAllString(style, "")
			}
			style = strings.TrimSpace(style)
			if upper {
				style = strings.ToUpper(style)
			}
			if style == "" {
				st.CleaningRemoved++
				continue
			}
			it.Style = style
			out = append(out, it)
		}
		return out
	}
}

func trimAffix(s string, affixes []string, has func(string, string) bool, cut func(string, string) string) string {
	upper := strings.ToUpper(s)
	for _, a := range affixes {
		if a == "" {
			continue
		}
		if has(upper, strings.ToUpper(a)) {
			return strings.TrimSpace(cut(s, a))
		}
	}
	return s
}

// stripExpr accepts either a bracketed character class ("[^A-Z0-9-]") or a
// plain list of characters to remove.
func stripExpr(chars string) (*regexp.Regexp, error) {
	if chars == "" {
		return nil, nil
	}
	if strings.HasPrefix(chars, "[") && strings.HasSuffix(chars, "]") {
		return regexp.Compile(chars)
	}
	var b strings.Builder
	b.WriteByte('[')
	for _, r := range chars {
		if strings.ContainsRune(`\]-^[`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte(']')
	return regexp.Compile(b.String())
}
