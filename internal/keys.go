package internal

import (
	"regexp"
	"strings"
	"time"
)

var (
	reSKUSeparators = regexp.MustCompile(`[\s/\\]+`)
	reSKUHyphens    = regexp.MustCompile(`-{2,}`)
)

func VariantKey(style, color, size string) string {
	return strings.ToUpper(strings.TrimSpace(style)) + "|" +
		strings.ToUpper(strings.TrimSpace(color)) + "|" +
		strings.ToUpper(strings.TrimSpace(size))
}

// BuildSKU joins style, color and size with hyphens, folding slashes and
// whitespace runs into single hyphens.
func BuildSKU(style, color, size string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{style, color, size} {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	sku := reSKUSeparators.ReplaceAllString(strings.Join(parts, "-"), "-")
	sku = reSKUHyphens.ReplaceAllString(sku, "-")
	return strings.Trim(sku, "-")
}

func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

func BoolValue(p *bool, fallback bool) bool {
	if p == nil {
		return fallback
	}
	return *p
}

func BoolPtr(v bool) *bool { return &v }

func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }

// Value dereferences an optional numeric rule value. Unset reads as zero.
func Value[T int | float64](p *T) T {
	if p == nil {
		return 0
	}
	return *p
}
