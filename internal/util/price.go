package util

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var rePriceChars = regexp.MustCompile(`[^0-9.,-]`)

// ParsePrice reads a money cell ("$1,234.50", "1.234,50", 12.5). Empty,
// unparseable and non-positive values yield nil.
func ParsePrice(raw any) *decimal.Decimal {
	var d decimal.Decimal
	switch v := raw.(type) {
	case nil:
		return nil
	case float64:
		d = decimal.NewFromFloat(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	default:
		s := rePriceChars.ReplaceAllString(CellText(raw), "")
		if s == "" {
			return nil
		}
		s = normalizeDecimalSeparators(s)
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return nil
		}
		d = parsed
	}
	if !d.IsPositive() {
		return nil
	}
	d = d.Round(2)
	return &d
}

func normalizeDecimalSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if thousandsComma.MatchString(s) {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}
