package util

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"stockimport/internal"
)

var (
	numberPattern    = regexp.MustCompile(`(^|[^0-9.,])(-?)(\d{1,3}(?:[\s.,]\d{3})+|\d+(?:[.,]\d+)?)`)
	thousandsDot     = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
	thousandsComma   = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
	thousandsSpace   = regexp.MustCompile(`^\d{1,3}(?:\s\d{3})+$`)
	defaultStockText = map[string]int{
		"yes":          1,
		"y":            1,
		"in stock":     1,
		"available":    1,
		"last piece":   1,
		"last pc":      1,
		"last one":     1,
		"no":           0,
		"n":            0,
		"sold out":     0,
		"soldout":      0,
		"out of stock": 0,
		"oos":          0,
		"-":            0,
		"--":           0,
		"---":          0,
		"–":            0,
		"—":            0,
		"n/a":          0,
		"na":           0,
		"none":         0,
	}
)

// NormalizeStock converts a raw cell into a non-negative quantity. Numbers are
// floored, text goes through the built-in table, then the caller mapping, then
// a locale-aware number parse. Anything else is 0.
func NormalizeStock(raw any, mapping internal.StockTextMapping) int {
	switch v := raw.(type) {
	case nil:
		return 0
	case int:
		return clampStock(v)
	case int64:
		return clampStock(int(v))
	case float64:
		return floorStock(v)
	case float32:
		return floorStock(float64(v))
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		return normalizeStockText(v, mapping)
	default:
		return normalizeStockText(fmt.Sprint(v), mapping)
	}
}

func normalizeStockText(s string, mapping internal.StockTextMapping) int {
	text := strings.ToLower(NormalizeSpaces(s))
	if text == "" {
		return 0
	}
	if v, ok := defaultStockText[text]; ok {
		return v
	}
	if v, ok := mapping.Get(text); ok {
		return clampStock(v)
	}
	n, ok := ParseNumber(text)
	if !ok {
		return 0
	}
	return floorStock(n)
}

// ParseNumber finds the first number in s and parses it, accepting thousands
// separators (1.000, 1,000, 1 000) and decimal commas (1,5).
func ParseNumber(s string) (float64, bool) {
	line := strings.ReplaceAll(s, " ", " ")
	m := numberPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(normalizeNumericToken(m[3]), 64)
	if err != nil {
		return 0, false
	}
	if m[2] == "-" {
		parsed = -parsed
	}
	return parsed, true
}

func normalizeNumericToken(token string) string {
	token = strings.TrimSpace(token)
	if thousandsSpace.MatchString(token) {
		return strings.Join(strings.Fields(token), "")
	}
	compact := strings.ReplaceAll(token, " ", "")
	if thousandsDot.MatchString(compact) {
		return strings.ReplaceAll(compact, ".", "")
	}
	if thousandsComma.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	if strings.Contains(compact, ",") && !strings.Contains(compact, ".") {
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}

func floorStock(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return clampStock(int(math.Floor(v)))
}

func clampStock(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// CellFacts is what a single cell says about a variant.
type CellFacts struct {
	Stock        int
	ShipDate     *time.Time
	Discontinued bool
	SpecialOrder bool
	Matched      bool
	Pattern      string
}

type CompiledPattern struct {
	internal.CellPattern
	re *regexp.Regexp
}

// DefaultCellPatterns cover the availability codes most pattern grids use:
// "D" for on hand, "qty@date" for incoming stock, a bare date for a future
// ship date, "disc" and "so" flags.
var DefaultCellPatterns = []internal.CellPattern{
	{Name: "on-hand", Match: `^d$`, Stock: internal.IntPtr(1)},
	{Name: "qty-at-date", Match: `^(\d+)\s*@\s*(\d{1,2}/\d{1,2}/\d{2,4})$`, StockGroup: 1, DateGroup: 2},
	{Name: "date-only", Match: `^(\d{1,2}/\d{1,2}/\d{2,4})$`, DateGroup: 1},
	{Name: "discontinued", Match: `^disc(ontinued)?$`, Discontinued: true},
	{Name: "special-order", Match: `^(so|s/o|special order)$`, SpecialOrder: true},
}

// CompilePatterns compiles patterns case-insensitively. Invalid expressions
// are skipped and reported.
func CompilePatterns(patterns []internal.CellPattern) ([]CompiledPattern, []error) {
	out := make([]CompiledPattern, 0, len(patterns))
	var errs []error
	for _, p := range patterns {
		if strings.TrimSpace(p.Match) == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + p.Match)
		if err != nil {
			errs = append(errs, fmt.Errorf("cell pattern %q: %w", p.Name, err))
			continue
		}
		out = append(out, CompiledPattern{CellPattern: p, re: re})
	}
	return out, errs
}

// ParseComplexCell runs patterns in order against the lowercased cell and
// stops at the first match. Cells matching nothing fall back to NormalizeStock.
func ParseComplexCell(raw any, patterns []CompiledPattern, mapping internal.StockTextMapping) CellFacts {
	text := strings.ToLower(NormalizeSpaces(CellText(raw)))
	if text != "" {
		for _, p := range patterns {
			m := p.re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			facts := CellFacts{
				Matched:      true,
				Pattern:      p.Name,
				Discontinued: p.Discontinued,
				SpecialOrder: p.SpecialOrder,
			}
			if p.Stock != nil {
				facts.Stock = clampStock(*p.Stock)
			}
			if p.StockGroup > 0 && p.StockGroup < len(m) {
				facts.Stock = NormalizeStock(m[p.StockGroup], mapping)
			}
			if p.DateGroup > 0 && p.DateGroup < len(m) {
				if d, ok := ParseDate(m[p.DateGroup]); ok {
					facts.ShipDate = &d
				}
			}
			return facts
		}
	}
	return CellFacts{Stock: NormalizeStock(raw, mapping)}
}
