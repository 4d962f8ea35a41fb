package util

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var reSpaces = regexp.MustCompile(`\s+`)

func NormalizeSpaces(input string) string {
	input = strings.ReplaceAll(input, " ", " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// CellText renders a raw cell as text. Whole floats print without a
// fractional part so 2.0 reads as "2".
func CellText(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func CellLower(raw any) string {
	return strings.ToLower(NormalizeSpaces(CellText(raw)))
}

func RowTexts(row []any) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = NormalizeSpaces(CellText(c))
	}
	return out
}

func RowLower(row []any) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = CellLower(c)
	}
	return out
}

func RowIsBlank(row []any) bool {
	for _, c := range row {
		if CellText(c) != "" {
			return false
		}
	}
	return true
}

func Cell(row []any, idx int) any {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

func CellAt(row []any, idx int) string {
	return NormalizeSpaces(CellText(Cell(row, idx)))
}

// TitleCase capitalizes each word, keeping slash and hyphen separated parts
// ("navy/white" -> "Navy/White").
func TitleCase(input string) string {
	s := strings.ToLower(NormalizeSpaces(input))
	out := []rune(s)
	upNext := true
	for i, r := range out {
		if upNext && unicode.IsLetter(r) {
			out[i] = unicode.ToUpper(r)
			upNext = false
			continue
		}
		if r == ' ' || r == '/' || r == '-' || r == '(' || r == '&' {
			upNext = true
		} else if unicode.IsLetter(r) || unicode.IsDigit(r) {
			upNext = false
		}
	}
	return string(out)
}

func ContainsAny(s string, probes []string) bool {
	for _, p := range probes {
		if p != "" && strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func LooksLikeCode(input string) bool {
	if len(strings.TrimSpace(input)) < 3 {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, r := range input {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if unicode.IsDigit(r) {
			hasDigit = true
		}
	}
	return hasLetter && hasDigit || hasDigit && strings.ContainsAny(input, "-/")
}

func StringPtr(v string) *string { return &v }
