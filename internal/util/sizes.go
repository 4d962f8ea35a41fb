package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reNumericSize  = regexp.MustCompile(`^(000|00|0|0?[1-9]|[12][0-9]|3[0-6])$`)
	reLetteredZero = regexp.MustCompile(`^[O0]*O[O0]*$`)
	reSuffixedSize = regexp.MustCompile(`^(000|00|0|0?[1-9]|[12][0-9]|3[0-6])(P|R|W)$`)
	letterSizes    = map[string]string{
		"XXS": "XXS", "2XS": "XXS", "XS": "XS", "S": "S", "M": "M", "L": "L", "XL": "XL",
		"XXL": "XXL", "2XL": "XXL", "XXXL": "3XL", "3XL": "3XL", "4XL": "4XL", "5XL": "5XL",
	}
)

// Canonical size order. Adjacency is only defined inside one sequence.
var sizeSequences = [][]string{
	{"000", "00", "0", "2", "4", "6", "8", "10", "12", "14", "16", "18", "20", "22", "24", "26", "28", "30", "32", "34", "36"},
	{"1", "3", "5", "7", "9", "11", "13", "15", "17", "19", "21", "23", "25", "27", "29", "31", "33", "35"},
	{"XXS", "XS", "S", "M", "L", "XL", "XXL", "3XL", "4XL", "5XL"},
}

// NormalizeSize canonicalizes a size token: "OO0" -> "000", "02" -> "2",
// "2XL" -> "XXL", "04P" -> "4P". Unknown tokens are only trimmed and uppercased.
func NormalizeSize(token string) string {
	s := strings.ToUpper(NormalizeSpaces(token))
	if s == "" {
		return s
	}
	if len(s) <= 3 && reLetteredZero.MatchString(s) {
		return strings.ReplaceAll(s, "O", "0")
	}
	if m := reSuffixedSize.FindStringSubmatch(s); m != nil {
		return trimLeadingZero(m[1]) + m[2]
	}
	if reNumericSize.MatchString(s) {
		return trimLeadingZero(s)
	}
	if v, ok := letterSizes[s]; ok {
		return v
	}
	return s
}

func trimLeadingZero(s string) string {
	if len(s) == 2 && s[0] == '0' && s[1] != '0' {
		return s[1:]
	}
	return s
}

// SizeMatcher recognizes size tokens in header cells: numeric 0-36, 00, 000,
// lettered O variants, letter sizes, suffixed numeric sizes and any
// configured size family.
type SizeMatcher struct {
	families []*regexp.Regexp
}

func NewSizeMatcher(families []string) (*SizeMatcher, []error) {
	m := &SizeMatcher{}
	var errs []error
	for _, f := range families {
		if strings.TrimSpace(f) == "" {
			continue
		}
		re, err := regexp.Compile("(?i)^(?:" + f + ")$")
		if err != nil {
			errs = append(errs, fmt.Errorf("size family %q: %w", f, err))
			continue
		}
		m.families = append(m.families, re)
	}
	return m, errs
}

func (m *SizeMatcher) IsSize(raw any) bool {
	s := strings.ToUpper(NormalizeSpaces(CellText(raw)))
	if s == "" {
		return false
	}
	if reNumericSize.MatchString(s) || reSuffixedSize.MatchString(s) {
		return true
	}
	if len(s) <= 3 && reLetteredZero.MatchString(s) {
		return true
	}
	if _, ok := letterSizes[s]; ok {
		return true
	}
	if m != nil {
		for _, re := range m.families {
			if re.MatchString(s) {
				return true
			}
		}
	}
	return false
}

// CountSizes returns how many cells of row look like sizes.
func (m *SizeMatcher) CountSizes(row []any) int {
	n := 0
	for _, c := range row {
		if m.IsSize(c) {
			n++
		}
	}
	return n
}

type sizePos struct {
	seq    int
	idx    int
	suffix string
}

func locateSize(size string) (sizePos, bool) {
	s := NormalizeSize(size)
	suffix := ""
	if m := reSuffixedSize.FindStringSubmatch(s); m != nil {
		s, suffix = m[1], m[2]
	}
	for seq, list := range sizeSequences {
		for idx, v := range list {
			if v == s {
				return sizePos{seq: seq, idx: idx, suffix: suffix}, true
			}
		}
	}
	return sizePos{}, false
}

// AdjacentSizes lists up to down sizes below and up sizes above size in its
// canonical sequence, nearest first. Suffixed sizes stay within their suffix.
// ok is false when size is not part of any sequence.
func AdjacentSizes(size string, down, up int) (below, above []string, ok bool) {
	pos, ok := locateSize(size)
	if !ok {
		return nil, nil, false
	}
	list := sizeSequences[pos.seq]
	for i := 1; i <= down && pos.idx-i >= 0; i++ {
		below = append(below, list[pos.idx-i]+pos.suffix)
	}
	for i := 1; i <= up && pos.idx+i < len(list); i++ {
		above = append(above, list[pos.idx+i]+pos.suffix)
	}
	return below, above, true
}

// CompareSizes orders two sizes of the same sequence and suffix. comparable is
// false otherwise.
func CompareSizes(a, b string) (cmp int, comparable bool) {
	pa, okA := locateSize(a)
	pb, okB := locateSize(b)
	if !okA || !okB || pa.seq != pb.seq || pa.suffix != pb.suffix {
		// Plain numbers outside the sequences still compare numerically.
		na, errA := strconv.ParseFloat(NormalizeSize(a), 64)
		nb, errB := strconv.ParseFloat(NormalizeSize(b), 64)
		if errA != nil || errB != nil {
			return 0, false
		}
		return compareFloat(na, nb), true
	}
	if pa.seq == 0 || pa.seq == 1 {
		na, _ := strconv.Atoi(strings.TrimLeft(sizeSequences[pa.seq][pa.idx], "0"))
		nb, _ := strconv.Atoi(strings.TrimLeft(sizeSequences[pb.seq][pb.idx], "0"))
		if na != nb {
			return compareFloat(float64(na), float64(nb)), true
		}
	}
	return compareFloat(float64(pa.idx), float64(pb.idx)), true
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

var headerWords = []string{"style", "color", "colour", "size", "item", "description", "sku", "model"}

// IsHeaderRow reports whether row reads as a size header: at least three size
// tokens plus either a label column or a token that cannot be a quantity.
func (m *SizeMatcher) IsHeaderRow(row []any) bool {
	sizes := 0
	label, symbolic := false, false
	for _, c := range row {
		text := strings.ToLower(NormalizeSpaces(CellText(c)))
		if text == "" {
			continue
		}
		if m.IsSize(c) {
			sizes++
			if _, isText := c.(string); isText && !reQuantity.MatchString(text) {
				symbolic = true
			}
			continue
		}
		if isLabel(text) {
			label = true
		}
	}
	return sizes >= 3 && (label || symbolic)
}

func isLabel(text string) bool {
	for _, w := range headerWords {
		if text == w || strings.HasPrefix(text, w+" ") || strings.HasPrefix(text, w+"#") {
			return true
		}
	}
	return false
}

var reQuantity = regexp.MustCompile(`^[1-9]\d*$|^0$`)
