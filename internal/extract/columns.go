package extract

import (
	"strings"
	"unicode"

	"stockimport/internal"
	"stockimport/internal/util"
)

const (
	headerScanRows  = 5
	invoiceScanRows = 15
)

// Semantic fields understood by ResolveColumn.
const (
	FieldStyle        = "style"
	FieldColor        = "color"
	FieldSize         = "size"
	FieldStock        = "stock"
	FieldPrice        = "price"
	FieldShipDate     = "shipDate"
	FieldDiscontinued = "discontinued"
	FieldBrand        = "brand"
	FieldName         = "name"
	FieldCode         = "code"
)

var defaultFallbacks = map[string][]string{
	FieldStyle:        {"style", "style #", "style no", "style number", "style code", "item", "item #", "model", "article"},
	FieldColor:        {"color", "colour", "color name", "clr"},
	FieldSize:         {"size", "sz"},
	FieldStock:        {"qty", "quantity", "stock", "available", "avail", "on hand", "inventory", "ats"},
	FieldPrice:        {"wholesale", "price", "cost", "msrp", "retail"},
	FieldShipDate:     {"ship date", "eta", "available date", "avail date", "delivery", "due date", "date"},
	FieldDiscontinued: {"discontinued", "status"},
	FieldBrand:        {"vendor", "brand", "designer", "label"},
	FieldName:         {"product name", "description", "name", "product", "title"},
	FieldCode:         {"item code", "product code", "sku", "code", "upc", "item #"},
}

func Fallbacks(field string) []string {
	return defaultFallbacks[field]
}

// ResolveColumn finds the column of a semantic field in a lowercased header.
// An explicit mapping that names an existing header always wins. Otherwise
// fallback patterns are tried in order, each by exact match, then whole-word
// containment, then plain substring containment ("styleno", "qtyavail").
// -1 means not found.
func ResolveColumn(mapping internal.ColumnMapping, header []string, field string, fallbacks []string) int {
	return resolve(mapping, header, field, fallbacks, true)
}

func resolve(mapping internal.ColumnMapping, header []string, field string, fallbacks []string, substring bool) int {
	if want, ok := mapping[field]; ok {
		want = strings.ToLower(strings.TrimSpace(want))
		if want != "" {
			for i, h := range header {
				if strings.TrimSpace(h) == want {
					return i
				}
			}
		}
	}
	for _, p := range fallbacks {
		p = strings.ToLower(p)
		for i, h := range header {
			if strings.TrimSpace(h) == p {
				return i
			}
		}
		for i, h := range header {
			if containsWord(h, p) {
				return i
			}
		}
		if !substring || p == "" {
			continue
		}
		for i, h := range header {
			if strings.Contains(h, p) {
				return i
			}
		}
	}
	return -1
}

func containsWord(s, word string) bool {
	if word == "" {
		return false
	}
	for from := 0; ; {
		i := strings.Index(s[from:], word)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(word)
		if boundary(s, start-1) && boundary(s, end) {
			return true
		}
		from = start + 1
	}
}

func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	r := rune(s[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

type columns struct {
	style, color, size, stock, price, shipDate, discontinued, brand, name, code int
	header                                                                     []string
}

func resolveColumns(header []string, cfg internal.SourceConfig) columns {
	mapping := cfg.ColumnMapping
	if cfg.Discontinued.Column != "" {
		if _, ok := mapping[FieldDiscontinued]; !ok {
			merged := internal.ColumnMapping{FieldDiscontinued: cfg.Discontinued.Column}
			for k, v := range mapping {
				merged[k] = v
			}
			mapping = merged
		}
	}
	col := func(field string) int {
		return ResolveColumn(mapping, header, field, defaultFallbacks[field])
	}
	c := columns{
		style:        col(FieldStyle),
		color:        col(FieldColor),
		size:         col(FieldSize),
		stock:        col(FieldStock),
		price:        col(FieldPrice),
		shipDate:     col(FieldShipDate),
		discontinued: col(FieldDiscontinued),
		brand:        col(FieldBrand),
		name:         col(FieldName),
		code:         col(FieldCode),
		header:       header,
	}
	// A later field must not claim a column an earlier, more specific field
	// already took ("eta" inside "retail", "name" inside "colorname").
	claimed := map[int]bool{}
	for _, f := range []*int{&c.style, &c.color, &c.size, &c.stock, &c.price, &c.shipDate, &c.discontinued, &c.brand, &c.code, &c.name} {
		if *f < 0 {
			continue
		}
		if claimed[*f] {
			*f = -1
			continue
		}
		claimed[*f] = true
	}
	return c
}

// findHeaderRow returns the first of the leading rows where the style column
// resolves, preferring one that also has a color column.
func findHeaderRow(m internal.RawMatrix, cfg internal.SourceConfig, scan int, required ...string) int {
	first := -1
	limit := min(scan, len(m))
	for r := 0; r < limit; r++ {
		header := util.RowLower(m[r])
		ok := true
		for _, field := range required {
			if ResolveColumn(cfg.ColumnMapping, header, field, defaultFallbacks[field]) < 0 {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		if ResolveColumn(cfg.ColumnMapping, header, FieldColor, defaultFallbacks[FieldColor]) >= 0 {
			return r
		}
		if first < 0 {
			first = r
		}
	}
	return first
}

func rawRow(header []string, row []any) map[string]string {
	out := make(map[string]string, len(row))
	for i, c := range row {
		text := util.CellText(c)
		if text == "" {
			continue
		}
		key := ""
		if i < len(header) {
			key = header[i]
		}
		if key == "" {
			key = "col" + itoa(i+1)
		}
		out[key] = text
	}
	return out
}

func itoa(i int) string {
	return util.CellText(i)
}
