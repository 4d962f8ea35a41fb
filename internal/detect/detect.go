package detect

import (
	"fmt"
	"regexp"
	"strings"

	"stockimport/internal"
	"stockimport/internal/util"
)

// Vendors whose sheets share a shape with other vendors get pinned by name.
var vendorTokens = []internal.VendorToken{
	{Token: "MAREA", Format: internal.FormatGroupedPivot},
	{Token: "VELA", Format: internal.FormatDateHeaderPivot},
	{Token: "KASSIA", Format: internal.FormatAlternatingPivot},
	{Token: "ORCHID", Format: internal.FormatQuota},
	{Token: "LUMEN", Format: internal.FormatPatternPivot},
	{Token: "BRIDGEWAY", Format: internal.FormatMultiBrandRow},
	{Token: "NORTHWIND", Format: internal.FormatCompositeCode},
}

var (
	invoiceMarkers = []string{"invoice", "stock report", "inventory report", "packing list", "availability report"}
	quotaMarkers   = []string{"quota", "allocation"}
	otsMarkers     = []string{"open to sell", "open-to-sell"}

	styleHeaders = []string{"style", "style #", "style no", "style number", "item", "model"}
	colorHeaders = []string{"color", "colour", "clr"}
	sizeHeaders  = []string{"size", "sz"}
	brandHeaders = []string{"vendor", "brand", "designer", "label"}
	codeHeaders  = []string{"item code", "product code", "item #", "sku", "code", "upc"}

	reOTS = regexp.MustCompile(`(?i)^ots\s*\d+$`)
)

const headerScanRows = 5

// Resolve honours a configured format before falling back to Detect.
func Resolve(m internal.RawMatrix, cfg internal.SourceConfig, sourceName, fileName string) internal.FormatIdentity {
	if cfg.FormatOverride != "" && cfg.FormatOverride.Valid() {
		return internal.FormatIdentity{
			ID:         cfg.FormatOverride,
			Provenance: internal.ProvenanceConfigured,
			Reason:     "format set on data source",
		}
	}
	return Detect(m, sourceName, fileName, cfg.VendorTokens)
}

// Detect classifies a matrix. Name tokens win over content markers, which win
// over header shape; nothing matching yields the row format.
func Detect(m internal.RawMatrix, sourceName, fileName string, extra []internal.VendorToken) internal.FormatIdentity {
	if id, ok := byName(sourceName, fileName, extra); ok {
		return id
	}
	if id, ok := byContent(m); ok {
		return id
	}
	if id, ok := byHeader(m); ok {
		return id
	}
	return internal.FormatIdentity{ID: internal.FormatRow, Provenance: internal.ProvenanceFallback, Reason: "no signature matched"}
}

func byName(sourceName, fileName string, extra []internal.VendorToken) (internal.FormatIdentity, bool) {
	combined := strings.ToUpper(sourceName + " " + fileName)
	tokens := append(append([]internal.VendorToken{}, extra...), vendorTokens...)
	for _, t := range tokens {
		token := strings.ToUpper(strings.TrimSpace(t.Token))
		if token == "" || !t.Format.Valid() {
			continue
		}
		if strings.Contains(combined, token) {
			return internal.FormatIdentity{
				ID:         t.Format,
				Provenance: internal.ProvenanceName,
				Reason:     fmt.Sprintf("name token %q", token),
			}, true
		}
	}
	return internal.FormatIdentity{}, false
}

func byContent(m internal.RawMatrix) (internal.FormatIdentity, bool) {
	if len(m) == 0 {
		return internal.FormatIdentity{}, false
	}
	first := strings.Join(util.RowLower(m[0]), " ")
	checks := []struct {
		markers []string
		id      internal.FormatID
	}{
		{invoiceMarkers, internal.FormatInvoice},
		{quotaMarkers, internal.FormatQuota},
		{otsMarkers, internal.FormatOTSPivot},
	}
	for _, c := range checks {
		for _, marker := range c.markers {
			if strings.Contains(first, marker) {
				return internal.FormatIdentity{
					ID:         c.id,
					Provenance: internal.ProvenanceContent,
					Reason:     fmt.Sprintf("first row mentions %q", marker),
				}, true
			}
		}
	}
	return internal.FormatIdentity{}, false
}

func byHeader(m internal.RawMatrix) (internal.FormatIdentity, bool) {
	found := func(id internal.FormatID, reason string) (internal.FormatIdentity, bool) {
		return internal.FormatIdentity{ID: id, Provenance: internal.ProvenanceHeader, Reason: reason}, true
	}
	sizes, _ := util.NewSizeMatcher(nil)

	limit := min(headerScanRows, len(m))
	for r := 0; r < limit; r++ {
		if n := countMatching(m[r], func(c any) bool { return reOTS.MatchString(util.CellText(c)) }); n >= 2 {
			return found(internal.FormatOTSPivot, fmt.Sprintf("row %d has %d OTS columns", r, n))
		}
	}
	for r := 0; r < limit; r++ {
		if n := countDateHeaders(m[r]); n >= 3 {
			return found(internal.FormatDateHeaderPivot, fmt.Sprintf("row %d has %d date headers", r, n))
		}
	}
	for r := 0; r < limit; r++ {
		h := util.RowLower(m[r])
		if hasHeader(h, brandHeaders) && hasHeader(h, styleHeaders) && hasHeader(h, colorHeaders) && hasHeader(h, sizeHeaders) {
			return found(internal.FormatMultiBrandRow, fmt.Sprintf("row %d has vendor, style, color and size columns", r))
		}
	}
	for r := 0; r < limit; r++ {
		h := util.RowLower(m[r])
		if hasHeader(h, colorHeaders) || hasHeader(h, sizeHeaders) {
			continue
		}
		if col := headerIndex(h, codeHeaders); col >= 0 && compositeColumn(m, r, col) {
			return found(internal.FormatCompositeCode, fmt.Sprintf("column %q holds composite codes", h[col]))
		}
	}
	for r := 0; r < limit; r++ {
		h := util.RowLower(m[r])
		if hasHeader(h, styleHeaders) || !hasHeader(h, colorHeaders) {
			continue
		}
		if sectionRows(m, r) >= 2 {
			return found(internal.FormatSectionedRow, fmt.Sprintf("row %d header without style column and section rows below", r))
		}
	}

	sizeRow := -1
	for r := 0; r < limit; r++ {
		if sizes.IsHeaderRow(m[r]) {
			sizeRow = r
			break
		}
	}
	if sizeRow < 0 {
		return internal.FormatIdentity{}, false
	}
	if n := countSizeRows(m, sizes); n >= 3 {
		return found(internal.FormatAlternatingPivot, fmt.Sprintf("%d size header rows", n))
	}
	cols := sizeColumns(m[sizeRow], sizes)
	if groupedLayout(m, sizeRow, cols) {
		return found(internal.FormatGroupedPivot, "style rows without quantities above color rows")
	}
	if patternCells(m, sizeRow, cols) {
		return found(internal.FormatPatternPivot, "availability codes under size columns")
	}
	return found(internal.FormatPivot, fmt.Sprintf("row %d has %d size columns", sizeRow, len(cols)))
}

func countMatching(row []any, fn func(any) bool) int {
	n := 0
	for _, c := range row {
		if fn(c) {
			n++
		}
	}
	return n
}

func countDateHeaders(row []any) int {
	return countMatching(row, func(c any) bool {
		_, ok := util.ParseDateCell(c)
		return ok
	})
}

func hasHeader(header []string, probes []string) bool {
	return headerIndex(header, probes) >= 0
}

// headerIndex prefers exact matches over containment.
func headerIndex(header []string, probes []string) int {
	for _, p := range probes {
		for i, h := range header {
			if h == p {
				return i
			}
		}
	}
	for _, p := range probes {
		if len(p) < 4 {
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

func compositeColumn(m internal.RawMatrix, headerRow, col int) bool {
	seen, composite := 0, 0
	for r := headerRow + 1; r < len(m) && seen < 10; r++ {
		v := util.CellAt(m[r], col)
		if v == "" {
			continue
		}
		seen++
		if len(strings.Split(v, "-")) >= 3 {
			composite++
		}
	}
	return seen > 0 && composite*10 >= seen*6
}

func sectionRows(m internal.RawMatrix, headerRow int) int {
	n := 0
	for r := headerRow + 1; r < len(m) && r <= headerRow+40; r++ {
		filled := 0
		for _, c := range m[r] {
			if util.CellText(c) != "" {
				filled++
			}
		}
		if filled == 1 && util.CellAt(m[r], 0) != "" {
			n++
		}
	}
	return n
}

func countSizeRows(m internal.RawMatrix, sizes *util.SizeMatcher) int {
	n := 0
	for r := 0; r < len(m) && r < 200; r++ {
		if sizes.IsHeaderRow(m[r]) {
			n++
		}
	}
	return n
}

func sizeColumns(header []any, sizes *util.SizeMatcher) []int {
	var cols []int
	for i, c := range header {
		if sizes.IsSize(c) {
			cols = append(cols, i)
		}
	}
	return cols
}

func groupedLayout(m internal.RawMatrix, headerRow int, cols []int) bool {
	styleOnly, colorOnly := 0, 0
	for r := headerRow + 1; r < len(m) && r <= headerRow+40; r++ {
		row := m[r]
		if util.RowIsBlank(row) {
			continue
		}
		qty := false
		for _, c := range cols {
			if util.CellAt(row, c) != "" {
				qty = true
				break
			}
		}
		first := util.CellAt(row, 0)
		switch {
		case first != "" && !qty:
			styleOnly++
		case first == "" && qty:
			colorOnly++
		}
	}
	return styleOnly >= 2 && colorOnly >= 2
}

var defaultPatterns, _ = util.CompilePatterns(util.DefaultCellPatterns)

func patternCells(m internal.RawMatrix, headerRow int, cols []int) bool {
	filled, coded := 0, 0
	for r := headerRow + 1; r < len(m) && r <= headerRow+40; r++ {
		for _, c := range cols {
			v := util.Cell(m[r], c)
			if util.CellText(v) == "" {
				continue
			}
			filled++
			if util.ParseComplexCell(v, defaultPatterns, internal.StockTextMapping{}).Matched {
				coded++
			}
		}
	}
	return coded >= 2 && coded*4 >= filled
}
