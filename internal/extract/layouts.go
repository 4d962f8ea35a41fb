package extract

import (
	"strings"

	"stockimport/internal"
	"stockimport/internal/util"
)

var (
	quotaFallbacks     = []string{"quota", "allocation", "allocated", "allotment"}
	usedFallbacks      = []string{"used", "ordered", "sold", "booked", "consumed"}
	remainingFallbacks = []string{"remaining", "balance", "open", "left"}
)

// quotaExtractor reads allocation sheets where the sellable quantity is the
// remaining quota: an explicit remaining column, or quota minus used.
type quotaExtractor struct{}

func (quotaExtractor) Format() internal.FormatID { return internal.FormatQuota }

func (quotaExtractor) Extract(m internal.RawMatrix, ctx *Context) []internal.VariantItem {
	headerRow := findHeaderRow(m, ctx.Config, headerScanRows, FieldStyle)
	if headerRow < 0 {
		return nil
	}
	header := util.RowLower(m[headerRow])
	cols := resolveColumns(header, ctx.Config)
	quota := ResolveColumn(nil, header, "quota", quotaFallbacks)
	used := ResolveColumn(nil, header, "used", usedFallbacks)
	remaining := ResolveColumn(ctx.Config.ColumnMapping, header, "remaining", remainingFallbacks)
	if quota < 0 && remaining < 0 && cols.stock < 0 {
		ctx.Report.Warn("quota: no quota, remaining or stock column")
		return nil
	}

	var cursor rowCursor
	out := []internal.VariantItem{}
	for r := headerRow + 1; r < len(m); r++ {
		row := m[r]
		if util.RowIsBlank(row) || reTotalRow.MatchString(util.CellAt(row, 0)) {
			continue
		}
		style, color := cursor.Advance(util.CellAt(row, cols.style), util.CellAt(row, cols.color))
		if style == "" {
			ctx.Report.Skip(r, "no style")
			continue
		}
		item := baseItem(row, cols, ctx)
		item.Style = style
		item.Color = color
		item.Size = util.NormalizeSize(util.CellAt(row, cols.size))
		stock := func(col int) int { return util.NormalizeStock(util.Cell(row, col), ctx.Config.StockText) }
		switch {
		case remaining >= 0:
			item.Stock = stock(remaining)
		case quota >= 0:
			item.Stock = max(stock(quota)-stock(used), 0)
		default:
			item.Stock = stock(cols.stock)
		}
		item.RawSourceRow = rawRow(header, row)
		if keep(item, ctx.Now) {
			out = append(out, item)
		}
	}
	return out
}

// compositeExtractor splits a product code such as "A100-RED-4" into style,
// color and size. Explicit color or size columns win over the split parts.
type compositeExtractor struct{}

func (compositeExtractor) Format() internal.FormatID { return internal.FormatCompositeCode }

func (compositeExtractor) Extract(m internal.RawMatrix, ctx *Context) []internal.VariantItem {
	headerRow := findHeaderRow(m, ctx.Config, headerScanRows, FieldCode)
	if headerRow < 0 {
		headerRow = findHeaderRow(m, ctx.Config, headerScanRows, FieldStyle)
	}
	if headerRow < 0 {
		return nil
	}
	header := util.RowLower(m[headerRow])
	cols := resolveColumns(header, ctx.Config)
	codeCol := cols.code
	if codeCol < 0 {
		codeCol = cols.style
	}
	if codeCol < 0 {
		return nil
	}
	delim := ctx.Config.CompositeDelimiter
	if delim == "" {
		delim = "-"
	}

	out := []internal.VariantItem{}
	for r := headerRow + 1; r < len(m); r++ {
		row := m[r]
		if util.RowIsBlank(row) || reTotalRow.MatchString(util.CellAt(row, 0)) {
			continue
		}
		style, color, size := splitComposite(util.CellAt(row, codeCol), delim, ctx.Sizes)
		if style == "" {
			ctx.Report.Skip(r, "empty product code")
			continue
		}
		if v := util.CellAt(row, cols.color); v != "" && cols.color != codeCol {
			color = v
		}
		if v := util.CellAt(row, cols.size); v != "" && cols.size != codeCol {
			size = v
		}
		item := baseItem(row, cols, ctx)
		item.Style = style
		item.Color = color
		item.Size = util.NormalizeSize(size)
		applyFacts(&item, util.ParseComplexCell(util.Cell(row, cols.stock), ctx.Patterns, ctx.Config.StockText))
		item.RawSourceRow = rawRow(header, row)
		if keep(item, ctx.Now) {
			out = append(out, item)
		}
	}
	return out
}

// splitComposite takes the last part as size and the one before as color;
// whatever precedes them is the style, which may itself contain the
// delimiter. Two parts are style and size when the second looks like a size,
// otherwise style and color.
func splitComposite(code, delim string, sizes *util.SizeMatcher) (style, color, size string) {
	parts := strings.Split(code, delim)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch n := len(parts); {
	case n >= 3:
		return strings.Join(parts[:n-2], delim), parts[n-2], parts[n-1]
	case n == 2:
		if sizes.IsSize(parts[1]) {
			return parts[0], "", parts[1]
		}
		return parts[0], parts[1], ""
	}
	return strings.TrimSpace(code), "", ""
}

// sectionedExtractor reads tables without a style column where a single-cell
// row names the style of the rows below it.
type sectionedExtractor struct{}

func (sectionedExtractor) Format() internal.FormatID { return internal.FormatSectionedRow }

func (sectionedExtractor) Extract(m internal.RawMatrix, ctx *Context) []internal.VariantItem {
	headerRow := findHeaderRow(m, ctx.Config, headerScanRows, FieldColor)
	if headerRow < 0 {
		return nil
	}
	header := util.RowLower(m[headerRow])
	cols := resolveColumns(header, ctx.Config)

	var cursor rowCursor
	out := []internal.VariantItem{}
	for r := headerRow + 1; r < len(m); r++ {
		row := m[r]
		if util.RowIsBlank(row) || reTotalRow.MatchString(util.CellAt(row, 0)) {
			continue
		}
		if label, ok := sectionLabel(row); ok {
			cursor.Section(label)
			continue
		}
		style, color := cursor.Advance(util.CellAt(row, cols.style), util.CellAt(row, cols.color))
		if style == "" {
			ctx.Report.Skip(r, "row before the first section")
			continue
		}
		item := baseItem(row, cols, ctx)
		item.Style = style
		item.Color = color
		item.Size = util.NormalizeSize(util.CellAt(row, cols.size))
		applyFacts(&item, util.ParseComplexCell(util.Cell(row, cols.stock), ctx.Patterns, ctx.Config.StockText))
		item.RawSourceRow = rawRow(header, row)
		if keep(item, ctx.Now) {
			out = append(out, item)
		}
	}
	return out
}

func sectionLabel(row []any) (string, bool) {
	label := ""
	filled := 0
	for i, c := range row {
		text := util.CellText(c)
		if text == "" {
			continue
		}
		filled++
		if i == 0 {
			label = text
		}
	}
	return label, filled == 1 && label != ""
}
