package extract

import (
	"stockimport/internal"
	"stockimport/internal/util"
)

// pivotExtractor reads sheets with sizes as column headers. The flags cover
// the vendor variants of the layout:
//   - retainZero keeps zero-stock cells so size expansion has a base row
//   - styleRows reads a style from rows that carry no quantities (grouped)
//   - reheader lets repeated size rows redefine the size columns (alternating)
//   - codes parses availability codes in the cells (pattern)
type pivotExtractor struct {
	id         internal.FormatID
	retainZero bool
	styleRows  bool
	reheader   bool
	codes      bool
}

type sizeColumn struct {
	index int
	size  string
}

type pivotHeader struct {
	cols  columns
	sizes []sizeColumn
}

func (e pivotExtractor) Format() internal.FormatID { return e.id }

func readPivotHeader(row []any, ctx *Context) pivotHeader {
	cols := resolveColumns(util.RowLower(row), ctx.Config)
	h := pivotHeader{cols: cols}
	for i, c := range row {
		if i == cols.style || i == cols.color || i == cols.size {
			continue
		}
		if ctx.Sizes.IsSize(c) {
			h.sizes = append(h.sizes, sizeColumn{index: i, size: util.NormalizeSize(util.CellText(c))})
		}
	}
	for _, s := range h.sizes {
		if s.index == h.cols.stock {
			h.cols.stock = -1
		}
	}
	return h
}

func (e pivotExtractor) Extract(m internal.RawMatrix, ctx *Context) []internal.VariantItem {
	headerRow := -1
	for r := 0; r < min(headerScanRows, len(m)); r++ {
		if ctx.Sizes.IsHeaderRow(m[r]) {
			headerRow = r
			break
		}
	}
	if headerRow < 0 {
		return nil
	}
	h := readPivotHeader(m[headerRow], ctx)
	if h.cols.style < 0 || len(h.sizes) == 0 {
		ctx.Report.Warn("%s: no style column in header row %d", e.id, headerRow+1)
		return nil
	}

	patterns := ctx.Patterns
	if e.codes {
		patterns = ctx.patternsOrDefault()
	}

	var cursor rowCursor
	out := []internal.VariantItem{}
	for r := headerRow + 1; r < len(m); r++ {
		row := m[r]
		if util.RowIsBlank(row) {
			continue
		}
		if ctx.Sizes.IsHeaderRow(row) {
			if e.reheader {
				next := readPivotHeader(row, ctx)
				if next.cols.style < 0 {
					next.cols.style = h.cols.style
				}
				if next.cols.color < 0 {
					next.cols.color = h.cols.color
				}
				h = next
				// A block header may name its style in place of the label.
				if style := util.CellAt(row, h.cols.style); style != "" && !isHeaderWord(style) {
					cursor.Advance(style, labelOrEmpty(util.CellAt(row, h.cols.color)))
				}
			}
			continue
		}
		if reTotalRow.MatchString(util.CellAt(row, 0)) {
			continue
		}

		styleCell := util.CellAt(row, h.cols.style)
		colorCell := util.CellAt(row, h.cols.color)
		hasQty := false
		for _, s := range h.sizes {
			if util.CellText(util.Cell(row, s.index)) != "" {
				hasQty = true
				break
			}
		}
		if !hasQty {
			if e.styleRows && styleCell != "" {
				cursor.Section(styleCell)
				if colorCell != "" {
					cursor.Advance("", colorCell)
				}
			}
			continue
		}

		style, color := cursor.Advance(styleCell, colorCell)
		if style == "" {
			ctx.Report.Skip(r, "no style")
			continue
		}
		base := baseItem(row, h.cols, ctx)
		base.Style = style
		base.Color = color
		base.RawSourceRow = rawRow(h.cols.header, row)

		for _, s := range h.sizes {
			raw := util.Cell(row, s.index)
			if util.CellText(raw) == "" {
				continue
			}
			item := base
			item.Size = s.size
			applyFacts(&item, util.ParseComplexCell(raw, patterns, ctx.Config.StockText))
			if e.retainZero || keep(item, ctx.Now) {
				out = append(out, item)
			}
		}
	}
	return out
}

func isHeaderWord(s string) bool {
	lower := []string{util.CellLower(s)}
	for _, field := range []string{FieldStyle, FieldColor, FieldSize} {
		if resolve(nil, lower, field, defaultFallbacks[field], false) == 0 {
			return true
		}
	}
	return false
}

func labelOrEmpty(s string) string {
	if isHeaderWord(s) {
		return ""
	}
	return s
}
