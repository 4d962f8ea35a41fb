package extract

import (
	"regexp"
	"sort"
	"strconv"
	"time"

	"stockimport/internal"
	"stockimport/internal/util"
)

var (
	currentStockFallbacks = []string{"now", "immediate", "ats", "available now", "on hand", "qty", "stock", "available"}
	reOTSColumn           = regexp.MustCompile(`(?i)^ots\s*(\d+)$`)
)

type datedColumn struct {
	index int
	date  time.Time
}

// stockTimeline folds one row's dated quantities into a single fact:
// quantities dated today or earlier add to current stock; with no current
// stock the earliest future quantity becomes the item's ship date.
func stockTimeline(row []any, current int, dated []datedColumn, ctx *Context) (int, *time.Time) {
	cutoff := internal.EndOfDay(ctx.Now)
	var earliest *time.Time
	future := 0
	for _, dc := range dated {
		qty := util.NormalizeStock(util.Cell(row, dc.index), ctx.Config.StockText)
		if qty == 0 {
			continue
		}
		if !dc.date.After(cutoff) {
			current += qty
			continue
		}
		if earliest == nil || dc.date.Before(*earliest) {
			d := dc.date
			earliest = &d
			future = qty
		}
	}
	if current > 0 || earliest == nil {
		return current, nil
	}
	return future, earliest
}

// dateHeaderExtractor reads sheets whose column headers are delivery dates,
// given as spreadsheet serials or calendar strings.
type dateHeaderExtractor struct{}

func (dateHeaderExtractor) Format() internal.FormatID { return internal.FormatDateHeaderPivot }

func (dateHeaderExtractor) Extract(m internal.RawMatrix, ctx *Context) []internal.VariantItem {
	headerRow := -1
	var dated []datedColumn
	for r := 0; r < min(headerScanRows, len(m)) && headerRow < 0; r++ {
		var found []datedColumn
		for i, c := range m[r] {
			if d, ok := util.ParseDateCell(c); ok {
				found = append(found, datedColumn{index: i, date: d})
			}
		}
		if len(found) >= 3 {
			headerRow, dated = r, found
		}
	}
	if headerRow < 0 {
		return nil
	}
	header := util.RowLower(m[headerRow])
	cols := resolveColumns(header, ctx.Config)
	if cols.style < 0 {
		return nil
	}
	current := ResolveColumn(ctx.Config.ColumnMapping, header, FieldStock, currentStockFallbacks)
	for _, dc := range dated {
		if dc.index == current {
			current = -1
		}
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
		item.Stock, item.ShipDate = stockTimeline(row, util.NormalizeStock(util.Cell(row, current), ctx.Config.StockText), dated, ctx)
		item.RawSourceRow = rawRow(header, row)
		if keep(item, ctx.Now) {
			out = append(out, item)
		}
	}
	return out
}

// otsExtractor reads open-to-sell sheets: OTS1 is available now, OTS2 and
// later are delivery windows dated by a row next to the header. All rows are
// kept, including zero-stock ones.
type otsExtractor struct{}

func (otsExtractor) Format() internal.FormatID { return internal.FormatOTSPivot }

func (otsExtractor) Extract(m internal.RawMatrix, ctx *Context) []internal.VariantItem {
	headerRow := -1
	type otsColumn struct {
		index, window int
	}
	var windows []otsColumn
	for r := 0; r < min(headerScanRows, len(m)) && headerRow < 0; r++ {
		var found []otsColumn
		for i, c := range m[r] {
			if sm := reOTSColumn.FindStringSubmatch(util.CellText(c)); sm != nil {
				n, _ := strconv.Atoi(sm[1])
				found = append(found, otsColumn{index: i, window: n})
			}
		}
		if len(found) >= 2 {
			headerRow, windows = r, found
		}
	}
	if headerRow < 0 {
		return nil
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].window < windows[j].window })

	header := util.RowLower(m[headerRow])
	cols := resolveColumns(header, ctx.Config)
	if cols.style < 0 {
		return nil
	}

	// Window dates come from the row directly below or above the header.
	dateRow := -1
	for _, r := range []int{headerRow + 1, headerRow - 1} {
		if r < 0 || r >= len(m) {
			continue
		}
		dates := 0
		for _, w := range windows[1:] {
			if _, ok := util.ParseDateCell(util.Cell(m[r], w.index)); ok {
				dates++
			}
		}
		if dates > 0 {
			dateRow = r
			break
		}
	}
	var dated []datedColumn
	if dateRow >= 0 {
		for _, w := range windows[1:] {
			if d, ok := util.ParseDateCell(util.Cell(m[dateRow], w.index)); ok {
				dated = append(dated, datedColumn{index: w.index, date: d})
			}
		}
	} else {
		ctx.Report.Warn("ots: no window dates found, only %s is read", header[windows[0].index])
	}

	var cursor rowCursor
	out := []internal.VariantItem{}
	for r := headerRow + 1; r < len(m); r++ {
		if r == dateRow {
			continue
		}
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
		now := util.NormalizeStock(util.Cell(row, windows[0].index), ctx.Config.StockText)
		item.Stock, item.ShipDate = stockTimeline(row, now, dated, ctx)
		item.RawSourceRow = rawRow(header, row)
		out = append(out, item)
	}
	return out
}
