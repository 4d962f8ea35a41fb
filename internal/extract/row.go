package extract

import (
	"regexp"
	"strings"
	"time"

	"stockimport/internal"
	"stockimport/internal/util"
)

var (
	reTotalRow     = regexp.MustCompile(`(?i)^\s*(sub)?totals?\b`)
	preambleLabels = []string{"ship date", "eta", "delivery", "ship by", "available"}
)

// rowExtractor reads one variant per row. It also serves the invoice
// layout (header further down, totals, a delivery date in the preamble) and
// the multi-brand layout (brand column or brand names inside the product name).
type rowExtractor struct {
	id       internal.FormatID
	scanRows int
	preamble bool
	brands   bool
}

func (e rowExtractor) Format() internal.FormatID { return e.id }

func (e rowExtractor) Extract(m internal.RawMatrix, ctx *Context) []internal.VariantItem {
	headerRow := findHeaderRow(m, ctx.Config, e.scanRows, FieldStyle)
	if headerRow < 0 {
		return nil
	}
	cols := resolveColumns(util.RowLower(m[headerRow]), ctx.Config)

	var cursor rowCursor
	if e.preamble {
		cursor.ShipDate = preambleDate(m[:headerRow])
	}

	out := []internal.VariantItem{}
	for r := headerRow + 1; r < len(m); r++ {
		row := m[r]
		if util.RowIsBlank(row) {
			continue
		}
		if reTotalRow.MatchString(util.CellAt(row, 0)) || reTotalRow.MatchString(util.CellAt(row, cols.style)) {
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

		facts := util.ParseComplexCell(util.Cell(row, cols.stock), ctx.Patterns, ctx.Config.StockText)
		applyFacts(&item, facts)
		if item.ShipDate == nil && cursor.ShipDate != nil {
			d := *cursor.ShipDate
			item.ShipDate = &d
		}
		if e.brands {
			item.Brand = detectBrand(row, cols, ctx.Config.Brands)
		}
		item.RawSourceRow = rawRow(cols.header, row)
		if keep(item, ctx.Now) {
			out = append(out, item)
		}
	}
	return out
}

// baseItem reads the row-level columns every layout may carry.
func baseItem(row []any, cols columns, ctx *Context) internal.VariantItem {
	item := internal.VariantItem{
		Price: util.ParsePrice(util.Cell(row, cols.price)),
	}
	if d, ok := util.ParseDateCell(util.Cell(row, cols.shipDate)); ok {
		item.ShipDate = &d
	}
	if cols.discontinued >= 0 {
		item.Discontinued = isDiscontinued(util.Cell(row, cols.discontinued), cols.header[cols.discontinued], ctx.Config.Discontinued.Values)
	}
	return item
}

func applyFacts(item *internal.VariantItem, facts util.CellFacts) {
	item.Stock = facts.Stock
	if facts.ShipDate != nil {
		item.ShipDate = facts.ShipDate
	}
	if facts.Discontinued {
		item.Discontinued = true
	}
	if facts.SpecialOrder {
		item.SpecialOrder = true
	}
}

var truthy = map[string]bool{"yes": true, "y": true, "x": true, "true": true, "1": true}

// isDiscontinued reads a status cell. In a column whose header says
// discontinued, a plain yes/x also counts.
func isDiscontinued(raw any, header string, values []string) bool {
	text := util.CellLower(raw)
	if text == "" {
		return false
	}
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if text == v || (len(v) >= 4 && strings.Contains(text, v)) {
			return true
		}
	}
	return strings.Contains(header, "discontinued") && truthy[text]
}

// detectBrand prefers an explicit vendor column, then the first configured
// brand name found inside the product name or style cell.
func detectBrand(row []any, cols columns, brands []string) string {
	if v := util.CellAt(row, cols.brand); v != "" {
		return v
	}
	haystacks := []string{util.CellLower(util.Cell(row, cols.name)), util.CellLower(util.Cell(row, cols.style))}
	for _, b := range brands {
		needle := strings.ToLower(strings.TrimSpace(b))
		if needle == "" {
			continue
		}
		for _, h := range haystacks {
			if containsWord(h, needle) {
				return strings.TrimSpace(b)
			}
		}
	}
	return ""
}

// preambleDate looks for "Ship Date: 4/15/2026" style labels above the table.
func preambleDate(rows internal.RawMatrix) *time.Time {
	for _, row := range rows {
		for i, c := range row {
			text := util.CellLower(c)
			if !util.ContainsAny(text, preambleLabels) {
				continue
			}
			if j := strings.Index(text, ":"); j >= 0 {
				if d, ok := util.ParseDate(text[j+1:]); ok {
					return &d
				}
			}
			for k := i + 1; k < len(row); k++ {
				if d, ok := util.ParseDateCell(row[k]); ok {
					return &d
				}
			}
		}
	}
	return nil
}
