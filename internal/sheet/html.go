package sheet

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"stockimport/internal"
)

// ReadHTML reads the largest table of an html document. Cells spanning
// several columns are repeated so header positions line up with data rows.
func ReadHTML(content []byte) (internal.RawMatrix, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var best internal.RawMatrix
	bestCells := -1
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		m := internal.RawMatrix{}
		cells := 0
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			if tr.Closest("table").Get(0) != table.Get(0) {
				return
			}
			texts := []string{}
			tr.ChildrenFiltered("th,td").Each(func(_ int, cell *goquery.Selection) {
				span := 1
				if v, ok := cell.Attr("colspan"); ok {
					fmt.Sscanf(v, "%d", &span)
				}
				if span < 1 || span > 50 {
					span = 1
				}
				for i := 0; i < span; i++ {
					texts = append(texts, cell.Text())
				}
			})
			row := toRow(texts)
			cells += len(row)
			m = append(m, row)
		})
		if cells > bestCells {
			best, bestCells = m, cells
		}
	})
	if best == nil {
		return internal.RawMatrix{}, nil
	}
	return trimTrailingBlankRows(best), nil
}
