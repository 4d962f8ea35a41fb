package sheet

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"stockimport/internal"
)

// ReadPDF rebuilds table rows from positioned text: a horizontal gap wider
// than the font size starts a new cell.
func ReadPDF(content []byte) (internal.RawMatrix, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	m := internal.RawMatrix{}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			cells := splitPDFRow(row.Content)
			if len(cells) == 0 {
				continue
			}
			m = append(m, toRow(cells))
		}
	}
	return trimTrailingBlankRows(m), nil
}

func splitPDFRow(texts []pdf.Text) []string {
	if len(texts) == 0 {
		return nil
	}
	sorted := append([]pdf.Text(nil), texts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var cells []string
	var cur strings.Builder
	end := math.Inf(-1)
	for _, t := range sorted {
		size := t.FontSize
		if size <= 0 {
			size = 10
		}
		gap := t.X - end
		switch {
		case cur.Len() > 0 && gap > size*0.8:
			cells = append(cells, cur.String())
			cur.Reset()
		case cur.Len() > 0 && gap > size*0.15:
			cur.WriteByte(' ')
		}
		cur.WriteString(t.S)
		end = t.X + t.W
	}
	if cur.Len() > 0 {
		cells = append(cells, cur.String())
	}
	return cells
}
