package sheet

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"stockimport/internal"
)

// ReadXLSX reads the densest sheet of a workbook. Raw cell values are used so
// date-formatted headers arrive as serial numbers.
func ReadXLSX(content []byte) (internal.RawMatrix, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	var best internal.RawMatrix
	bestFilled := -1
	for _, sh := range f.GetSheetList() {
		rows, err := f.GetRows(sh, excelize.Options{RawCellValue: true})
		if err != nil || len(rows) == 0 {
			continue
		}
		m := make(internal.RawMatrix, 0, len(rows))
		filled := 0
		for _, r := range rows {
			row := toRow(r)
			for _, c := range row {
				if c != nil {
					filled++
				}
			}
			m = append(m, row)
		}
		if filled > bestFilled {
			best, bestFilled = m, filled
		}
	}
	if best == nil {
		return internal.RawMatrix{}, nil
	}
	return trimTrailingBlankRows(best), nil
}
