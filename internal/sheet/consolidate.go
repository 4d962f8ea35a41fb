package sheet

import (
	"strings"

	"stockimport/internal"
	"stockimport/internal/util"
)

// Consolidate joins several files of one logical import into a single
// matrix. Later files drop leading blank rows and any row repeating the
// first file's header.
func Consolidate(matrices []internal.RawMatrix) internal.RawMatrix {
	if len(matrices) == 0 {
		return internal.RawMatrix{}
	}
	if len(matrices) == 1 {
		return matrices[0]
	}

	out := internal.RawMatrix{}
	header := ""
	for i, m := range matrices {
		rows := m
		for len(rows) > 0 && util.RowIsBlank(rows[0]) {
			rows = rows[1:]
		}
		if len(rows) == 0 {
			continue
		}
		if header == "" {
			header = rowSignature(rows[0])
		}
		if i > 0 && len(out) > 0 {
			for len(rows) > 0 && rowSignature(rows[0]) == header {
				rows = rows[1:]
			}
		}
		out = append(out, rows...)
	}
	return out
}

func rowSignature(row []any) string {
	return strings.Join(util.RowLower(row), "\x1f")
}
