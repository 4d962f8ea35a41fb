package sheet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"stockimport/internal"
)

func mkXLSX(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	buf := bytes.NewBuffer(nil)
	_, err := f.WriteTo(buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadXLSX(t *testing.T) {
	blob := mkXLSX(t, [][]any{
		{"Style", "Color", "00", "0", "2"},
		{"ABC123", "Red", 0, "Yes", 3},
	})
	m, err := Read("stock.xlsx", blob)
	require.NoError(t, err)
	require.Len(t, m, 2)
	assert.Equal(t, "00", m[0][2])
	assert.Equal(t, 0.0, m[1][2])
	assert.Equal(t, "Yes", m[1][3])
	assert.Equal(t, 3.0, m[1][4])
}

func TestReadCSV(t *testing.T) {
	content := []byte("\xEF\xBB\xBFStyle,Color,Size,Qty\nA1,Red,02,5\n\n")
	m, err := Read("stock.csv", content)
	require.NoError(t, err)
	require.Len(t, m, 2)
	assert.Equal(t, "Style", m[0][0])
	assert.Equal(t, "02", m[1][2])
	assert.Equal(t, 5.0, m[1][3])
}

func TestReadTxtSniffsDelimiter(t *testing.T) {
	m, err := Read("stock.txt", []byte("Style;Color;Qty\nA1;Red;4\n"))
	require.NoError(t, err)
	require.Len(t, m, 2)
	assert.Len(t, m[0], 3)
}

func TestReadHTMLDisguisedXLS(t *testing.T) {
	html := []byte(`<html><body>
<table><tr><td>logo</td></tr></table>
<table>
<tr><th>Style</th><th colspan="2">Sizes</th></tr>
<tr><td>A1</td><td>4</td><td>6</td></tr>
<tr><td>A2</td><td>1</td><td>0</td></tr>
</table></body></html>`)
	m, err := Read("export.xls", html)
	require.NoError(t, err)
	require.Len(t, m, 3)
	assert.Equal(t, []any{"Style", "Sizes", "Sizes"}, m[0])
	assert.Equal(t, []any{"A1", 4.0, 6.0}, m[1])
}

func TestReadUnsupported(t *testing.T) {
	_, err := Read("stock.xls", []byte{0xD0, 0xCF, 0x11, 0xE0})
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestConsolidate(t *testing.T) {
	a := internal.RawMatrix{{"Style", "Qty"}, {"A1", 1.0}}
	b := internal.RawMatrix{{}, {"style", "qty"}, {"B1", 2.0}}
	m := Consolidate([]internal.RawMatrix{a, b})
	assert.Equal(t, internal.RawMatrix{{"Style", "Qty"}, {"A1", 1.0}, {"B1", 2.0}}, m)
}
