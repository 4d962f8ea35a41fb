package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockimport/internal"
)

func TestNormalizeStock(t *testing.T) {
	custom := internal.StockTextMapping{Entries: []internal.StockTextEntry{{Text: "Plenty", Value: 25}}}
	cases := []struct {
		name string
		raw  any
		want int
	}{
		{"nil", nil, 0},
		{"float floored", 3.9, 3},
		{"negative float clamped", -2.0, 0},
		{"int", 7, 7},
		{"yes", "Yes", 1},
		{"y", " y ", 1},
		{"no", "NO", 0},
		{"last piece", "Last Piece", 1},
		{"sold out", "Sold Out", 0},
		{"dash", "-", 0},
		{"em dash", "—", 0},
		{"n/a", "N/A", 0},
		{"custom mapping", "plenty", 25},
		{"plus suffix", "10+", 10},
		{"thousands comma", "1,200", 1200},
		{"thousands dot", "1.200", 1200},
		{"thousands space", "1 200", 1200},
		{"decimal comma", "2,5", 2},
		{"negative text", "-5", 0},
		{"garbage", "call us", 0},
		{"empty", "   ", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeStock(tc.raw, custom))
		})
	}
}

func TestNormalizeStockObjectMapping(t *testing.T) {
	m := internal.StockTextMapping{Lookup: map[string]int{"Coming Soon": 0, "Many": 50}}
	assert.Equal(t, 50, NormalizeStock("many", m))
	assert.Equal(t, 0, NormalizeStock("coming soon", m))
}

func TestBuiltInTableWinsOverMapping(t *testing.T) {
	m := internal.StockTextMapping{Lookup: map[string]int{"yes": 9}}
	assert.Equal(t, 1, NormalizeStock("yes", m))
}

func TestParseComplexCell(t *testing.T) {
	patterns, errs := CompilePatterns(DefaultCellPatterns)
	require.Empty(t, errs)

	facts := ParseComplexCell("D", patterns, internal.StockTextMapping{})
	assert.True(t, facts.Matched)
	assert.Equal(t, 1, facts.Stock)
	assert.Nil(t, facts.ShipDate)

	facts = ParseComplexCell("3 @ 3/15/2026", patterns, internal.StockTextMapping{})
	require.True(t, facts.Matched)
	assert.Equal(t, 3, facts.Stock)
	require.NotNil(t, facts.ShipDate)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), *facts.ShipDate)

	facts = ParseComplexCell("Disc", patterns, internal.StockTextMapping{})
	assert.True(t, facts.Discontinued)
	assert.Equal(t, "discontinued", facts.Pattern)

	facts = ParseComplexCell("S/O", patterns, internal.StockTextMapping{})
	assert.True(t, facts.SpecialOrder)

	facts = ParseComplexCell("12", patterns, internal.StockTextMapping{})
	assert.False(t, facts.Matched)
	assert.Equal(t, 12, facts.Stock)
}

func TestCompilePatternsReportsInvalid(t *testing.T) {
	patterns, errs := CompilePatterns([]internal.CellPattern{
		{Name: "bad", Match: "(["},
		{Name: "ok", Match: "^x$", Stock: internal.IntPtr(4)},
	})
	require.Len(t, errs, 1)
	require.Len(t, patterns, 1)
	assert.Equal(t, 4, ParseComplexCell("X", patterns, internal.StockTextMapping{}).Stock)
}

func TestParseDate(t *testing.T) {
	d, ok := ParseDate("45000")
	require.True(t, ok)
	assert.Equal(t, time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), d)

	d, ok = ParseDate("2026-04-01")
	require.True(t, ok)
	assert.Equal(t, 2026, d.Year())

	d, ok = ParseDate("4/1/26")
	require.True(t, ok)
	assert.Equal(t, time.April, d.Month())

	_, ok = ParseDate("12")
	assert.False(t, ok)

	d, ok = ParseDateCell(45000.0)
	require.True(t, ok)
	assert.Equal(t, 15, d.Day())
}

func TestParsePrice(t *testing.T) {
	cases := map[any]string{
		"$1,234.50": "1234.5",
		"1.234,50":   "1234.5",
		"12,5":       "12.5",
		"1,200":      "1200",
		48.0:         "48",
		"USD 99":     "99",
	}
	for in, want := range cases {
		got := ParsePrice(in)
		require.NotNil(t, got, in)
		assert.Equal(t, want, got.String(), in)
	}
	assert.Nil(t, ParsePrice("call"))
	assert.Nil(t, ParsePrice(0.0))
	assert.Nil(t, ParsePrice(nil))
}
