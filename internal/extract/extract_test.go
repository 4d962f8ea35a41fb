package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockimport/internal"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestContext(cfg internal.SourceConfig) *Context {
	return NewContext(internal.MergeConfig(internal.DefaultSourceConfig(), cfg, internal.SourceConfig{}), "Test Source", testNow)
}

type triple struct {
	Style, Color, Size string
	Stock              int
}

func triples(items []internal.VariantItem) []triple {
	out := make([]triple, 0, len(items))
	for _, it := range items {
		out = append(out, triple{it.Style, it.Color, it.Size, it.Stock})
	}
	return out
}

func TestResolveColumnMappingWins(t *testing.T) {
	header := []string{"style", "wholesale", "msrp"}
	mapping := internal.ColumnMapping{"price": "MSRP"}
	assert.Equal(t, 2, ResolveColumn(mapping, header, FieldPrice, Fallbacks(FieldPrice)))
	assert.Equal(t, 1, ResolveColumn(nil, header, FieldPrice, Fallbacks(FieldPrice)))
}

func TestResolveColumn(t *testing.T) {
	header := []string{"style #", "color name", "qty available", "status"}
	assert.Equal(t, 0, ResolveColumn(nil, header, FieldStyle, Fallbacks(FieldStyle)))
	assert.Equal(t, 1, ResolveColumn(nil, header, FieldColor, Fallbacks(FieldColor)))
	assert.Equal(t, 2, ResolveColumn(nil, header, FieldStock, Fallbacks(FieldStock)))
	assert.Equal(t, -1, ResolveColumn(nil, header, FieldSize, Fallbacks(FieldSize)))
	// a mapping to a missing header falls back to the patterns
	assert.Equal(t, 0, ResolveColumn(internal.ColumnMapping{"style": "Article"}, header, FieldStyle, Fallbacks(FieldStyle)))
}

// Zero-stock size cells are dropped unless the layout retains zeros, and
// "00" is no exception.
func TestPivotScenarioDropsZeroStockSizes(t *testing.T) {
	m := internal.RawMatrix{
		{"Style", "Color", "00", "0", "2", "4"},
		{"ABC123", "Red", "0", "Yes", "3", "0"},
	}
	items := For(internal.FormatPivot).Extract(m, newTestContext(internal.SourceConfig{}))
	assert.Equal(t, []triple{
		{"ABC123", "Red", "0", 1},
		{"ABC123", "Red", "2", 3},
	}, triples(items))
}

func TestResolveColumnRunTogetherHeaders(t *testing.T) {
	header := []string{"styleno", "colorname", "size", "qtyavail"}
	assert.Equal(t, 0, ResolveColumn(nil, header, FieldStyle, Fallbacks(FieldStyle)))
	assert.Equal(t, 1, ResolveColumn(nil, header, FieldColor, Fallbacks(FieldColor)))
	assert.Equal(t, 2, ResolveColumn(nil, header, FieldSize, Fallbacks(FieldSize)))
	assert.Equal(t, 3, ResolveColumn(nil, header, FieldStock, Fallbacks(FieldStock)))

	cols := resolveColumns(header, internal.DefaultSourceConfig())
	assert.Equal(t, -1, cols.name, "name must not take the color column")

	cols = resolveColumns([]string{"style", "color", "size", "qty", "retail"}, internal.DefaultSourceConfig())
	assert.Equal(t, 4, cols.price)
	assert.Equal(t, -1, cols.shipDate)
}

func TestCascadeReadsRunTogetherHeaders(t *testing.T) {
	m := internal.RawMatrix{
		{"StyleNo", "ColorName", "Size", "QtyAvail"},
		{"A100", "Red", "4", 3.0},
	}
	items, used := Cascade(m, internal.FormatRow, newTestContext(internal.SourceConfig{}))
	assert.Equal(t, internal.FormatRow, used)
	assert.Equal(t, []triple{{"A100", "Red", "4", 3}}, triples(items))
}

func TestPivotCarriesStyle(t *testing.T) {
	m := internal.RawMatrix{
		{"Style", "Color", "Wholesale", "S", "M", "L"},
		{"A1", "Red", "$40.00", 1.0, 0.0, 2.0},
		{nil, "Blue", nil, 0.0, 5.0, nil},
	}
	items := For(internal.FormatPivot).Extract(m, newTestContext(internal.SourceConfig{}))
	assert.Equal(t, []triple{
		{"A1", "Red", "S", 1},
		{"A1", "Red", "L", 2},
		{"A1", "Blue", "M", 5},
	}, triples(items))
	require.NotNil(t, items[0].Price)
	assert.Equal(t, "40", items[0].Price.String())
}

func TestGroupedPivotRetainsZeroStock(t *testing.T) {
	m := internal.RawMatrix{
		{"Style", "Color", "2", "4", "6"},
		{"A100 Maxi"},
		{nil, "Red", 1.0, 0.0, 2.0},
		{"A200 Midi"},
		{nil, "Blue", 0.0, 0.0, nil},
	}
	items := For(internal.FormatGroupedPivot).Extract(m, newTestContext(internal.SourceConfig{}))
	assert.Equal(t, []triple{
		{"A100", "Red", "2", 1},
		{"A100", "Red", "4", 0},
		{"A100", "Red", "6", 2},
		{"A200", "Blue", "2", 0},
		{"A200", "Blue", "4", 0},
	}, triples(items))
}

func TestAlternatingPivot(t *testing.T) {
	m := internal.RawMatrix{
		{"Style", "Color", "2", "4", "6"},
		{"A1", "Red", 1.0, 2.0, 0.0},
		{"Style", "Color", "S", "M", "L"},
		{"B1", "Blue", 0.0, 0.0, 3.0},
		{"C1", "Navy", "XS", "S", "M"},
		{nil, "Navy", 4.0, nil, nil},
	}
	items := For(internal.FormatAlternatingPivot).Extract(m, newTestContext(internal.SourceConfig{}))
	assert.Equal(t, []triple{
		{"A1", "Red", "2", 1},
		{"A1", "Red", "4", 2},
		{"B1", "Blue", "L", 3},
		{"C1", "Navy", "XS", 4},
	}, triples(items))
}

func TestPatternPivot(t *testing.T) {
	m := internal.RawMatrix{
		{"Style", "Color", "2", "4", "6", "8"},
		{"A1", "Red", "D", "3@4/15/2026", "disc", "-"},
	}
	items := For(internal.FormatPatternPivot).Extract(m, newTestContext(internal.SourceConfig{}))
	require.Len(t, items, 3)
	assert.Equal(t, 1, items[0].Stock)
	assert.Equal(t, "4", items[1].Size)
	require.NotNil(t, items[1].ShipDate)
	assert.Equal(t, time.April, items[1].ShipDate.Month())
	assert.True(t, items[2].Discontinued)
}

func TestRowExtractor(t *testing.T) {
	m := internal.RawMatrix{
		{"Style", "Color", "Size", "Qty", "Ship Date", "Status"},
		{"A1", "Red", "02", "Yes", nil, nil},
		{nil, nil, "4", 0.0, "2026-04-01", nil},
		{"B2", "Blue", "M", 0.0, nil, "Discontinued"},
		{"B2", "Blue", "L", 0.0, nil, nil},
		{nil, nil, nil, nil, nil, nil},
		{"Total", nil, nil, 99.0, nil, nil},
	}
	items := For(internal.FormatRow).Extract(m, newTestContext(internal.SourceConfig{}))
	assert.Equal(t, []triple{
		{"A1", "Red", "2", 1},
		{"A1", "Red", "4", 0},
		{"B2", "Blue", "M", 0},
	}, triples(items))
	assert.NotNil(t, items[1].ShipDate)
	assert.True(t, items[2].Discontinued)
	assert.Equal(t, "Yes", items[0].RawSourceRow["qty"])
}

func TestRowExtractorWithoutStyleColumn(t *testing.T) {
	m := internal.RawMatrix{{"Colour", "Qty"}, {"Red", 2.0}}
	assert.Empty(t, For(internal.FormatRow).Extract(m, newTestContext(internal.SourceConfig{})))
}

func TestInvoicePreambleDate(t *testing.T) {
	m := internal.RawMatrix{
		{"Packing List"},
		{"Invoice #", "12345"},
		{"Ship Date:", "4/20/2026"},
		{},
		{"Style", "Color", "Size", "Qty"},
		{"A1", "Red", "4", 0.0},
		{"Subtotal", nil, nil, 0.0},
	}
	items := For(internal.FormatInvoice).Extract(m, newTestContext(internal.SourceConfig{}))
	require.Len(t, items, 1)
	require.NotNil(t, items[0].ShipDate)
	assert.Equal(t, 20, items[0].ShipDate.Day())
}

func TestMultiBrandRow(t *testing.T) {
	m := internal.RawMatrix{
		{"Style", "Product Name", "Color", "Size", "Qty"},
		{"100", "Sola Swim One Piece", "Black", "S", 2.0},
		{"200", "Plain Tee", "White", "M", 1.0},
	}
	ctx := newTestContext(internal.SourceConfig{Brands: []string{"Sola Swim", "Kai"}})
	items := For(internal.FormatMultiBrandRow).Extract(m, ctx)
	require.Len(t, items, 2)
	assert.Equal(t, "Sola Swim", items[0].Brand)
	assert.Empty(t, items[1].Brand)

	m = internal.RawMatrix{
		{"Vendor", "Style", "Color", "Size", "Qty"},
		{"Kai", "300", "Red", "L", 1.0},
	}
	items = For(internal.FormatMultiBrandRow).Extract(m, ctx)
	require.Len(t, items, 1)
	assert.Equal(t, "Kai", items[0].Brand)
}

func TestQuota(t *testing.T) {
	m := internal.RawMatrix{
		{"Season Allocation"},
		{"Style", "Color", "Size", "Quota", "Used"},
		{"A1", "Red", "4", 10.0, 4.0},
		{"A1", "Red", "6", 3.0, 5.0},
	}
	items := For(internal.FormatQuota).Extract(m, newTestContext(internal.SourceConfig{}))
	assert.Equal(t, []triple{{"A1", "Red", "4", 6}}, triples(items))
}

func TestDateHeaderPivot(t *testing.T) {
	m := internal.RawMatrix{
		{"Style", "Color", "Size", "Now", 46082.0, "4/15/2026", "2026-05-01"},
		{"A1", "Red", "4", 2.0, 0.0, 0.0, 0.0},
		{"A1", "Red", "6", 0.0, 0.0, 5.0, 7.0},
		{"A1", "Red", "8", 0.0, 0.0, 0.0, 0.0},
		{"A1", "Red", "10", 0.0, 3.0, 0.0, 0.0},
	}
	items := For(internal.FormatDateHeaderPivot).Extract(m, newTestContext(internal.SourceConfig{}))
	require.Len(t, items, 3)
	assert.Equal(t, 2, items[0].Stock)
	assert.Nil(t, items[0].ShipDate)
	assert.Equal(t, 5, items[1].Stock)
	require.NotNil(t, items[1].ShipDate)
	assert.Equal(t, time.April, items[1].ShipDate.Month())
	// 46082 is 2026-03-01, already arrived
	assert.Equal(t, 3, items[2].Stock)
	assert.Nil(t, items[2].ShipDate)
}

func TestOTSPivotRetainsZeroStock(t *testing.T) {
	m := internal.RawMatrix{
		{"Style", "Color", "Size", "OTS1", "OTS2", "OTS3"},
		{nil, nil, nil, nil, "5/1/2026", "6/1/2026"},
		{"A1", "Red", "4", 3.0, 0.0, 0.0},
		{"A1", "Red", "6", 0.0, 0.0, 4.0},
		{"A1", "Red", "8", 0.0, 0.0, 0.0},
	}
	items := For(internal.FormatOTSPivot).Extract(m, newTestContext(internal.SourceConfig{}))
	require.Len(t, items, 3)
	assert.Equal(t, 3, items[0].Stock)
	require.NotNil(t, items[1].ShipDate)
	assert.Equal(t, time.June, items[1].ShipDate.Month())
	assert.Equal(t, 0, items[2].Stock)
}

func TestCompositeCode(t *testing.T) {
	m := internal.RawMatrix{
		{"Item Code", "Description", "Qty"},
		{"A-100-RED-4", "Dress", 2.0},
		{"B200-NAVY-XL", "Top", 1.0},
		{"C300-6", "Skirt", 1.0},
	}
	items := For(internal.FormatCompositeCode).Extract(m, newTestContext(internal.SourceConfig{}))
	assert.Equal(t, []triple{
		{"A-100", "RED", "4", 2},
		{"B200", "NAVY", "XL", 1},
		{"C300", "", "6", 1},
	}, triples(items))
}

func TestCompositeCustomDelimiter(t *testing.T) {
	m := internal.RawMatrix{
		{"SKU", "Qty"},
		{"A100/RED/4", 2.0},
	}
	items := For(internal.FormatCompositeCode).Extract(m, newTestContext(internal.SourceConfig{CompositeDelimiter: "/"}))
	assert.Equal(t, []triple{{"A100", "RED", "4", 2}}, triples(items))
}

func TestSectionedRow(t *testing.T) {
	m := internal.RawMatrix{
		{"Color", "Size", "Qty"},
		{"Red", "4", 1.0},
		{"Style # 100 - Wrap Dress"},
		{"Red", "4", 1.0},
		{"Blue", "6", 2.0},
		{"Style # 200"},
		{"Black", "S", 3.0},
	}
	ctx := newTestContext(internal.SourceConfig{})
	items := For(internal.FormatSectionedRow).Extract(m, ctx)
	assert.Equal(t, []triple{
		{"100", "Red", "4", 1},
		{"100", "Blue", "6", 2},
		{"200", "Black", "S", 3},
	}, triples(items))
	assert.Equal(t, 1, ctx.Report.SkippedRows)
}

func TestCascadeFallsBack(t *testing.T) {
	m := internal.RawMatrix{
		{"Style", "Color", "Size", "Qty"},
		{"A1", "Red", "4", 2.0},
	}
	ctx := newTestContext(internal.SourceConfig{})
	items, used := Cascade(m, internal.FormatOTSPivot, ctx)
	require.Len(t, items, 1)
	assert.Equal(t, internal.FormatRow, used)
	assert.NotEmpty(t, ctx.Report.Warnings)

	items, used = Cascade(internal.RawMatrix{{"nothing"}, {"here"}}, internal.FormatRow, ctx)
	assert.Empty(t, items)
	assert.Equal(t, internal.FormatRow, used)
}

func TestCascadeKeepsOnlyTheChosenReport(t *testing.T) {
	m := internal.RawMatrix{
		{"Color", "Size", "Qty"},
		{"Red", "4", 1.0},
		{"Style", "Color", "Size", "Qty"},
		{"A1", "Red", "4", 2.0},
	}
	ctx := newTestContext(internal.SourceConfig{})
	items, used := Cascade(m, internal.FormatSectionedRow, ctx)
	require.Len(t, items, 1)
	assert.Equal(t, internal.FormatRow, used)
	assert.Equal(t, 0, ctx.Report.SkippedRows)
	for _, w := range ctx.Report.Warnings {
		assert.NotContains(t, w, "skipped")
	}
	assert.Contains(t, ctx.Report.Warnings[len(ctx.Report.Warnings)-1], "used row")
}

func TestStockNeverNegative(t *testing.T) {
	m := internal.RawMatrix{
		{"Style", "Color", "Size", "Qty"},
		{"A1", "Red", "4", -3.0},
		{"A1", "Red", "6", "-2"},
		{"A1", "Red", "8", "junk"},
	}
	for _, id := range internal.AllFormats {
		for _, it := range For(id).Extract(m, newTestContext(internal.SourceConfig{})) {
			assert.GreaterOrEqual(t, it.Stock, 0, id)
		}
	}
}
