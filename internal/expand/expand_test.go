package expand

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockimport/internal"
)

func item(size string, stock int) internal.VariantItem {
	return internal.VariantItem{Style: "A1", Color: "Red", Size: size, Stock: stock, SKU: internal.BuildSKU("A1", "Red", size)}
}

func sizesOf(items []internal.VariantItem) map[string]internal.VariantItem {
	out := map[string]internal.VariantItem{}
	for _, it := range items {
		out[it.Size] = it
	}
	return out
}

func TestByStock(t *testing.T) {
	rule := internal.StockExpansionRule{Enabled: internal.BoolPtr(true), MinTrigger: 2, ExpandDown: 1, ExpandUp: 2}
	res := ByStock([]internal.VariantItem{item("4", 3), item("6", 0), item("12", 1)}, rule)

	got := sizesOf(res.Items)
	require.Len(t, got, 5)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 1, res.Converted)

	for _, size := range []string{"2", "6", "8"} {
		it := got[size]
		assert.True(t, it.IsExpandedSize, size)
		assert.Equal(t, 0, it.Stock, size)
		assert.Equal(t, "4", it.ExpandedFromSize, size)
	}
	assert.False(t, got["12"].IsExpandedSize)
	assert.Equal(t, "A1-Red-8", got["8"].SKU)
}

func TestByStockDisabled(t *testing.T) {
	items := []internal.VariantItem{item("4", 3)}
	res := ByStock(items, internal.StockExpansionRule{ExpandDown: 1})
	assert.Equal(t, items, res.Items)
}

func TestNeverDuplicatesRealStock(t *testing.T) {
	rule := internal.StockExpansionRule{Enabled: internal.BoolPtr(true), MinTrigger: 1, ExpandDown: 1, ExpandUp: 1}
	res := ByStock([]internal.VariantItem{item("4", 2), item("6", 5)}, rule)
	got := sizesOf(res.Items)
	require.Len(t, res.Items, 4)
	assert.False(t, got["4"].IsExpandedSize)
	assert.False(t, got["6"].IsExpandedSize)
	assert.True(t, got["2"].IsExpandedSize)
	assert.True(t, got["8"].IsExpandedSize)
	assert.Empty(t, res.Warnings)
}

func TestUnknownSizePassesThrough(t *testing.T) {
	rule := internal.StockExpansionRule{Enabled: internal.BoolPtr(true), MinTrigger: 1, ExpandDown: 1, ExpandUp: 1}
	items := []internal.VariantItem{item("OS", 4)}
	res := ByStock(items, rule)
	assert.Equal(t, items, res.Items)
}

func TestSuffixStaysInFamily(t *testing.T) {
	rule := internal.StockExpansionRule{Enabled: internal.BoolPtr(true), MinTrigger: 1, ExpandUp: 1}
	res := ByStock([]internal.VariantItem{item("6P", 1)}, rule)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "8P", res.Items[1].Size)
}

func TestByPriceTiers(t *testing.T) {
	max100 := decimal.NewFromInt(100)
	tiers := []internal.PriceExpansionTier{
		{MinPrice: decimal.Zero, MaxPrice: &max100, ExpandUp: 1},
		{MinPrice: decimal.NewFromInt(100), ExpandDown: 1, ExpandUp: 1},
	}
	cheap := item("M", 2)
	cheapPrice := decimal.NewFromInt(40)
	cheap.Price = &cheapPrice

	res := ByPrice([]internal.VariantItem{cheap}, tiers, ItemPrice)
	got := sizesOf(res.Items)
	require.Len(t, got, 2)
	assert.True(t, got["L"].IsExpandedSize)

	lookup := func(internal.VariantItem) (decimal.Decimal, bool) { return decimal.NewFromInt(250), true }
	res = ByPrice([]internal.VariantItem{item("M", 2)}, tiers, lookup)
	got = sizesOf(res.Items)
	require.Len(t, got, 3)
	assert.Contains(t, got, "S")
	assert.Contains(t, got, "L")
}

func TestDoubleExpansionIsReported(t *testing.T) {
	rule := internal.StockExpansionRule{Enabled: internal.BoolPtr(true), MinTrigger: 1, ExpandUp: 1}
	first := ByStock([]internal.VariantItem{item("4", 2)}, rule)
	require.Len(t, first.Items, 2)

	tiers := []internal.PriceExpansionTier{{MinPrice: decimal.Zero, ExpandUp: 1}}
	lookup := func(internal.VariantItem) (decimal.Decimal, bool) { return decimal.NewFromInt(10), true }
	second := ByPrice(first.Items, tiers, lookup)
	assert.Len(t, second.Items, 2)
	require.Len(t, second.Warnings, 1)
	assert.Contains(t, second.Warnings[0], "double expansion")
}

func TestExpandedFromSizeRefersToRealSize(t *testing.T) {
	rule := internal.StockExpansionRule{Enabled: internal.BoolPtr(true), MinTrigger: 1, ExpandDown: 2, ExpandUp: 2}
	res := ByStock([]internal.VariantItem{item("XS", 1), item("XL", 3), item("M", 0)}, rule)
	real := map[string]bool{}
	for _, it := range res.Items {
		if !it.IsExpandedSize {
			real[it.Size] = true
		}
	}
	for _, it := range res.Items {
		if it.IsExpandedSize {
			assert.Equal(t, 0, it.Stock)
			assert.True(t, real[it.ExpandedFromSize], it.Size)
		}
	}
}

func TestIncomingAndDiscontinuedRowsAreNotConverted(t *testing.T) {
	ship, err := time.Parse("2006-01-02", "2026-06-01")
	require.NoError(t, err)
	incoming := item("4", 0)
	incoming.ShipDate = &ship
	gone := item("6", 0)
	gone.Discontinued = true

	tiers := []internal.PriceExpansionTier{{MinPrice: decimal.Zero, ExpandUp: 2}}
	res := ByPrice([]internal.VariantItem{item("2", 4), incoming, gone}, tiers, func(internal.VariantItem) (decimal.Decimal, bool) {
		return decimal.NewFromInt(10), true
	})

	got := sizesOf(res.Items)
	require.Len(t, got, 3)
	assert.Zero(t, res.Converted)
	assert.Zero(t, res.Added)
	assert.False(t, got["4"].IsExpandedSize)
	require.NotNil(t, got["4"].ShipDate)
	assert.True(t, got["4"].ShipDate.Equal(ship))
	assert.False(t, got["6"].IsExpandedSize)
	assert.True(t, got["6"].Discontinued)
}
