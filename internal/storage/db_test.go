package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockimport/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSourcesRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	cfg := internal.SourceConfig{
		FormatOverride: internal.FormatQuota,
		ColumnMapping:  internal.ColumnMapping{"style": "Item #"},
		StockText:      internal.StockTextMapping{Lookup: map[string]int{"plenty": 10}},
	}
	require.NoError(t, db.UpsertSource(ctx, internal.DataSource{ID: "acme", Name: "Acme", EmailSenders: []string{"@acme.example"}, Config: cfg}))
	require.NoError(t, db.UpsertSource(ctx, internal.DataSource{ID: "acme-sale", Name: "Acme Sale", Type: internal.SourceSale}))
	require.NoError(t, db.UpsertSource(ctx, internal.DataSource{ID: "acme", Name: "Acme Swim", LinkedSaleSourceID: "acme-sale", EmailSenders: []string{"@acme.example"}, Config: cfg}))

	src, err := db.GetSource(ctx, "acme")
	require.NoError(t, err)
	require.NotNil(t, src)
	assert.Equal(t, "Acme Swim", src.Name)
	assert.Equal(t, internal.SourceRegular, src.Type)
	assert.Equal(t, internal.FormatQuota, src.Config.FormatOverride)
	assert.Equal(t, "Item #", src.Config.ColumnMapping["style"])
	v, ok := src.Config.StockText.Get("PLENTY")
	assert.True(t, ok)
	assert.Equal(t, 10, v)

	missing, err := db.GetSource(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	linked, err := db.LinkedSources(ctx, "acme-sale")
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "acme", linked[0].ID)

	bySender, err := db.FindSourceBySender(ctx, "Orders <Stock@Acme.example>")
	require.NoError(t, err)
	require.NotNil(t, bySender)
	assert.Equal(t, "acme", bySender.ID)

	none, err := db.FindSourceBySender(ctx, "someone@else.example")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestInventoryReplaceAndDelete(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	price := decimal.RequireFromString("49.90")
	ship := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	items := []internal.VariantItem{
		{Style: "A1", Color: "Red", Size: "2", Stock: 3, Price: &price, SKU: "A1-Red-2"},
		{Style: "A1", Color: "Red", Size: "4", ShipDate: &ship, IsExpandedSize: true, ExpandedFromSize: "2"},
		{Style: "B1", Color: "Blue", Size: "S", Stock: 1, Discontinued: true},
	}
	require.NoError(t, db.ReplaceInventory(ctx, "acme", "u1", items))
	require.NoError(t, db.ReplaceInventory(ctx, "other", "u1", items[:1]))

	got, err := db.ListInventory(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "A1-Red-2", got[0].SKU)
	require.NotNil(t, got[0].Price)
	assert.True(t, price.Equal(*got[0].Price))
	assert.Equal(t, "A1-Red-4", got[1].SKU)
	require.NotNil(t, got[1].ShipDate)
	assert.True(t, ship.Equal(*got[1].ShipDate))
	assert.True(t, got[1].IsExpandedSize)
	assert.Equal(t, "2", got[1].ExpandedFromSize)
	assert.True(t, got[2].Discontinued)

	require.NoError(t, db.ReplaceInventory(ctx, "acme", "u2", items[:2]))
	n, err := db.CountInventory(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	removed, err := db.DeleteInventoryStyles(ctx, "acme", []string{"a1"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)
	n, err = db.CountInventory(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSnapshotsAndDiscontinued(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	snap, err := db.LatestSnapshot(ctx, "acme")
	require.NoError(t, err)
	assert.Nil(t, snap)

	require.NoError(t, db.SaveSnapshot(ctx, "u1", internal.ImportSnapshot{SourceID: "acme", ItemCount: 10}))
	require.NoError(t, db.SaveSnapshot(ctx, "u2", internal.ImportSnapshot{SourceID: "acme", ItemCount: 12,
		Summaries: map[string]internal.StyleSummary{"A1": {VariantCount: 12}}}))
	snap, err = db.LatestSnapshot(ctx, "acme")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 12, snap.ItemCount)
	assert.Equal(t, 12, snap.Summaries["A1"].VariantCount)

	require.NoError(t, db.ReplaceDiscontinuedStyles(ctx, "sale", "u1", []string{"x1", "X2"}))
	require.NoError(t, db.ReplaceDiscontinuedStyles(ctx, "sale", "u2", []string{"x2", "x3", "X3"}))
	styles, err := db.DiscontinuedStyles(ctx, "sale")
	require.NoError(t, err)
	assert.Equal(t, []string{"X2", "X3"}, styles)
}

func TestRunsColorsPricesMetadata(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run := internal.ImportRun{
		ID: "run-1", SourceID: "acme", FileName: "stock.xlsx",
		Format: internal.FormatIdentity{ID: internal.FormatPivot, Provenance: internal.ProvenanceHeader},
		Status: "applied", Counts: map[string]int{"final": 4},
		Report:    internal.ValidationReport{Passed: true},
		StartedAt: start, FinishedAt: start.Add(time.Second),
	}
	require.NoError(t, db.InsertRun(ctx, run))
	runs, err := db.ListRuns(ctx, "acme", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, internal.FormatPivot, runs[0].Format.ID)
	assert.Equal(t, 4, runs[0].Counts["final"])
	assert.True(t, runs[0].StartedAt.Equal(start))

	require.NoError(t, db.ReplaceColors(ctx, map[string]string{" NVY ": "Navy", "": "x"}))
	colors, err := db.Colors(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"nvy": "Navy"}, colors)

	require.NoError(t, db.UpsertStylePrices(ctx, map[string]decimal.Decimal{"a1": decimal.NewFromInt(120)}))
	prices, err := db.StylePrices(ctx)
	require.NoError(t, err)
	assert.True(t, prices["A1"].Equal(decimal.NewFromInt(120)))

	require.NoError(t, db.SetMetadata(ctx, "catalog.lastSync", "2026-03-01"))
	v, err := db.GetMetadata(ctx, "catalog.lastSync")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "2026-03-01", *v)
}

func TestEmails(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	row, err := db.UpsertEmail(ctx, "imap", "m1", "Stock", "a@acme.example", "2026-03-01T10:00:00Z", "h", "raw/m1.eml", EmailFetched)
	require.NoError(t, err)
	assert.Equal(t, EmailFetched, row.Status)

	list, err := db.ListEmailsByStatus(ctx, EmailFetched, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, db.UpdateEmailStatus(ctx, row.ID, EmailImported))
	got, err := db.GetEmailByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, EmailImported, got.Status)
}
