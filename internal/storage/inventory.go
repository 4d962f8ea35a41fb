package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockimport/internal"
)

// ReplaceInventory swaps a source's whole inventory for items in one
// transaction.
func (d *DB) ReplaceInventory(ctx context.Context, sourceID, uploadID string, items []internal.VariantItem) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM inventory WHERE sourceId = ?`, sourceID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO inventory (
  sourceId, sku, style, color, size, stock, price, shipDate,
  discontinued, specialOrder, isExpandedSize, expandedFromSize, brand, uploadId, updatedAt
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(sourceId, sku) DO UPDATE SET
  stock=excluded.stock,
  price=excluded.price,
  shipDate=excluded.shipDate,
  discontinued=excluded.discontinued,
  specialOrder=excluded.specialOrder,
  isExpandedSize=excluded.isExpandedSize,
  expandedFromSize=excluded.expandedFromSize,
  brand=excluded.brand,
  uploadId=excluded.uploadId,
  updatedAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, it := range items {
		sku := it.SKU
		if sku == "" {
			sku = internal.BuildSKU(it.Style, it.Color, it.Size)
		}
		price := decimal.NullDecimal{}
		if it.Price != nil {
			price = decimal.NewNullDecimal(*it.Price)
		}
		var shipDate sql.NullString
		if it.ShipDate != nil {
			shipDate = sql.NullString{String: it.ShipDate.UTC().Format(time.RFC3339), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			sourceID, sku, it.Style, it.Color, it.Size, it.Stock, price, shipDate,
			it.Discontinued, it.SpecialOrder, it.IsExpandedSize, it.ExpandedFromSize, it.Brand, uploadID,
		); err != nil {
			return fmt.Errorf("insert %s: %w", sku, err)
		}
	}

	return tx.Commit()
}

func (d *DB) CountInventory(ctx context.Context, sourceID string) (int, error) {
	var n int
	err := d.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory WHERE sourceId = ?`, sourceID).Scan(&n)
	return n, err
}

func (d *DB) ListInventory(ctx context.Context, sourceID string) ([]internal.VariantItem, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT sku, style, COALESCE(color, ''), COALESCE(size, ''), stock, price, shipDate,
       discontinued, specialOrder, isExpandedSize, COALESCE(expandedFromSize, ''), COALESCE(brand, '')
FROM inventory WHERE sourceId = ?
ORDER BY style, color, size`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.VariantItem
	for rows.Next() {
		var it internal.VariantItem
		var price decimal.NullDecimal
		var shipDate sql.NullString
		if err := rows.Scan(
			&it.SKU, &it.Style, &it.Color, &it.Size, &it.Stock, &price, &shipDate,
			&it.Discontinued, &it.SpecialOrder, &it.IsExpandedSize, &it.ExpandedFromSize, &it.Brand,
		); err != nil {
			return nil, err
		}
		if price.Valid {
			p := price.Decimal
			it.Price = &p
		}
		if shipDate.Valid {
			if t, err := time.Parse(time.RFC3339, shipDate.String); err == nil {
				it.ShipDate = &t
			}
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// DeleteInventoryStyles removes every variant of the given styles from a
// source and reports how many rows went.
func (d *DB) DeleteInventoryStyles(ctx context.Context, sourceID string, styles []string) (int64, error) {
	if len(styles) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(styles)+1)
	args = append(args, sourceID)
	for _, s := range styles {
		args = append(args, strings.ToUpper(s))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(styles)), ",")
	res, err := d.conn.ExecContext(ctx,
		`DELETE FROM inventory WHERE sourceId = ? AND UPPER(style) IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
