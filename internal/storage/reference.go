package storage

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// ReplaceColors swaps the global color table.
func (d *DB) ReplaceColors(ctx context.Context, pairs map[string]string) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM colors`); err != nil {
		return err
	}
	for alias, canonical := range pairs {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO colors (alias, canonical) VALUES (?, ?)`, alias, strings.TrimSpace(canonical)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) Colors(ctx context.Context) (map[string]string, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT alias, canonical FROM colors`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var alias, canonical string
		if err := rows.Scan(&alias, &canonical); err != nil {
			return nil, err
		}
		out[alias] = canonical
	}
	return out, rows.Err()
}

func (d *DB) UpsertStylePrices(ctx context.Context, prices map[string]decimal.Decimal) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO style_prices (style, price, updatedAt) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(style) DO UPDATE SET price = excluded.price, updatedAt = CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for style, price := range prices {
		style = strings.ToUpper(strings.TrimSpace(style))
		if style == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, style, price.String()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) StylePrices(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT style, price FROM style_prices`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]decimal.Decimal{}
	for rows.Next() {
		var style, price string
		if err := rows.Scan(&style, &price); err != nil {
			return nil, err
		}
		p, err := decimal.NewFromString(price)
		if err != nil {
			continue
		}
		out[style] = p
	}
	return out, rows.Err()
}
