package storage

import (
	"context"
	"database/sql"
	"errors"

	"stockimport/internal"
)

const (
	EmailFetched   = "fetched"
	EmailImported  = "imported"
	EmailSkipped   = "skipped"
	EmailFailed    = "failed"
	EmailBlocked   = "blocked"
	emailSelectSQL = `SELECT id, provider, messageId, COALESCE(subject, ''), COALESCE(sender, ''), COALESCE(receivedAt, ''), hash, status, rawRef FROM emails`
)

func (d *DB) UpsertEmail(ctx context.Context, provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.EmailRow, error) {
	_, err := d.conn.ExecContext(ctx, `
INSERT INTO emails (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.EmailRow{}, err
	}

	row, err := d.GetEmailByProviderMessageID(ctx, provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, errors.New("failed to upsert email")
	}
	return *row, nil
}

func scanEmail(scan func(...any) error) (internal.EmailRow, error) {
	var row internal.EmailRow
	err := scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef)
	return row, err
}

func (d *DB) GetEmailByProviderMessageID(ctx context.Context, provider, messageID string) (*internal.EmailRow, error) {
	row, err := scanEmail(d.conn.QueryRowContext(ctx, emailSelectSQL+` WHERE provider = ? AND messageId = ?`, provider, messageID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) GetEmailByID(ctx context.Context, id int) (*internal.EmailRow, error) {
	row, err := scanEmail(d.conn.QueryRowContext(ctx, emailSelectSQL+` WHERE id = ?`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListEmailsByStatus(ctx context.Context, status string, limit int) ([]internal.EmailRow, error) {
	rows, err := d.conn.QueryContext(ctx, emailSelectSQL+` WHERE status = ? ORDER BY receivedAt ASC LIMIT ?`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmailRow
	for rows.Next() {
		row, err := scanEmail(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateEmailStatus(ctx context.Context, emailID int, status string) error {
	_, err := d.conn.ExecContext(ctx, `UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID)
	return err
}
