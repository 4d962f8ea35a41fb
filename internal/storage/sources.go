package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"stockimport/internal"
)

func (d *DB) UpsertSource(ctx context.Context, src internal.DataSource) error {
	if src.Type == "" {
		src.Type = internal.SourceRegular
	}
	sendersJSON, _ := json.Marshal(src.EmailSenders)
	configJSON, err := json.Marshal(src.Config)
	if err != nil {
		return err
	}
	_, err = d.conn.ExecContext(ctx, `
INSERT INTO data_sources (id, name, type, linkedSaleSourceId, emailSendersJson, configJson)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  name=excluded.name,
  type=excluded.type,
  linkedSaleSourceId=excluded.linkedSaleSourceId,
  emailSendersJson=excluded.emailSendersJson,
  configJson=excluded.configJson,
  updatedAt=CURRENT_TIMESTAMP
`, src.ID, src.Name, string(src.Type), src.LinkedSaleSourceID, string(sendersJSON), string(configJSON))
	return err
}

const sourceColumns = `id, name, type, COALESCE(linkedSaleSourceId, ''), emailSendersJson, configJson`

func scanSource(scan func(...any) error) (internal.DataSource, error) {
	var src internal.DataSource
	var typ, sendersJSON, configJSON string
	if err := scan(&src.ID, &src.Name, &typ, &src.LinkedSaleSourceID, &sendersJSON, &configJSON); err != nil {
		return src, err
	}
	src.Type = internal.SourceType(typ)
	_ = json.Unmarshal([]byte(sendersJSON), &src.EmailSenders)
	if err := json.Unmarshal([]byte(configJSON), &src.Config); err != nil {
		return src, err
	}
	return src, nil
}

func (d *DB) GetSource(ctx context.Context, id string) (*internal.DataSource, error) {
	row := d.conn.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM data_sources WHERE id = ?`, id)
	src, err := scanSource(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

func (d *DB) ListSources(ctx context.Context) ([]internal.DataSource, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT `+sourceColumns+` FROM data_sources ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.DataSource
	for rows.Next() {
		src, err := scanSource(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

// LinkedSources returns the regular sources whose discontinued styles come
// from the given sale source.
func (d *DB) LinkedSources(ctx context.Context, saleSourceID string) ([]internal.DataSource, error) {
	all, err := d.ListSources(ctx)
	if err != nil {
		return nil, err
	}
	var out []internal.DataSource
	for _, src := range all {
		if !src.IsSale() && src.LinkedSaleSourceID == saleSourceID {
			out = append(out, src)
		}
	}
	return out, nil
}

// FindSourceBySender matches a mail sender against each source's sender
// list. Entries starting with "@" match a whole domain.
func (d *DB) FindSourceBySender(ctx context.Context, sender string) (*internal.DataSource, error) {
	addr := strings.ToLower(strings.TrimSpace(sender))
	if i := strings.LastIndex(addr, "<"); i >= 0 {
		addr = strings.TrimSuffix(addr[i+1:], ">")
	}
	if addr == "" {
		return nil, nil
	}
	all, err := d.ListSources(ctx)
	if err != nil {
		return nil, err
	}
	for _, src := range all {
		for _, s := range src.EmailSenders {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" {
				continue
			}
			if s == addr || (strings.HasPrefix(s, "@") && strings.HasSuffix(addr, s)) {
				found := src
				return &found, nil
			}
		}
	}
	return nil, nil
}
