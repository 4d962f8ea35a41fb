package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"stockimport/internal"
)

func (d *DB) SaveSnapshot(ctx context.Context, uploadID string, snap internal.ImportSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = d.conn.ExecContext(ctx, `INSERT INTO snapshots (sourceId, uploadId, snapshotJson) VALUES (?, ?, ?)`,
		snap.SourceID, uploadID, string(data))
	return err
}

// LatestSnapshot returns the newest snapshot of a source, nil before the
// first applied import.
func (d *DB) LatestSnapshot(ctx context.Context, sourceID string) (*internal.ImportSnapshot, error) {
	var data string
	err := d.conn.QueryRowContext(ctx,
		`SELECT snapshotJson FROM snapshots WHERE sourceId = ? ORDER BY id DESC LIMIT 1`, sourceID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap internal.ImportSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ReplaceDiscontinuedStyles stores the styles of a sale source's latest
// import, dropping the previous registration.
func (d *DB) ReplaceDiscontinuedStyles(ctx context.Context, saleSourceID, uploadID string, styles []string) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM discontinued_styles WHERE saleSourceId = ?`, saleSourceID); err != nil {
		return err
	}
	for _, s := range styles {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO discontinued_styles (saleSourceId, style, uploadId) VALUES (?, ?, ?)
ON CONFLICT(saleSourceId, style) DO NOTHING
`, saleSourceID, strings.ToUpper(s), uploadID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) DiscontinuedStyles(ctx context.Context, saleSourceID string) ([]string, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT style FROM discontinued_styles WHERE saleSourceId = ? ORDER BY style`, saleSourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (d *DB) InsertRun(ctx context.Context, run internal.ImportRun) error {
	formatJSON, _ := json.Marshal(run.Format)
	countsJSON, _ := json.Marshal(run.Counts)
	reportJSON, _ := json.Marshal(run.Report)
	warningsJSON, _ := json.Marshal(run.Warnings)
	_, err := d.conn.ExecContext(ctx, `
INSERT INTO runs (id, sourceId, fileName, formatJson, status, countsJson, reportJson, warningsJson, startedAt, finishedAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, run.ID, run.SourceID, run.FileName, string(formatJSON), run.Status, string(countsJSON), string(reportJSON), string(warningsJSON),
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.FinishedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (d *DB) ListRuns(ctx context.Context, sourceID string, limit int) ([]internal.ImportRun, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT id, sourceId, fileName, formatJson, status, countsJson, reportJson, warningsJson, startedAt, finishedAt
FROM runs WHERE sourceId = ? ORDER BY startedAt DESC LIMIT ?
`, sourceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ImportRun
	for rows.Next() {
		var run internal.ImportRun
		var formatJSON, countsJSON, reportJSON, warningsJSON, started, finished string
		if err := rows.Scan(&run.ID, &run.SourceID, &run.FileName, &formatJSON, &run.Status,
			&countsJSON, &reportJSON, &warningsJSON, &started, &finished); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(formatJSON), &run.Format)
		_ = json.Unmarshal([]byte(countsJSON), &run.Counts)
		_ = json.Unmarshal([]byte(reportJSON), &run.Report)
		_ = json.Unmarshal([]byte(warningsJSON), &run.Warnings)
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, run)
	}
	return out, rows.Err()
}
