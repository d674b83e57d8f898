package index

import (
	"context"
	"time"
)

func (d *DB) InsertTransfer(ctx context.Context, t TransferRecord) error {
	completed := t.CompletedAt
	if completed.IsZero() {
		completed = time.Now()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO sync_transfers (run_id, remote_path, local_path, size, action, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.RunID, t.RemotePath, t.LocalPath, t.Size, t.Action, completed.Unix())
	return err
}

// ListTransfers returns a run's transfers in the order they were recorded
func (d *DB) ListTransfers(ctx context.Context, runID string) (transfers []TransferRecord, err error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT run_id, remote_path, local_path, size, action, completed_at
		FROM sync_transfers WHERE run_id = ? ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		var t TransferRecord
		var completed int64
		if err := rows.Scan(&t.RunID, &t.RemotePath, &t.LocalPath, &t.Size, &t.Action, &completed); err != nil {
			return nil, err
		}
		t.CompletedAt = fromUnix(completed)
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transfers, nil
}
