package index

import (
	"context"
	"database/sql"
	"time"
)

const runColumns = `id, profile, trace_id, local_directory, started_at, finished_at, state, dry_run,
	files_seen, files_filtered, files_skipped, files_downloaded, bytes_downloaded,
	previous_watermark, new_watermark, error`

func (d *DB) UpsertRun(ctx context.Context, run RunRecord) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO sync_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at=excluded.finished_at,
			state=excluded.state,
			files_seen=excluded.files_seen,
			files_filtered=excluded.files_filtered,
			files_skipped=excluded.files_skipped,
			files_downloaded=excluded.files_downloaded,
			bytes_downloaded=excluded.bytes_downloaded,
			previous_watermark=excluded.previous_watermark,
			new_watermark=excluded.new_watermark,
			error=excluded.error
	`, run.ID, run.Profile, run.TraceID, run.LocalDirectory, toUnix(run.StartedAt), toUnix(run.FinishedAt),
		run.State, boolToInt(run.DryRun), run.FilesSeen, run.FilesFiltered, run.FilesSkipped,
		run.FilesDownloaded, run.BytesDownloaded, run.PreviousWatermark, run.NewWatermark, run.Error)
	return err
}

func (d *DB) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM sync_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs first. An empty profile lists all
// profiles; a non-positive limit lists everything.
func (d *DB) ListRuns(ctx context.Context, profile string, limit int) (runs []RunRecord, err error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM sync_runs
		WHERE (? = '' OR profile = ?)
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, profile, profile, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var run RunRecord
	var traceID, previous, next, errText sql.NullString
	var started int64
	var finished sql.NullInt64
	var dryRun int

	err := row.Scan(&run.ID, &run.Profile, &traceID, &run.LocalDirectory, &started, &finished, &run.State, &dryRun,
		&run.FilesSeen, &run.FilesFiltered, &run.FilesSkipped, &run.FilesDownloaded, &run.BytesDownloaded,
		&previous, &next, &errText)
	if err != nil {
		return RunRecord{}, err
	}

	run.TraceID = traceID.String
	run.StartedAt = fromUnix(started)
	if finished.Valid {
		run.FinishedAt = fromUnix(finished.Int64)
	}
	run.DryRun = dryRun != 0
	run.PreviousWatermark = previous.String
	run.NewWatermark = next.String
	run.Error = errText.String
	return run, nil
}

func toUnix(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}

func fromUnix(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
