package index

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type DB struct {
	db *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	instance := &DB{db: db}
	if err := instance.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return instance, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, schemaSQL)
	return err
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sync_runs (
	id TEXT PRIMARY KEY,
	profile TEXT NOT NULL,
	trace_id TEXT,
	local_directory TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	finished_at INTEGER,
	state TEXT NOT NULL,
	dry_run INTEGER NOT NULL DEFAULT 0,
	files_seen INTEGER NOT NULL DEFAULT 0,
	files_filtered INTEGER NOT NULL DEFAULT 0,
	files_skipped INTEGER NOT NULL DEFAULT 0,
	files_downloaded INTEGER NOT NULL DEFAULT 0,
	bytes_downloaded INTEGER NOT NULL DEFAULT 0,
	previous_watermark TEXT,
	new_watermark TEXT,
	error TEXT
);

CREATE TABLE IF NOT EXISTS sync_transfers (
	run_id TEXT NOT NULL,
	remote_path TEXT NOT NULL,
	local_path TEXT NOT NULL,
	size INTEGER NOT NULL DEFAULT 0,
	action TEXT NOT NULL,
	completed_at INTEGER NOT NULL,
	FOREIGN KEY (run_id) REFERENCES sync_runs(id)
);

CREATE INDEX IF NOT EXISTS idx_runs_profile ON sync_runs(profile, started_at);
CREATE INDEX IF NOT EXISTS idx_transfers_run ON sync_transfers(run_id);
`
