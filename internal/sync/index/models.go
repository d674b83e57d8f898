package index

import "time"

// Run states as stored in sync_runs.state
const (
	RunStateRunning   = "running"
	RunStateSucceeded = "succeeded"
	RunStateFailed    = "failed"
)

// Transfer actions as stored in sync_transfers.action
const (
	ActionDownloaded    = "downloaded"
	ActionWouldDownload = "would-download"
)

type RunRecord struct {
	ID                string
	Profile           string
	TraceID           string
	LocalDirectory    string
	StartedAt         time.Time
	FinishedAt        time.Time
	State             string
	DryRun            bool
	FilesSeen         int
	FilesFiltered     int
	FilesSkipped      int
	FilesDownloaded   int
	BytesDownloaded   int64
	PreviousWatermark string
	NewWatermark      string
	Error             string
}

type TransferRecord struct {
	RunID       string
	RemotePath  string
	LocalPath   string
	Size        int64
	Action      string
	CompletedAt time.Time
}
