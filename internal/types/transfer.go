package types

import (
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

const timeLayout = "2006-01-02 15:04"

// RemoteEntry is one line of a remote directory listing
type RemoteEntry struct {
	Name       string     `json:"name"`
	Path       string     `json:"path"`
	Type       string     `json:"type"`
	Size       int64      `json:"size"`
	ModifiedAt *time.Time `json:"modifiedAt,omitempty"`
}

// RemoteListing is the result of transfer explore
type RemoteListing struct {
	Directory string        `json:"directory"`
	Entries   []RemoteEntry `json:"entries"`
}

func (l *RemoteListing) Headers() []string {
	return []string{"Name", "Type", "Size", "Modified"}
}

func (l *RemoteListing) Rows() [][]string {
	rows := make([][]string, len(l.Entries))
	for i, e := range l.Entries {
		size := "-"
		if e.Type != "dir" {
			size = FormatBytes(e.Size)
		}
		modified := "-"
		if e.ModifiedAt != nil {
			modified = e.ModifiedAt.Format(timeLayout)
		}
		rows[i] = []string{truncateText(e.Name, 50), e.Type, size, modified}
	}
	return rows
}

func (l *RemoteListing) EmptyMessage() string {
	return "Directory is empty"
}

// TransferItem is one file copied, or to be copied in a dry run
type TransferItem struct {
	RemotePath string `json:"remotePath"`
	LocalPath  string `json:"localPath"`
	Size       int64  `json:"size"`
}

// SyncCounts are the per-run counters of transfer extract
type SyncCounts struct {
	Seen       int   `json:"seen"`
	Ignored    int   `json:"ignored"`
	Filtered   int   `json:"filtered"`
	Skipped    int   `json:"skipped"`
	Downloaded int   `json:"downloaded"`
	Unsafe     int   `json:"unsafe"`
	Bytes      int64 `json:"bytes"`
}

// SyncSummary is the result of transfer extract. The table form lists the
// transferred files.
type SyncSummary struct {
	RunID             string         `json:"runId"`
	Profile           string         `json:"profile"`
	State             string         `json:"state"`
	DryRun            bool           `json:"dryRun"`
	StartedAt         time.Time      `json:"startedAt"`
	FinishedAt        time.Time      `json:"finishedAt"`
	PreviousWatermark time.Time      `json:"previousWatermark"`
	Watermark         *time.Time     `json:"watermark,omitempty"`
	Marker            string         `json:"marker,omitempty"`
	Counts            SyncCounts     `json:"counts"`
	Transfers         []TransferItem `json:"transfers"`
}

func (s *SyncSummary) Headers() []string {
	return []string{"Remote Path", "Local Path", "Size"}
}

func (s *SyncSummary) Rows() [][]string {
	rows := make([][]string, len(s.Transfers))
	for i, t := range s.Transfers {
		rows[i] = []string{truncateText(t.RemotePath, 50), truncateText(t.LocalPath, 50), FormatBytes(t.Size)}
	}
	return rows
}

func (s *SyncSummary) EmptyMessage() string {
	if s.DryRun {
		return "Nothing to download"
	}
	return "No new files"
}

// RunSummary is one row of transfer history
type RunSummary struct {
	ID         string     `json:"id"`
	Profile    string     `json:"profile"`
	State      string     `json:"state"`
	DryRun     bool       `json:"dryRun"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Downloaded int        `json:"downloaded"`
	Bytes      int64      `json:"bytes"`
	Watermark  string     `json:"watermark,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// RunHistory is the result of transfer history
type RunHistory struct {
	Runs []RunSummary `json:"runs"`
}

func (h *RunHistory) Headers() []string {
	return []string{"Started", "Profile", "State", "Files", "Size", "Watermark", "Error"}
}

func (h *RunHistory) Rows() [][]string {
	rows := make([][]string, len(h.Runs))
	for i, r := range h.Runs {
		state := r.State
		if r.DryRun {
			state += " (dry run)"
		}
		rows[i] = []string{
			r.StartedAt.Format(timeLayout),
			r.Profile,
			state,
			strconv.Itoa(r.Downloaded),
			FormatBytes(r.Bytes),
			orDash(r.Watermark),
			truncateText(orDash(r.Error), 40),
		}
	}
	return rows
}

func (h *RunHistory) EmptyMessage() string {
	return "No runs recorded"
}

// FormatBytes renders a byte count in IEC units
func FormatBytes(n int64) string {
	if n < 0 {
		return "-"
	}
	return humanize.IBytes(uint64(n))
}
