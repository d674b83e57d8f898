package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dl-alexandre/phonesync/internal/ftpclient"
	"github.com/dl-alexandre/phonesync/internal/logging"
	"github.com/dl-alexandre/phonesync/internal/sync/scanner"
	"golang.org/x/time/rate"
)

// TransferError is a failed download of one file
type TransferError struct {
	RemotePath string
	LocalPath  string
	Err        error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("failed to download %s to %s: %v", e.RemotePath, e.LocalPath, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Decision is what to do with a remote file given the local state
type Decision int

const (
	DecisionDownload Decision = iota
	// DecisionSkip means a local file with the remote size already exists
	DecisionSkip
	// DecisionConflict means the target exists but is not a regular file
	DecisionConflict
)

func (d Decision) String() string {
	switch d {
	case DecisionDownload:
		return "download"
	case DecisionSkip:
		return "skip"
	case DecisionConflict:
		return "conflict"
	}
	return "unknown"
}

// Options configures a Downloader
type Options struct {
	// Limiter throttles downloads; nil means unlimited
	Limiter *rate.Limiter
	// PreserveModTime sets the local mtime to the remote modify time
	PreserveModTime bool
	Logger          logging.Logger
}

// Downloader copies single remote files into a local directory
type Downloader struct {
	limiter         *rate.Limiter
	preserveModTime bool
	logger          logging.Logger
}

func NewDownloader(opts Options) *Downloader {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Downloader{
		limiter:         opts.Limiter,
		preserveModTime: opts.PreserveModTime,
		logger:          logger,
	}
}

// SafeName reports whether a remote file name can be used as a flat local
// file name
func SafeName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	return filepath.Base(name) == name
}

// Target returns the flattened local path for a remote entry
func Target(localDir string, entry scanner.RemoteEntry) (string, error) {
	if !SafeName(entry.Name) {
		return "", fmt.Errorf("unsafe file name %q", entry.Name)
	}
	return filepath.Join(localDir, entry.Name), nil
}

// Decide compares the local target against the remote size
func Decide(target string, remoteSize int64) (Decision, error) {
	info, err := os.Lstat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return DecisionDownload, nil
		}
		return DecisionDownload, err
	}
	if !info.Mode().IsRegular() {
		return DecisionConflict, nil
	}
	if info.Size() == remoteSize {
		return DecisionSkip, nil
	}
	return DecisionDownload, nil
}

// Fetch downloads entry over session into target. The file appears under
// its final name only once fully written; any failure leaves no temp file.
func (d *Downloader) Fetch(ctx context.Context, session ftpclient.Session, entry scanner.RemoteEntry, target string) (int64, error) {
	remotePath := entry.Path()
	fail := func(err error) (int64, error) {
		return 0, &TransferError{RemotePath: remotePath, LocalPath: target, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	dir := filepath.Dir(target)
	out, err := os.CreateTemp(dir, ".phonesync-*.part")
	if err != nil {
		return fail(fmt.Errorf("create temporary file in %s: %w", dir, err))
	}
	tempPath := out.Name()
	defer func() {
		if tempPath != "" {
			_ = os.Remove(tempPath)
		}
	}()

	body, err := session.Retr(remotePath)
	if err != nil {
		_ = out.Close()
		return fail(err)
	}

	written, copyErr := io.Copy(out, ftpclient.NewThrottledReader(ctx, body, d.limiter))
	closeBodyErr := body.Close()
	if copyErr != nil {
		_ = out.Close()
		return fail(fmt.Errorf("copy: %w", copyErr))
	}
	if closeBodyErr != nil {
		_ = out.Close()
		return fail(fmt.Errorf("finish transfer: %w", closeBodyErr))
	}
	if entry.Size > 0 && written != entry.Size {
		_ = out.Close()
		return fail(fmt.Errorf("size mismatch: expected %d bytes, got %d", entry.Size, written))
	}

	if err := out.Sync(); err != nil {
		_ = out.Close()
		return fail(fmt.Errorf("sync: %w", err))
	}
	if err := out.Chmod(0644); err != nil {
		_ = out.Close()
		return fail(fmt.Errorf("chmod: %w", err))
	}
	if err := out.Close(); err != nil {
		return fail(fmt.Errorf("close: %w", err))
	}

	if d.preserveModTime && entry.ModifiedAt != nil {
		mtime := *entry.ModifiedAt
		if err := os.Chtimes(tempPath, mtime, mtime); err != nil {
			d.logger.Warn("Failed to set modification time",
				logging.F("file", target),
				logging.F("error", err.Error()),
			)
		}
	}

	if err := os.Rename(tempPath, target); err != nil {
		return fail(fmt.Errorf("rename into place: %w", err))
	}
	tempPath = ""

	d.logger.Debug("Downloaded file",
		logging.F("remote", remotePath),
		logging.F("local", target),
		logging.F("bytes", written),
	)
	return written, nil
}

