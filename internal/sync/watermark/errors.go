package watermark

import (
	"errors"
	"fmt"
)

// WatermarkError is a fatal failure to list or write markers
type WatermarkError struct {
	Dir string
	Err error
}

func (e *WatermarkError) Error() string {
	return fmt.Sprintf("watermark in %s: %v", e.Dir, e.Err)
}

func (e *WatermarkError) Unwrap() error {
	return e.Err
}

// MarkerParseError reports a marker file that could not be read. It is
// recovered from: the file contributes nothing to the watermark.
type MarkerParseError struct {
	File string
	Err  error
}

func (e *MarkerParseError) Error() string {
	return fmt.Sprintf("unreadable marker %s: %v", e.File, e.Err)
}

func (e *MarkerParseError) Unwrap() error {
	return e.Err
}

// CleanupError collects failures to delete superseded markers after a
// successful commit. The new marker stands.
type CleanupError struct {
	Files []string
	Err   error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("failed to remove %d old marker(s): %v", len(e.Files), e.Err)
}

func (e *CleanupError) Unwrap() error {
	return e.Err
}

func newCleanupError(files []string, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &CleanupError{Files: files, Err: errors.Join(errs...)}
}
