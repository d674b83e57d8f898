package sync

import (
	"errors"
	"fmt"

	"github.com/dl-alexandre/phonesync/internal/sync/executor"
	"github.com/dl-alexandre/phonesync/internal/sync/scanner"
	"github.com/dl-alexandre/phonesync/internal/sync/watermark"
)

// The failure taxonomy of a run. Each type unwraps to its cause.
type (
	ListingError     = scanner.ListingError
	TransferError    = executor.TransferError
	WatermarkError   = watermark.WatermarkError
	MarkerParseError = watermark.MarkerParseError
	CleanupError     = watermark.CleanupError
)

// ErrInvalidProfile wraps profile validation failures found before connecting
var ErrInvalidProfile = errors.New("invalid profile")

// ConnectionError is a failure to connect or log in
type ConnectionError struct {
	Addr         string
	AuthRejected bool
	Err          error
}

func (e *ConnectionError) Error() string {
	if e.AuthRejected {
		return fmt.Sprintf("authentication rejected by %s: %v", e.Addr, e.Err)
	}
	return fmt.Sprintf("failed to connect to %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// LocalDirectoryError is a missing, non-directory or read-only target
type LocalDirectoryError struct {
	Dir string
	Err error
}

func (e *LocalDirectoryError) Error() string {
	return fmt.Sprintf("local directory %s unusable: %v", e.Dir, e.Err)
}

func (e *LocalDirectoryError) Unwrap() error {
	return e.Err
}
