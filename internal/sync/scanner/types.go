package scanner

import (
	"fmt"
	"path"
	"time"
)

// RemoteEntry is one MLSD entry of a remote directory
type RemoteEntry struct {
	Dir    string
	Name   string
	IsDir  bool
	IsLink bool
	Size   int64
	// ModifiedAt is the server modify time in the walker's location;
	// nil when the server sent no modify fact
	ModifiedAt *time.Time
}

// Path returns the full remote path of the entry
func (e RemoteEntry) Path() string {
	return path.Join(e.Dir, e.Name)
}

// ListingError is a failed directory listing
type ListingError struct {
	Path string
	Err  error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("failed to list %s: %v", e.Path, e.Err)
}

func (e *ListingError) Unwrap() error {
	return e.Err
}
