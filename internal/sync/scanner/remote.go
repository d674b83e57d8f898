package scanner

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/dl-alexandre/phonesync/internal/ftpclient"
	"github.com/dl-alexandre/phonesync/internal/logging"
	"github.com/dl-alexandre/phonesync/internal/sync/exclude"
	"github.com/jlaffaye/ftp"
)

// WalkFunc receives each file found by a walk. A non-nil return stops the
// walk and is returned from Walk unchanged.
type WalkFunc func(entry RemoteEntry) error

// RemoteWalker traverses a remote tree depth-first over one session
type RemoteWalker struct {
	session    ftpclient.Session
	exclusions *exclude.Set
	loc        *time.Location
	logger     logging.Logger
}

func NewRemoteWalker(session ftpclient.Session, exclusions *exclude.Set, loc *time.Location) *RemoteWalker {
	if loc == nil {
		loc = time.Local
	}
	return &RemoteWalker{
		session:    session,
		exclusions: exclusions,
		loc:        loc,
		logger:     logging.NewNoOpLogger(),
	}
}

// WithLogger sets the logger used for traversal diagnostics
func (w *RemoteWalker) WithLogger(logger logging.Logger) *RemoteWalker {
	if logger != nil {
		w.logger = logger
	}
	return w
}

type walkFrame struct {
	entries []RemoteEntry
	next    int
}

// Walk visits root in pre-order: entries in server order, each
// sub-directory descended into before its later siblings. Excluded
// sub-directories are never listed.
func (w *RemoteWalker) Walk(ctx context.Context, root string, fn WalkFunc) error {
	root = path.Clean(root)
	entries, err := w.list(root)
	if err != nil {
		return err
	}
	stack := []walkFrame{{entries: entries}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		top := &stack[len(stack)-1]
		if top.next >= len(top.entries) {
			stack = stack[:len(stack)-1]
			continue
		}
		entry := top.entries[top.next]
		top.next++

		if entry.IsDir {
			if w.exclusions.IsExcludedChild(entry.Dir, entry.Name) {
				w.logger.Debug("Skipping excluded directory", logging.F("path", entry.Path()))
				continue
			}
			children, err := w.list(entry.Path())
			if err != nil {
				return err
			}
			stack = append(stack, walkFrame{entries: children})
			continue
		}

		if err := fn(entry); err != nil {
			return err
		}
	}
	return nil
}

func (w *RemoteWalker) list(dir string) ([]RemoteEntry, error) {
	w.logger.Debug("Listing remote directory", logging.F("path", dir))
	entries, err := ListDirectory(w.session, dir, w.loc)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListDirectory returns the entries of one remote directory in server
// order, without the "." and ".." entries. The library reports cdir and
// pdir as plain folders, so a factless folder named after dir itself is
// taken to be the listed directory and dropped too.
func ListDirectory(session ftpclient.Session, dir string, loc *time.Location) ([]RemoteEntry, error) {
	if loc == nil {
		loc = time.Local
	}
	raw, err := session.List(dir)
	if err != nil {
		return nil, &ListingError{Path: dir, Err: err}
	}

	out := make([]RemoteEntry, 0, len(raw))
	for _, e := range raw {
		if e == nil || e.Name == "" || e.Name == "." || e.Name == ".." || strings.Contains(e.Name, "/") {
			continue
		}
		if isSelfEntry(dir, e) {
			continue
		}
		out = append(out, convertEntry(dir, e, loc))
	}
	return out, nil
}

func isSelfEntry(dir string, e *ftp.Entry) bool {
	return e.Type == ftp.EntryTypeFolder && dir != "/" && e.Name == path.Base(dir) &&
		e.Size == 0 && e.Time.IsZero()
}

func convertEntry(dir string, e *ftp.Entry, loc *time.Location) RemoteEntry {
	entry := RemoteEntry{
		Dir:    dir,
		Name:   e.Name,
		IsDir:  e.Type == ftp.EntryTypeFolder,
		IsLink: e.Type == ftp.EntryTypeLink,
		Size:   int64(e.Size),
	}
	if !e.Time.IsZero() {
		modified := e.Time.In(loc)
		entry.ModifiedAt = &modified
	}
	return entry
}
