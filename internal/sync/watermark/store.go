package watermark

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dl-alexandre/phonesync/internal/logging"
	"github.com/dl-alexandre/phonesync/internal/utils"
)

var markerPattern = regexp.MustCompile(utils.MarkerPattern)

// Epoch is the watermark of a directory without any valid marker
var Epoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.Local)

// Snapshot is the watermark state of a local directory
type Snapshot struct {
	Watermark time.Time
	// Markers are the full paths of every marker file found, sorted by name
	Markers []string
}

// Store reads and writes marker files
type Store struct {
	logger logging.Logger
	now    func() time.Time
}

func NewStore(logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Store{logger: logger, now: time.Now}
}

// IsMarkerName reports whether a file name is a marker name
func IsMarkerName(name string) bool {
	return markerPattern.MatchString(name)
}

// ParseLine parses one trimmed marker line
func ParseLine(line string) (time.Time, bool) {
	ts, err := time.ParseInLocation(utils.WatermarkLayout, strings.TrimSpace(line), time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Format renders ts as marker content
func Format(ts time.Time) string {
	return ts.In(time.Local).Format(utils.WatermarkLayout)
}

// MarkerName returns the file name of the marker for ts
func MarkerName(ts time.Time) string {
	return utils.MarkerPrefix + ts.In(time.Local).Format(utils.MarkerNameLayout) + utils.MarkerSuffix
}

// Truncate drops seconds and below, in local time
func Truncate(ts time.Time) time.Time {
	ts = ts.In(time.Local)
	return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), 0, 0, time.Local)
}

// Read returns the maximum timestamp over all marker files in dir
func (s *Store) Read(dir string) (Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Snapshot{}, &WatermarkError{Dir: dir, Err: err}
	}

	snap := Snapshot{Watermark: Epoch}
	names := make([]string, 0)
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !IsMarkerName(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		file := filepath.Join(dir, name)
		snap.Markers = append(snap.Markers, file)

		latest, found, err := readMarker(file)
		if err != nil {
			perr := &MarkerParseError{File: file, Err: err}
			s.logger.Warn("Ignoring unreadable marker", logging.F("file", file), logging.F("error", perr.Error()))
			continue
		}
		if !found {
			s.logger.Debug("Marker has no valid timestamp", logging.F("file", file))
			continue
		}
		if latest.After(snap.Watermark) {
			snap.Watermark = latest
		}
	}

	return snap, nil
}

// openMarker is swapped in tests
var openMarker = func(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

// readMarker returns the latest valid timestamp in file. Lines of any
// length are read; those that do not parse are skipped.
func readMarker(file string) (time.Time, bool, error) {
	f, err := openMarker(file)
	if err != nil {
		return time.Time{}, false, err
	}
	defer f.Close()

	var latest time.Time
	found := false
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadString('\n')
		if ts, ok := ParseLine(line); ok && (!found || ts.After(latest)) {
			latest = ts
			found = true
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return latest, found, err
		}
	}
	return latest, found, nil
}

// Commit durably writes a marker for ts and then removes the old markers.
// A write failure deletes nothing. Failures to delete old markers are
// returned as a *CleanupError alongside the new marker path.
func (s *Store) Commit(dir string, ts time.Time, oldMarkers []string) (string, error) {
	target := filepath.Join(dir, MarkerName(ts))
	if err := writeAtomic(target, []byte(Format(ts))); err != nil {
		return "", &WatermarkError{Dir: dir, Err: err}
	}
	s.logger.Info("Watermark committed", logging.F("marker", target), logging.F("watermark", Format(ts)))

	var failed []string
	var errs []error
	for _, old := range oldMarkers {
		if filepath.Clean(old) == filepath.Clean(target) {
			continue
		}
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			failed = append(failed, old)
			errs = append(errs, err)
			continue
		}
		s.logger.Debug("Removed old marker", logging.F("file", old))
	}

	return target, newCleanupError(failed, errs)
}

func writeAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".watermark-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp marker: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write marker: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync marker: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close marker: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod marker: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename marker: %w", err)
	}
	return nil
}

// Next returns the watermark to commit after a run: the later of prev and
// the current minute.
func (s *Store) Next(prev time.Time) time.Time {
	now := Truncate(s.now())
	if prev.After(now) {
		return prev
	}
	return now
}

// SetClock replaces the time source used by Next
func (s *Store) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}
