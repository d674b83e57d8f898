package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dl-alexandre/phonesync/internal/utils"
)

// ErrProfileNotFound is returned when a named profile does not exist
var ErrProfileNotFound = errors.New("profile not found")

// Store is the JSON-backed collection of named profiles
type Store struct {
	path     string
	profiles map[string]Record
}

// Load reads the store at path. A missing file yields an empty store.
func Load(path string) (*Store, error) {
	s := &Store{path: path, profiles: make(map[string]Record)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read profile store: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.profiles); err != nil {
		return nil, fmt.Errorf("failed to parse profile store %s: %w", path, err)
	}
	if s.profiles == nil {
		s.profiles = make(map[string]Record)
	}
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

// Names returns all profile names, sorted
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) Get(name string) (Record, error) {
	rec, ok := s.profiles[name]
	if !ok {
		return Record{}, fmt.Errorf("%w: '%s'", ErrProfileNotFound, name)
	}
	return rec.Clone(), nil
}

// Edit merges u onto the named profile and stores the result. A new profile
// starts from the default template when one exists.
func (s *Store) Edit(name string, u Update) Record {
	base, ok := s.profiles[name]
	if !ok {
		if tmpl, found := s.profiles[utils.DefaultProfileName]; found {
			base = tmpl
		}
	}
	rec := u.Apply(base)
	s.profiles[name] = rec
	return rec.Clone()
}

// Put replaces the named profile as-is
func (s *Store) Put(name string, rec Record) {
	s.profiles[name] = rec.Clone()
}

// Delete removes the named profile
func (s *Store) Delete(name string) error {
	if _, ok := s.profiles[name]; !ok {
		return fmt.Errorf("%w: '%s'", ErrProfileNotFound, name)
	}
	delete(s.profiles, name)
	return nil
}

// Save atomically writes the store with owner-only permissions
func (s *Store) Save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	data, err := json.MarshalIndent(s.profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".profiles-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync profiles: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close profiles: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace profile store: %w", err)
	}
	return nil
}
