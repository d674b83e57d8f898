package exclude

import (
	"path"
	"sort"
	"strings"

	"github.com/dl-alexandre/phonesync/internal/utils"
)

// Set holds remote directory paths that are never descended into.
// Matching is exact and case-sensitive on the full remote path.
type Set struct {
	paths map[string]struct{}
}

func DefaultPaths() []string {
	return append([]string{}, utils.DefaultExclusions...)
}

// New builds a Set from the defaults plus extra paths
func New(extra []string) *Set {
	s := &Set{paths: make(map[string]struct{})}
	for _, p := range DefaultPaths() {
		s.Add(p)
	}
	for _, p := range extra {
		s.Add(p)
	}
	return s
}

// Add inserts a path; blanks are ignored and trailing slashes dropped
func (s *Set) Add(p string) {
	p = strings.TrimSpace(p)
	if p == "" {
		return
	}
	if p != "/" {
		p = strings.TrimRight(p, "/")
	}
	s.paths[p] = struct{}{}
}

func (s *Set) IsExcluded(remotePath string) bool {
	if s == nil {
		return false
	}
	_, ok := s.paths[remotePath]
	return ok
}

// IsExcludedChild reports whether dir/name is excluded
func (s *Set) IsExcludedChild(dir, name string) bool {
	return s.IsExcluded(path.Join(dir, name))
}

func (s *Set) Paths() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
