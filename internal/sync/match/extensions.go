package match

import (
	"sort"
	"strings"
)

// Extensions is a normalized set of file name suffixes such as ".jpg"
type Extensions struct {
	list []string
}

// Normalize trims, lowercases and dot-prefixes an extension; blank input
// returns "".
func Normalize(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// NormalizeAll normalizes, deduplicates and sorts a list of extensions
func NormalizeAll(exts []string) []string {
	seen := make(map[string]struct{}, len(exts))
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		n := Normalize(e)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func NewExtensions(exts []string) *Extensions {
	return &Extensions{list: NormalizeAll(exts)}
}

// Match reports whether name ends with one of the extensions, ignoring case
func (e *Extensions) Match(name string) bool {
	if e == nil {
		return false
	}
	lower := strings.ToLower(name)
	for _, ext := range e.list {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func (e *Extensions) List() []string {
	return append([]string{}, e.list...)
}

func (e *Extensions) Empty() bool {
	return e == nil || len(e.list) == 0
}
