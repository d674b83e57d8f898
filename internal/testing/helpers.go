package testing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dl-alexandre/phonesync/internal/profile"
	"github.com/stretchr/testify/require"
)

// TestProfile returns a valid profile syncing /DCIM and /Pictures into localDir
func TestProfile(localDir string) profile.SyncProfile {
	return profile.SyncProfile{
		Name:              "test-profile",
		Username:          "phone",
		Password:          "secret",
		LocalDirectory:    localDir,
		RemoteHost:        "192.168.0.11",
		Port:              2121,
		RemoteDirectories: []string{"/DCIM", "/Pictures"},
		Extensions:        []string{".jpg", ".mp4"},
	}
}

// LocalTime builds a minute-precision time in the local zone
func LocalTime(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.Local)
}

// WriteLocalFile creates a file under dir with the given content
func WriteLocalFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, content, 0644), "write %s", p)
	return p
}

// ListLocalFiles returns the sorted names of the files in dir
func ListLocalFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err, "list %s", dir)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
