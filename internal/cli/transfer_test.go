package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dl-alexandre/phonesync/internal/credentials"
	"github.com/dl-alexandre/phonesync/internal/ftpclient"
	"github.com/dl-alexandre/phonesync/internal/profile"
	testutil "github.com/dl-alexandre/phonesync/internal/testing"
	"github.com/dl-alexandre/phonesync/internal/testing/mocks"
	"github.com/dl-alexandre/phonesync/internal/types"
	"github.com/dl-alexandre/phonesync/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope[T any] struct {
	Command  string             `json:"command"`
	TraceID  string             `json:"traceId"`
	Data     T                  `json:"data"`
	Warnings []types.CLIWarning `json:"warnings"`
	Errors   []types.CLIError   `json:"errors"`
}

func decodeEnvelope[T any](t *testing.T, stdout string) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal([]byte(stdout), &env), "output is not a JSON envelope:\n%s", stdout)
	return env
}

type cliFixture struct {
	configDir string
	profiles  string
	localDir  string
	server    *mocks.MockServer
	creds     *credentials.MemoryStorage
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	root := t.TempDir()
	f := &cliFixture{
		configDir: filepath.Join(root, "config"),
		profiles:  filepath.Join(root, "config", "profiles.json"),
		localDir:  filepath.Join(root, "photos"),
		server:    mocks.NewMockServer("phone", "secret"),
		creds:     credentials.NewMemoryStorage(),
	}
	require.NoError(t, os.MkdirAll(f.localDir, 0755))
	t.Setenv("PHONESYNC_CONFIG_DIR", f.configDir)

	prevDialer, prevCreds := newDialer, newCredentialBackend
	newDialer = func(ftpclient.Options) ftpclient.Dialer { return f.server }
	newCredentialBackend = func() credentials.StorageBackend { return f.creds }
	t.Cleanup(func() {
		newDialer, newCredentialBackend = prevDialer, prevCreds
	})
	return f
}

func (f *cliFixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	args = append(args, "--profile", "pixel", "--profiles", f.profiles, "--json")
	stdout, _, err := executeCommand(t, args...)
	return stdout, err
}

// saveProfile stores rec as the "pixel" profile
func (f *cliFixture) saveProfile(t *testing.T, rec profile.Record) {
	t.Helper()
	store, err := profile.Load(f.profiles)
	require.NoError(t, err)
	store.Put("pixel", rec)
	require.NoError(t, store.Save())
}

func TestProfileEditShowExtractHistory(t *testing.T) {
	f := newCLIFixture(t)
	modified := time.Now().Add(-time.Hour)
	f.server.AddFile("/DCIM/Camera/IMG_0001.jpg", []byte("first"), modified)
	f.server.AddFile("/DCIM/Camera/IMG_0002.JPG", []byte("second"), modified)
	f.server.AddFile("/DCIM/Camera/notes.txt", []byte("skip"), modified)

	stdout, err := f.run(t, "profile", "edit",
		"--username", "phone",
		"--password", "secret",
		"--credential-store", "keyring",
		"--remote-host", "192.168.0.11",
		"--local-directory", f.localDir,
		"--remote-directories", "/DCIM",
		"--extensions", "jpg",
	)
	require.NoError(t, err, "profile edit")
	assert.NotContains(t, stdout, "secret", "profile edit output leaks the password")

	store, err := profile.Load(f.profiles)
	require.NoError(t, err)
	rec, err := store.Get("pixel")
	require.NoError(t, err, "profile not saved")
	assert.Empty(t, rec.Password, "password should live in the keyring")
	assert.True(t, rec.UsesKeyring())
	assert.Equal(t, utils.DefaultPort, rec.Port)
	pw, err := f.creds.Load("pixel")
	require.NoError(t, err)
	assert.Equal(t, "secret", pw)

	stdout, err = f.run(t, "profile", "show")
	require.NoError(t, err, "profile show")
	shown := decodeEnvelope[types.ProfileSummary](t, stdout)
	assert.Equal(t, "(keyring)", shown.Data.Password)
	assert.Equal(t, "192.168.0.11", shown.Data.RemoteHost)

	stdout, err = f.run(t, "transfer", "extract")
	require.NoError(t, err, "extract")
	first := decodeEnvelope[types.SyncSummary](t, stdout)
	require.Empty(t, first.Errors)
	assert.Equal(t, 2, first.Data.Counts.Downloaded)
	assert.Equal(t, 1, first.Data.Counts.Ignored)
	assert.NotEmpty(t, first.TraceID)
	assert.NotEmpty(t, first.Data.Marker)
	assert.NotNil(t, first.Data.Watermark)
	files := testutil.ListLocalFiles(t, f.localDir)
	assert.Subset(t, files, []string{"IMG_0001.jpg", "IMG_0002.JPG", first.Data.Marker})

	stdout, err = f.run(t, "transfer", "extract")
	require.NoError(t, err, "second extract")
	second := decodeEnvelope[types.SyncSummary](t, stdout)
	assert.Equal(t, 0, second.Data.Counts.Downloaded)
	assert.Equal(t, 2, second.Data.Counts.Filtered, "everything should be behind the watermark")

	stdout, err = f.run(t, "transfer", "history")
	require.NoError(t, err, "history")
	history := decodeEnvelope[types.RunHistory](t, stdout)
	require.Len(t, history.Data.Runs, 2)
	assert.Equal(t, 0, history.Data.Runs[0].Downloaded, "newest run first")
	assert.Equal(t, 2, history.Data.Runs[1].Downloaded)
	for _, r := range history.Data.Runs {
		assert.Equal(t, "succeeded", r.State)
		assert.Equal(t, "pixel", r.Profile)
	}
}

func TestExtractAuthFailure(t *testing.T) {
	f := newCLIFixture(t)
	f.server.Password = "changed"
	f.server.AddFile("/DCIM/IMG_0001.jpg", []byte("x"), time.Now())
	f.saveProfile(t, profile.Record{
		Username:          "phone",
		Password:          "secret",
		LocalDirectory:    f.localDir,
		RemoteHost:        "192.168.0.11",
		Port:              2121,
		RemoteDirectories: []string{"/DCIM"},
		Extensions:        []string{".jpg"},
	})
	testutil.WriteLocalFile(t, f.localDir, "lastTimestamp_2024-01-01_10-00.txt", []byte("2024-01-01 10:00"))

	stdout, err := f.run(t, "transfer", "extract")
	require.NoError(t, err, "without --strict a failed sync should not fail the command")
	env := decodeEnvelope[any](t, stdout)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, utils.ErrCodeAuthRejected, env.Errors[0].Code)

	_, err = f.run(t, "transfer", "extract", "--strict")
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr, "--strict should fail the command")
	assert.Equal(t, utils.ExitAuthRejected, utils.GetExitCode(appErr.CLIError.Code))

	assert.Equal(t, []string{"lastTimestamp_2024-01-01_10-00.txt"}, testutil.ListLocalFiles(t, f.localDir),
		"failed run must leave the marker alone")
}

func TestExtractUnknownProfile(t *testing.T) {
	newCLIFixture(t)
	stdout, _, err := executeCommand(t, "transfer", "extract", "--profile", "missing", "--json")
	require.NoError(t, err)
	env := decodeEnvelope[any](t, stdout)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, utils.ErrCodeProfileNotFound, env.Errors[0].Code)
}

func TestExploreListsOneDirectory(t *testing.T) {
	f := newCLIFixture(t)
	f.server.AddFile("/DCIM/Camera/IMG_0001.jpg", []byte("x"), time.Now())
	f.server.AddFile("/DCIM/cover.jpg", []byte("cover"), time.Now())
	f.saveProfile(t, profile.Record{Username: "phone", Password: "secret", RemoteHost: "192.168.0.11", Port: 2121})

	stdout, err := f.run(t, "transfer", "explore", "--directory", "/DCIM")
	require.NoError(t, err, "explore")
	env := decodeEnvelope[types.RemoteListing](t, stdout)
	assert.Equal(t, "/DCIM", env.Data.Directory)
	require.Len(t, env.Data.Entries, 2)

	kinds := map[string]string{}
	for _, e := range env.Data.Entries {
		kinds[e.Name] = e.Type
	}
	assert.Equal(t, map[string]string{"Camera": "dir", "cover.jpg": "file"}, kinds)
	assert.Zero(t, f.server.RetrievedCount(), "explore must not download")
}

func TestConfigSetAndReset(t *testing.T) {
	t.Setenv("PHONESYNC_CONFIG_DIR", t.TempDir())

	_, _, err := executeCommand(t, "config", "set", "rateLimit", "2MiB", "--json")
	require.NoError(t, err, "config set")

	stdout, _, err := executeCommand(t, "config", "set", "maxRetries", "99", "--json")
	require.NoError(t, err, "config set")
	env := decodeEnvelope[any](t, stdout)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, utils.ErrCodeInvalidArgument, env.Errors[0].Code)

	stdout, _, err = executeCommand(t, "config", "show", "--json")
	require.NoError(t, err, "config show")
	assert.Contains(t, stdout, `"rateLimit": "2MiB"`)
	assert.Contains(t, stdout, `"maxRetries": 2`)

	_, _, err = executeCommand(t, "config", "reset", "--json")
	require.NoError(t, err, "config reset")
	stdout, _, err = executeCommand(t, "config", "show", "--json")
	require.NoError(t, err, "config show")
	assert.Contains(t, stdout, `"rateLimit": ""`, "reset should clear rateLimit")
}
