package scanner

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/dl-alexandre/phonesync/internal/ftpclient"
	"github.com/dl-alexandre/phonesync/internal/sync/exclude"
	"github.com/dl-alexandre/phonesync/internal/testing/mocks"
	"github.com/jlaffaye/ftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var modTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func dialMock(t *testing.T, server *mocks.MockServer) ftpclient.Session {
	t.Helper()
	session, err := server.Dial(context.Background(), ftpclient.Endpoint{Username: "u", Password: "p"})
	require.NoError(t, err)
	return session
}

func collect(t *testing.T, w *RemoteWalker, root string) []string {
	t.Helper()
	var paths []string
	err := w.Walk(context.Background(), root, func(e RemoteEntry) error {
		paths = append(paths, e.Path())
		return nil
	})
	require.NoError(t, err)
	return paths
}

func TestWalkPreOrder(t *testing.T) {
	server := mocks.NewMockServer("u", "p")
	server.AddFile("/DCIM/a.jpg", []byte("a"), modTime)
	server.AddFile("/DCIM/Camera/b.jpg", []byte("b"), modTime)
	server.AddFile("/DCIM/Camera/Deep/c.jpg", []byte("c"), modTime)
	server.AddFile("/DCIM/d.jpg", []byte("d"), modTime)

	w := NewRemoteWalker(dialMock(t, server), exclude.New(nil), time.UTC)
	got := collect(t, w, "/DCIM")

	assert.Equal(t, []string{
		"/DCIM/a.jpg",
		"/DCIM/Camera/b.jpg",
		"/DCIM/Camera/Deep/c.jpg",
		"/DCIM/d.jpg",
	}, got)
	assert.Equal(t, []string{"/DCIM", "/DCIM/Camera", "/DCIM/Camera/Deep"}, server.Listed)
}

func TestWalkSkipsExcludedWithoutListing(t *testing.T) {
	server := mocks.NewMockServer("u", "p")
	server.AddFile("/Android/media/ga.asti.android/x.jpg", []byte("x"), modTime)
	server.AddFile("/Android/media/com.whatsapp/y.jpg", []byte("y"), modTime)

	w := NewRemoteWalker(dialMock(t, server), exclude.New(nil), time.UTC)
	got := collect(t, w, "/Android")

	assert.Equal(t, []string{"/Android/media/com.whatsapp/y.jpg"}, got)
	assert.NotContains(t, server.Listed, "/Android/media/ga.asti.android")
}

func TestWalkConvertsModifyTime(t *testing.T) {
	server := mocks.NewMockServer("u", "p")
	server.AddFile("/Pictures/a.jpg", []byte("abc"), modTime)
	server.AddFile("/Pictures/nomodify.jpg", []byte("x"), time.Time{})

	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skip("tzdata not available")
	}

	var entries []RemoteEntry
	w := NewRemoteWalker(dialMock(t, server), nil, paris)
	require.NoError(t, w.Walk(context.Background(), "/Pictures", func(e RemoteEntry) error {
		entries = append(entries, e)
		return nil
	}))

	require.Len(t, entries, 2)
	require.NotNil(t, entries[0].ModifiedAt)
	assert.True(t, entries[0].ModifiedAt.Equal(modTime))
	assert.Equal(t, 11, entries[0].ModifiedAt.Hour())
	assert.Equal(t, int64(3), entries[0].Size)
	assert.Nil(t, entries[1].ModifiedAt)
}

func TestWalkYieldsLinksAsFiles(t *testing.T) {
	server := mocks.NewMockServer("u", "p")
	server.AddFile("/DCIM/a.jpg", []byte("a"), modTime)
	server.AddLink("/DCIM/link.jpg", "/DCIM/a.jpg", modTime)

	w := NewRemoteWalker(dialMock(t, server), nil, time.UTC)
	assert.Equal(t, []string{"/DCIM/a.jpg", "/DCIM/link.jpg"}, collect(t, w, "/DCIM"))
}

func TestWalkListingError(t *testing.T) {
	server := mocks.NewMockServer("u", "p")
	server.AddFile("/DCIM/Broken/a.jpg", []byte("a"), modTime)
	server.ListErrors["/DCIM/Broken"] = errors.New("550 permission denied")

	w := NewRemoteWalker(dialMock(t, server), nil, time.UTC)
	err := w.Walk(context.Background(), "/DCIM", func(RemoteEntry) error { return nil })

	var listErr *ListingError
	require.True(t, errors.As(err, &listErr))
	assert.Equal(t, "/DCIM/Broken", listErr.Path)
}

func TestWalkMissingRoot(t *testing.T) {
	server := mocks.NewMockServer("u", "p")
	w := NewRemoteWalker(dialMock(t, server), nil, time.UTC)

	err := w.Walk(context.Background(), "/Nope", func(RemoteEntry) error { return nil })
	var listErr *ListingError
	assert.True(t, errors.As(err, &listErr))
}

func TestWalkCallbackErrorStops(t *testing.T) {
	server := mocks.NewMockServer("u", "p")
	server.AddFile("/DCIM/a.jpg", []byte("a"), modTime)
	server.AddFile("/DCIM/b.jpg", []byte("b"), modTime)

	stop := errors.New("stop")
	calls := 0
	w := NewRemoteWalker(dialMock(t, server), nil, time.UTC)
	err := w.Walk(context.Background(), "/DCIM", func(RemoteEntry) error {
		calls++
		return stop
	})

	assert.Same(t, stop, err)
	assert.Equal(t, 1, calls)
}

func TestWalkHonorsCancellation(t *testing.T) {
	server := mocks.NewMockServer("u", "p")
	server.AddFile("/DCIM/a.jpg", []byte("a"), modTime)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := NewRemoteWalker(dialMock(t, server), nil, time.UTC)
	err := w.Walk(ctx, "/DCIM", func(RemoteEntry) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListDirectorySkipsDotEntries(t *testing.T) {
	server := mocks.NewMockServer("u", "p")
	server.AddDir("/DCIM/Camera")
	server.AddFile("/DCIM/a.jpg", []byte("a"), modTime)

	entries, err := ListDirectory(dialMock(t, server), "/DCIM", time.UTC)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].IsDir)
	assert.Equal(t, "Camera", entries[0].Name)
	assert.Equal(t, "/DCIM/a.jpg", entries[1].Path())
}

type cannedSession struct {
	listings map[string][]*ftp.Entry
	listed   []string
}

func (c *cannedSession) List(p string) ([]*ftp.Entry, error) {
	c.listed = append(c.listed, p)
	entries, ok := c.listings[p]
	if !ok {
		return nil, errors.New("550 no such directory")
	}
	return entries, nil
}

func (c *cannedSession) Retr(string) (io.ReadCloser, error) { return nil, errors.New("not supported") }
func (c *cannedSession) Quit() error                         { return nil }

func TestWalkSkipsCurrentDirectoryNamedByBasename(t *testing.T) {
	session := &cannedSession{listings: map[string][]*ftp.Entry{
		"/DCIM": {
			{Name: "DCIM", Type: ftp.EntryTypeFolder},
			{Name: "a.jpg", Type: ftp.EntryTypeFile, Size: 1, Time: modTime},
		},
	}}

	w := NewRemoteWalker(session, nil, time.UTC)
	assert.Equal(t, []string{"/DCIM/a.jpg"}, collect(t, w, "/DCIM"))
	assert.Equal(t, []string{"/DCIM"}, session.listed)
}

func TestWalkDescendsIntoSameNamedSubdirectory(t *testing.T) {
	session := &cannedSession{listings: map[string][]*ftp.Entry{
		"/DCIM": {
			{Name: "DCIM", Type: ftp.EntryTypeFolder, Time: modTime},
		},
		"/DCIM/DCIM": {
			{Name: "b.jpg", Type: ftp.EntryTypeFile, Size: 1, Time: modTime},
		},
	}}

	w := NewRemoteWalker(session, nil, time.UTC)
	assert.Equal(t, []string{"/DCIM/DCIM/b.jpg"}, collect(t, w, "/DCIM"))
}
