package mocks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/textproto"
	"path"
	"sync"
	"time"

	"github.com/dl-alexandre/phonesync/internal/ftpclient"
	"github.com/jlaffaye/ftp"
)

// MockServer is an in-memory FTP server tree. It implements
// ftpclient.Dialer; sessions it hands out read the live tree.
type MockServer struct {
	mu    sync.Mutex
	dirs  map[string][]*ftp.Entry
	files map[string][]byte

	Username string
	Password string

	// DialFunc overrides Dial when set
	DialFunc func(ctx context.Context, ep ftpclient.Endpoint) (ftpclient.Session, error)
	// ListErrors and RetrErrors fail the given paths
	ListErrors map[string]error
	RetrErrors map[string]error
	// OmitDotEntries drops the cdir/pdir entries from listings
	OmitDotEntries bool

	Dials     int
	Listed    []string
	Retrieved []string
}

// NewMockServer creates a server with an empty root that accepts user/pass
func NewMockServer(username, password string) *MockServer {
	return &MockServer{
		dirs:       map[string][]*ftp.Entry{"/": nil},
		files:      make(map[string][]byte),
		Username:   username,
		Password:   password,
		ListErrors: make(map[string]error),
		RetrErrors: make(map[string]error),
	}
}

// AddDir creates a directory and any missing parents
func (s *MockServer) AddDir(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addDirLocked(path.Clean(p))
}

func (s *MockServer) addDirLocked(p string) {
	if _, ok := s.dirs[p]; ok {
		return
	}
	parent := path.Dir(p)
	s.addDirLocked(parent)
	s.dirs[p] = nil
	s.dirs[parent] = append(s.dirs[parent], &ftp.Entry{
		Name: path.Base(p),
		Type: ftp.EntryTypeFolder,
	})
}

// AddFile creates or replaces a file. A zero modified time produces an
// entry without a modify fact.
func (s *MockServer) AddFile(p string, content []byte, modified time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p = path.Clean(p)
	parent := path.Dir(p)
	s.addDirLocked(parent)

	entry := &ftp.Entry{
		Name: path.Base(p),
		Type: ftp.EntryTypeFile,
		Size: uint64(len(content)),
	}
	if !modified.IsZero() {
		entry.Time = modified.UTC()
	}

	if _, exists := s.files[p]; exists {
		for i, e := range s.dirs[parent] {
			if e.Name == entry.Name {
				s.dirs[parent][i] = entry
			}
		}
	} else {
		s.dirs[parent] = append(s.dirs[parent], entry)
	}
	s.files[p] = append([]byte(nil), content...)
}

// AddLink adds a symlink entry pointing at an existing file's content
func (s *MockServer) AddLink(p, target string, modified time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p = path.Clean(p)
	parent := path.Dir(p)
	s.addDirLocked(parent)
	content := s.files[path.Clean(target)]
	entry := &ftp.Entry{
		Name:   path.Base(p),
		Target: target,
		Type:   ftp.EntryTypeLink,
		Size:   uint64(len(content)),
	}
	if !modified.IsZero() {
		entry.Time = modified.UTC()
	}
	s.dirs[parent] = append(s.dirs[parent], entry)
	s.files[p] = content
}

// Dial implements ftpclient.Dialer
func (s *MockServer) Dial(ctx context.Context, ep ftpclient.Endpoint) (ftpclient.Session, error) {
	s.mu.Lock()
	s.Dials++
	dialFunc := s.DialFunc
	s.mu.Unlock()

	if dialFunc != nil {
		return dialFunc(ctx, ep)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ep.Username != s.Username || ep.Password != s.Password {
		return nil, fmt.Errorf("login as %s: %w", ep.Username,
			&textproto.Error{Code: ftp.StatusNotLoggedIn, Msg: "Login incorrect."})
	}
	return &MockSession{server: s}, nil
}

// MockSession is a session on a MockServer
type MockSession struct {
	server *MockServer
	closed bool
}

func (m *MockSession) List(p string) ([]*ftp.Entry, error) {
	s := m.server
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("connection closed")
	}
	p = path.Clean(p)
	s.Listed = append(s.Listed, p)
	if err := s.ListErrors[p]; err != nil {
		return nil, err
	}
	children, ok := s.dirs[p]
	if !ok {
		return nil, &textproto.Error{Code: ftp.StatusFileUnavailable, Msg: "No such directory."}
	}

	out := make([]*ftp.Entry, 0, len(children)+2)
	if !s.OmitDotEntries {
		out = append(out,
			&ftp.Entry{Name: ".", Type: ftp.EntryTypeFolder},
			&ftp.Entry{Name: "..", Type: ftp.EntryTypeFolder},
		)
	}
	for _, e := range children {
		c := *e
		out = append(out, &c)
	}
	return out, nil
}

func (m *MockSession) Retr(p string) (io.ReadCloser, error) {
	s := m.server
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("connection closed")
	}
	p = path.Clean(p)
	if err := s.RetrErrors[p]; err != nil {
		return nil, err
	}
	content, ok := s.files[p]
	if !ok {
		return nil, &textproto.Error{Code: ftp.StatusFileUnavailable, Msg: "No such file."}
	}
	s.Retrieved = append(s.Retrieved, p)
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (m *MockSession) Quit() error {
	m.closed = true
	return nil
}

// RetrievedCount returns how many downloads the server served
func (s *MockServer) RetrievedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Retrieved)
}
