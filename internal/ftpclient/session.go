package ftpclient

import (
	"io"
	"net"
	"strconv"

	"github.com/jlaffaye/ftp"
)

// Session is a logged-in FTP control connection
type Session interface {
	// List returns the MLSD entries of a directory
	List(path string) ([]*ftp.Entry, error)
	// Retr opens a binary download of a file; the caller closes the reader
	Retr(path string) (io.ReadCloser, error)
	Quit() error
}

// Endpoint identifies a server and the account to log in with
type Endpoint struct {
	Host     string
	Port     int
	Username string
	Password string
}

func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

type serverSession struct {
	conn *ftp.ServerConn
}

func (s *serverSession) List(path string) ([]*ftp.Entry, error) {
	return s.conn.List(path)
}

func (s *serverSession) Retr(path string) (io.ReadCloser, error) {
	resp, err := s.conn.Retr(path)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *serverSession) Quit() error {
	return s.conn.Quit()
}
