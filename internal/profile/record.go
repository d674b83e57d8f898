package profile

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dl-alexandre/phonesync/internal/utils"
)

// Credential store values for Record.CredentialStore
const (
	CredentialStoreInline  = "inline"
	CredentialStoreKeyring = "keyring"
)

// Record is a profile as persisted in the profile store
type Record struct {
	Username          string   `json:"username"`
	Password          string   `json:"password,omitempty"`
	LocalDirectory    string   `json:"local_directory"`
	RemoteHost        string   `json:"remote_host"`
	Port              int      `json:"port"`
	RemoteDirectories []string `json:"remote_directories"`
	Extensions        []string `json:"extensions"`
	CredentialStore   string   `json:"credential_store,omitempty"`
}

// Clone returns a deep copy of r
func (r Record) Clone() Record {
	c := r
	c.RemoteDirectories = append([]string(nil), r.RemoteDirectories...)
	c.Extensions = append([]string(nil), r.Extensions...)
	return c
}

// UsesKeyring reports whether the password lives in the system keyring
func (r Record) UsesKeyring() bool {
	return r.CredentialStore == CredentialStoreKeyring
}

// SyncProfile is a fully resolved profile ready for a sync run
type SyncProfile struct {
	Name              string
	Username          string
	Password          string
	LocalDirectory    string
	RemoteHost        string
	Port              int
	RemoteDirectories []string
	Extensions        []string
}

// Address returns host:port for dialing
func (p SyncProfile) Address() string {
	return net.JoinHostPort(p.RemoteHost, strconv.Itoa(p.Port))
}

// Validate checks the static invariants of a profile
func (p SyncProfile) Validate() error {
	if p.RemoteHost == "" {
		return fmt.Errorf("profile '%s': remote_host is required", p.Name)
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("profile '%s': port must be between 1 and 65535, got: %d", p.Name, p.Port)
	}
	if p.LocalDirectory == "" {
		return fmt.Errorf("profile '%s': local_directory is required", p.Name)
	}
	if len(p.RemoteDirectories) == 0 {
		return fmt.Errorf("profile '%s': at least one remote directory is required", p.Name)
	}
	for _, d := range p.RemoteDirectories {
		if d == "" || d[0] != '/' {
			return fmt.Errorf("profile '%s': remote directory %q must be absolute", p.Name, d)
		}
	}
	if len(p.Extensions) == 0 {
		return fmt.Errorf("profile '%s': at least one extension is required", p.Name)
	}
	return nil
}

// CheckLocalDirectory verifies that dir exists, is a directory and is writable
func CheckLocalDirectory(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("local directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("local directory %s is not a directory", dir)
	}
	probe, err := os.CreateTemp(dir, "."+utils.AppName+"-probe-*")
	if err != nil {
		return fmt.Errorf("local directory %s is not writable: %w", dir, err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(filepath.Clean(name))
	return nil
}
