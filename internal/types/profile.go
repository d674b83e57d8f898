package types

import (
	"net"
	"strconv"
	"strings"
)

// ProfileSummary is the presentation form of a stored profile
type ProfileSummary struct {
	Name              string   `json:"name"`
	Username          string   `json:"username"`
	Password          string   `json:"password,omitempty"`
	RemoteHost        string   `json:"remoteHost"`
	Port              int      `json:"port"`
	LocalDirectory    string   `json:"localDirectory"`
	RemoteDirectories []string `json:"remoteDirectories"`
	Extensions        []string `json:"extensions"`
	CredentialStore   string   `json:"credentialStore,omitempty"`
}

// Address returns host:port, or "-" when no host is set
func (p ProfileSummary) Address() string {
	if p.RemoteHost == "" {
		return "-"
	}
	return net.JoinHostPort(p.RemoteHost, strconv.Itoa(p.Port))
}

// ProfileList is the result of profile list
type ProfileList struct {
	Profiles []ProfileSummary `json:"profiles"`
}

func (l *ProfileList) Headers() []string {
	return []string{"Name", "Address", "Local Directory", "Remote Directories", "Extensions"}
}

func (l *ProfileList) Rows() [][]string {
	rows := make([][]string, len(l.Profiles))
	for i, p := range l.Profiles {
		rows[i] = []string{
			p.Name,
			p.Address(),
			truncateText(orDash(p.LocalDirectory), 40),
			truncateText(joinOrDash(p.RemoteDirectories), 40),
			truncateText(joinOrDash(p.Extensions), 30),
		}
	}
	return rows
}

func (l *ProfileList) EmptyMessage() string {
	return "No profiles configured"
}

// ProfileDetail renders one profile as key/value rows
type ProfileDetail struct {
	ProfileSummary
}

func (d *ProfileDetail) Headers() []string {
	return []string{"Field", "Value"}
}

func (d *ProfileDetail) Rows() [][]string {
	store := d.CredentialStore
	if store == "" {
		store = "inline"
	}
	return [][]string{
		{"name", d.Name},
		{"username", orDash(d.Username)},
		{"password", orDash(d.Password)},
		{"credential_store", store},
		{"remote_host", orDash(d.RemoteHost)},
		{"port", strconv.Itoa(d.Port)},
		{"local_directory", orDash(d.LocalDirectory)},
		{"remote_directories", joinOrDash(d.RemoteDirectories)},
		{"extensions", joinOrDash(d.Extensions)},
	}
}

func (d *ProfileDetail) EmptyMessage() string {
	return "No profile data"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func joinOrDash(list []string) string {
	if len(list) == 0 {
		return "-"
	}
	return strings.Join(list, ", ")
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
