package profile

import (
	"github.com/dl-alexandre/phonesync/internal/sync/match"
)

// Update is a partial change to a Record. Nil scalars and nil list
// operations leave the corresponding field untouched.
type Update struct {
	Username        *string
	Password        *string
	LocalDirectory  *string
	RemoteHost      *string
	Port            *int
	CredentialStore *string

	SetDirectories    []string
	AddDirectories    []string
	RemoveDirectories []string

	SetExtensions    []string
	AddExtensions    []string
	RemoveExtensions []string
}

// IsEmpty reports whether the update changes nothing
func (u Update) IsEmpty() bool {
	return u.Username == nil && u.Password == nil && u.LocalDirectory == nil &&
		u.RemoteHost == nil && u.Port == nil && u.CredentialStore == nil &&
		u.SetDirectories == nil && len(u.AddDirectories) == 0 && len(u.RemoveDirectories) == 0 &&
		u.SetExtensions == nil && len(u.AddExtensions) == 0 && len(u.RemoveExtensions) == 0
}

// Apply returns a copy of r with the update merged in
func (u Update) Apply(r Record) Record {
	out := r.Clone()

	if u.Username != nil {
		out.Username = *u.Username
	}
	if u.Password != nil {
		out.Password = *u.Password
	}
	if u.LocalDirectory != nil {
		out.LocalDirectory = *u.LocalDirectory
	}
	if u.RemoteHost != nil {
		out.RemoteHost = *u.RemoteHost
	}
	if u.Port != nil {
		out.Port = *u.Port
	}
	if u.CredentialStore != nil {
		out.CredentialStore = *u.CredentialStore
	}

	out.RemoteDirectories = applyDirectories(out.RemoteDirectories, u.SetDirectories, u.AddDirectories, u.RemoveDirectories)
	out.Extensions = applyExtensions(out.Extensions, u.SetExtensions, u.AddExtensions, u.RemoveExtensions)

	return out
}

func applyDirectories(current, set, add, remove []string) []string {
	if set != nil {
		current = dedupe(set)
	}
	for _, d := range add {
		if d != "" && !contains(current, d) {
			current = append(current, d)
		}
	}
	if len(remove) > 0 {
		kept := current[:0:0]
		for _, d := range current {
			if !contains(remove, d) {
				kept = append(kept, d)
			}
		}
		current = kept
	}
	return current
}

func applyExtensions(current, set, add, remove []string) []string {
	if set == nil && len(add) == 0 && len(remove) == 0 {
		return current
	}
	base := current
	if set != nil {
		base = set
	}
	merged := match.NormalizeAll(append(append([]string{}, base...), add...))
	if len(remove) == 0 {
		return merged
	}
	drop := match.NormalizeAll(remove)
	kept := make([]string, 0, len(merged))
	for _, e := range merged {
		if !contains(drop, e) {
			kept = append(kept, e)
		}
	}
	return kept
}

func dedupe(list []string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != "" && !contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
