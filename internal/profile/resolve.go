package profile

import (
	"errors"
	"fmt"

	"github.com/dl-alexandre/phonesync/internal/credentials"
)

// ErrCredentialMissing is returned when a keyring profile has no stored password
var ErrCredentialMissing = errors.New("credential missing")

// Resolve loads a profile, applies in-memory overrides and returns a
// validated SyncProfile. Overrides are never written back to the store.
func Resolve(store *Store, creds credentials.StorageBackend, name string, overrides Update) (SyncProfile, error) {
	rec, err := store.Get(name)
	if err != nil {
		return SyncProfile{}, err
	}
	rec = overrides.Apply(rec)

	password := rec.Password
	if rec.UsesKeyring() && overrides.Password == nil {
		if creds == nil {
			return SyncProfile{}, fmt.Errorf("%w: profile '%s' uses the keyring but no backend is available", ErrCredentialMissing, name)
		}
		password, err = creds.Load(name)
		if err != nil {
			return SyncProfile{}, fmt.Errorf("%w: %v", ErrCredentialMissing, err)
		}
	}

	p := SyncProfile{
		Name:              name,
		Username:          rec.Username,
		Password:          password,
		LocalDirectory:    rec.LocalDirectory,
		RemoteHost:        rec.RemoteHost,
		Port:              rec.Port,
		RemoteDirectories: rec.RemoteDirectories,
		Extensions:        rec.Extensions,
	}
	if err := p.Validate(); err != nil {
		return SyncProfile{}, err
	}
	return p, nil
}

// SealPassword moves an inline password into the keyring when the record is
// configured for it, leaving the record without a plaintext password.
func SealPassword(name string, rec Record, creds credentials.StorageBackend) (Record, error) {
	if !rec.UsesKeyring() || rec.Password == "" {
		return rec, nil
	}
	if creds == nil {
		return rec, fmt.Errorf("profile '%s' uses the keyring but no backend is available", name)
	}
	if err := creds.Save(name, rec.Password); err != nil {
		return rec, err
	}
	rec.Password = ""
	return rec, nil
}
