package credentials

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// ErrNotFound is returned when no password is stored for a profile
var ErrNotFound = errors.New("credential not found")

// StorageBackend defines the interface for password storage
type StorageBackend interface {
	Save(profile, password string) error
	Load(profile string) (string, error)
	Delete(profile string) error
	Name() string
}

// KeyringStorage keeps FTP passwords in the system keyring
type KeyringStorage struct {
	serviceName string
}

// NewKeyringStorage creates a keyring storage backend
func NewKeyringStorage(serviceName string) *KeyringStorage {
	return &KeyringStorage{
		serviceName: serviceName,
	}
}

func (s *KeyringStorage) Save(profile, password string) error {
	if err := keyring.Set(s.serviceName, profile, password); err != nil {
		return fmt.Errorf("failed to store password for profile '%s': %w", profile, err)
	}
	return nil
}

func (s *KeyringStorage) Load(profile string) (string, error) {
	password, err := keyring.Get(s.serviceName, profile)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w for profile '%s'", ErrNotFound, profile)
		}
		return "", fmt.Errorf("failed to read password for profile '%s': %w", profile, err)
	}
	return password, nil
}

func (s *KeyringStorage) Delete(profile string) error {
	err := keyring.Delete(s.serviceName, profile)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete password for profile '%s': %w", profile, err)
	}
	return nil
}

func (s *KeyringStorage) Name() string {
	return "system-keyring"
}

// MemoryStorage keeps passwords in memory; used when no keyring is wanted
type MemoryStorage struct {
	secrets map[string]string
}

// NewMemoryStorage creates an empty in-memory backend
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{secrets: make(map[string]string)}
}

func (s *MemoryStorage) Save(profile, password string) error {
	s.secrets[profile] = password
	return nil
}

func (s *MemoryStorage) Load(profile string) (string, error) {
	password, ok := s.secrets[profile]
	if !ok {
		return "", fmt.Errorf("%w for profile '%s'", ErrNotFound, profile)
	}
	return password, nil
}

func (s *MemoryStorage) Delete(profile string) error {
	delete(s.secrets, profile)
	return nil
}

func (s *MemoryStorage) Name() string {
	return "memory"
}

// KeyringAvailable reports whether the system keyring accepts writes
func KeyringAvailable(serviceName string) bool {
	const testKey = "__phonesync_probe__"
	if err := keyring.Set(serviceName, testKey, "probe"); err != nil {
		return false
	}
	_ = keyring.Delete(serviceName, testKey)
	return true
}
