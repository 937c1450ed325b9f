package storage

import (
	stderrors "errors"
	"fmt"
	"os"
	"sync"

	"github.com/99designs/keyring"
)

// ServiceName identifies the keyring namespace.
const ServiceName = "d1bridge"

// SecretStore keeps profile API tokens out of the state store.
type SecretStore interface {
	// Get returns the token of a profile, or "" if none is stored.
	Get(profileID string) (string, error)

	// Set stores the token of a profile.
	Set(profileID, token string) error

	// Remove deletes the token of a profile. Removing a missing token is not an error.
	Remove(profileID string) error
}

// KeyringConfig selects the keyring backend.
type KeyringConfig struct {
	// Backend is one of file, secret-service, keychain, pass, wincred or memory.
	Backend string

	// Dir is the directory of the file backend.
	Dir string

	// Password unlocks the file backend. Empty prompts on the terminal.
	Password string
}

// KeyringStore implements SecretStore on a keyring.
type KeyringStore struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// OpenKeyring opens the configured keyring backend.
func OpenKeyring(cfg KeyringConfig) (*KeyringStore, error) {
	if cfg.Backend == "memory" {
		return NewKeyringStore(keyring.NewArrayKeyring(nil)), nil
	}

	backend, ok := map[string]keyring.BackendType{
		"":               keyring.FileBackend,
		"file":           keyring.FileBackend,
		"secret-service": keyring.SecretServiceBackend,
		"keychain":       keyring.KeychainBackend,
		"pass":           keyring.PassBackend,
		"wincred":        keyring.WinCredBackend,
	}[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("unsupported keyring backend %q", cfg.Backend)
	}

	kc := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: []keyring.BackendType{backend},
		FileDir:         expandHome(cfg.Dir),
		PassPrefix:      ServiceName,
		WinCredPrefix:   ServiceName,
	}
	if cfg.Password != "" {
		kc.FilePasswordFunc = keyring.FixedStringPrompt(cfg.Password)
	} else {
		kc.FilePasswordFunc = keyring.TerminalPrompt
	}

	ring, err := keyring.Open(kc)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return NewKeyringStore(ring), nil
}

// NewKeyringStore wraps an opened keyring.
func NewKeyringStore(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

func tokenKey(profileID string) string {
	return "profile:" + profileID + ":api_token"
}

// Get returns the token of a profile, or "" if none is stored.
func (s *KeyringStore) Get(profileID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, err := s.ring.Get(tokenKey(profileID))
	if stderrors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token for %s: %w", profileID, err)
	}
	return string(item.Data), nil
}

// Set stores the token of a profile.
func (s *KeyringStore) Set(profileID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.ring.Set(keyring.Item{
		Key:         tokenKey(profileID),
		Data:        []byte(token),
		Label:       "d1bridge API token (" + profileID + ")",
		Description: "Cloudflare API token",
	})
	if err != nil {
		return fmt.Errorf("failed to store token for %s: %w", profileID, err)
	}
	return nil
}

// Remove deletes the token of a profile. The file backend reports a missing
// key as a plain not-exist error rather than ErrKeyNotFound.
func (s *KeyringStore) Remove(profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.ring.Remove(tokenKey(profileID))
	if err != nil && !stderrors.Is(err, keyring.ErrKeyNotFound) && !stderrors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token for %s: %w", profileID, err)
	}
	return nil
}
