package storage

import (
	"testing"

	"github.com/99designs/keyring"
)

func TestKeyringStore(t *testing.T) {
	s := NewKeyringStore(keyring.NewArrayKeyring(nil))

	if tok, err := s.Get("none"); err != nil || tok != "" {
		t.Errorf("Get() of missing token = %q, %v", tok, err)
	}
	if err := s.Set("prod", "secret"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if tok, _ := s.Get("prod"); tok != "secret" {
		t.Errorf("Get() = %q", tok)
	}
	if err := s.Remove("prod"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if err := s.Remove("prod"); err != nil {
		t.Errorf("second Remove() error: %v", err)
	}
}

func TestOpenKeyring(t *testing.T) {
	if _, err := OpenKeyring(KeyringConfig{Backend: "memory"}); err != nil {
		t.Errorf("memory backend error: %v", err)
	}
	if _, err := OpenKeyring(KeyringConfig{Backend: "floppy"}); err == nil {
		t.Error("expected error for unknown backend")
	}

	s, err := OpenKeyring(KeyringConfig{Backend: "file", Dir: t.TempDir(), Password: "pw"})
	if err != nil {
		t.Fatalf("file backend error: %v", err)
	}
	if err := s.Set("prod", "secret"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if tok, _ := s.Get("prod"); tok != "secret" {
		t.Errorf("Get() = %q", tok)
	}
	if err := s.Remove("prod"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if err := s.Remove("prod"); err != nil {
		t.Errorf("Remove() of a missing token on the file backend: %v", err)
	}
	if err := s.Remove("never-stored"); err != nil {
		t.Errorf("Remove() of a never stored token: %v", err)
	}
}
