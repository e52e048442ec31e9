package keystore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"earthstar/go-core/pkg/address"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	kp, err := address.GenerateKeypair(nil)
	if err != nil {
		t.Fatalf("generate keypair failed: %v", err)
	}
	rec := Record{
		Kind:       KindIdentity,
		Name:       "bob",
		PublicKey:  kp.Public,
		PrivateKey: kp.Private,
	}
	path := filepath.Join(t.TempDir(), "keys", "bob.estarkey")

	if err := Save(path, "hunter2 but longer", rec); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path, "hunter2 but longer")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Kind != KindIdentity || loaded.Name != "bob" {
		t.Fatalf("record metadata mismatch: %+v", loaded)
	}
	if !bytes.Equal(loaded.PrivateKey, kp.Private) {
		t.Fatal("private key mismatch after round trip")
	}
}

func TestLoadRejectsWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k.estarkey")
	if err := Save(path, "correct", Record{Kind: KindShare, Name: "chat"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := Load(path, "wrong"); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}

func TestLoadRejectsForeignFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k.estarkey")
	if err := os.WriteFile(path, []byte("not a key file"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := Load(path, "whatever"); !errors.Is(err, ErrInvalidEnvelope) {
		t.Fatalf("expected ErrInvalidEnvelope, got %v", err)
	}
}

func TestPassphraseRequired(t *testing.T) {
	if err := Save(filepath.Join(t.TempDir(), "k"), "  ", Record{}); !errors.Is(err, ErrPassphraseRequired) {
		t.Fatalf("expected ErrPassphraseRequired, got %v", err)
	}
	if _, err := Load("nope", ""); !errors.Is(err, ErrPassphraseRequired) {
		t.Fatalf("expected ErrPassphraseRequired, got %v", err)
	}
}

func TestKeyFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k.estarkey")
	if err := Save(path, "secret enough", Record{Kind: KindIdentity, Name: "bob"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}
}
