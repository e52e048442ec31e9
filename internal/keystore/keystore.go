// Package keystore persists address key pairs as password-encrypted files:
// argon2id key derivation, XChaCha20-Poly1305 sealing, versioned JSON
// envelope behind a magic prefix.
package keystore

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	envelopeVersion = 1
	saltSize        = 16
	filePrefix      = "ESTARKEY1\n"

	// Record kinds.
	KindIdentity = "identity"
	KindShare    = "share"
)

var (
	ErrAuthFailed         = errors.New("keystore authentication failed")
	ErrInvalidEnvelope    = errors.New("keystore envelope is invalid")
	ErrPassphraseRequired = errors.New("keystore passphrase is required")
)

// Record is the plaintext payload of a key file.
type Record struct {
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	PublicKey  []byte `json:"public_key"`
	PrivateKey []byte `json:"private_key"`
}

type envelope struct {
	Version     uint32 `json:"version"`
	KDF         string `json:"kdf"`
	KDFTime     uint32 `json:"kdf_time"`
	KDFMemoryKB uint32 `json:"kdf_memory_kb"`
	KDFThreads  uint8  `json:"kdf_threads"`
	Salt        []byte `json:"salt"`
	Nonce       []byte `json:"nonce"`
	Ciphertext  []byte `json:"ciphertext"`
}

// Save encrypts the record with the passphrase and writes it to path with
// owner-only permissions.
func Save(path, passphrase string, rec Record) error {
	if strings.TrimSpace(passphrase) == "" {
		return ErrPassphraseRequired
	}
	plaintext, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	sealed, err := seal(passphrase, plaintext)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, sealed, 0o600)
}

// Load reads and decrypts a key file.
func Load(path, passphrase string) (Record, error) {
	if strings.TrimSpace(passphrase) == "" {
		return Record{}, ErrPassphraseRequired
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	plaintext, err := open(passphrase, raw)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(plaintext, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return rec, nil
}

func seal(passphrase string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := deriveKey(passphrase, salt)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	env := envelope{
		Version:     envelopeVersion,
		KDF:         "argon2id",
		KDFTime:     2,
		KDFMemoryKB: 64 * 1024,
		KDFThreads:  1,
		Salt:        salt,
		Nonce:       nonce,
		Ciphertext:  aead.Seal(nil, nonce, plaintext, nil),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return append([]byte(filePrefix), raw...), nil
}

func open(passphrase string, data []byte) ([]byte, error) {
	if !strings.HasPrefix(string(data), filePrefix) {
		return nil, ErrInvalidEnvelope
	}
	var env envelope
	if err := json.Unmarshal(data[len(filePrefix):], &env); err != nil {
		return nil, ErrInvalidEnvelope
	}
	if env.Version != envelopeVersion || env.KDF != "argon2id" {
		return nil, ErrInvalidEnvelope
	}
	key := deriveKey(passphrase, env.Salt)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 2, 64*1024, 1, chacha20poly1305.KeySize)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
