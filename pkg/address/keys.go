package address

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"
	"strings"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"
)

const hkdfInfoSigning = "earthstar/address/signing/v1"

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// Keypair holds an Ed25519 key pair. Private may be nil for addresses
// parsed from their display form; such addresses can verify but not sign.
type Keypair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateKeypair draws a fresh Ed25519 key pair from entropy. A nil reader
// selects the platform CSPRNG; tests may inject a deterministic source.
func GenerateKeypair(entropy io.Reader) (Keypair, error) {
	if entropy == nil {
		entropy = rand.Reader
	}
	pub, priv, err := ed25519.GenerateKey(entropy)
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{Public: pub, Private: priv}, nil
}

// NewMnemonic returns a fresh 24-word BIP-39 phrase suitable for
// KeypairFromMnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// KeypairFromMnemonic deterministically derives a signing key pair from a
// BIP-39 mnemonic, so a key can be restored from its backup phrase.
func KeypairFromMnemonic(mnemonic string) (Keypair, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return Keypair{}, ErrInvalidMnemonic
	}
	seedBytes := bip39.NewSeed(mnemonic, "")
	signingSeed := make([]byte, ed25519.SeedSize)
	reader := hkdf.New(sha256.New, seedBytes, nil, []byte(hkdfInfoSigning))
	if _, err := io.ReadFull(reader, signingSeed); err != nil {
		return Keypair{}, err
	}
	priv := ed25519.NewKeyFromSeed(signingSeed)
	return Keypair{
		Public:  priv.Public().(ed25519.PublicKey),
		Private: priv,
	}, nil
}

func (kp Keypair) clone() Keypair {
	out := Keypair{}
	if kp.Public != nil {
		out.Public = append(ed25519.PublicKey(nil), kp.Public...)
	}
	if kp.Private != nil {
		out.Private = append(ed25519.PrivateKey(nil), kp.Private...)
	}
	return out
}
