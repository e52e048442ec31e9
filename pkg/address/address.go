// Package address builds and parses the self-certifying addresses of the
// protocol: identities ("@bob.b…") name document authors, shares
// ("+chat.b…") name content namespaces. Both bind a human-chosen short name
// to an Ed25519 public key, so the address itself proves key ownership
// without any directory service.
package address

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	"earthstar/go-core/pkg/escodec"
)

const (
	minNameLength = 1
	maxNameLength = 15
)

// Name validation failures for identities.
var (
	ErrIdentityNameLength     = errors.New("identity shortname must be between 1 and 15 characters")
	ErrIdentityNameCharacters = errors.New("identity shortname may only contain lowercase ASCII letters and digits")
	ErrIdentityNameDigit      = errors.New("identity shortname cannot start with a digit")
)

// Name validation failures for shares.
var (
	ErrShareNameLength     = errors.New("share name must be between 1 and 15 characters")
	ErrShareNameCharacters = errors.New("share name may only contain lowercase ASCII letters and digits")
	ErrShareNameDigit      = errors.New("share name cannot start with a digit")
)

// ErrMalformedAddress reports a display string that does not parse as an
// address of the expected kind.
var ErrMalformedAddress = errors.New("malformed address")

// checkName applies the three name rules in their fixed order: length,
// character set, leading digit. The first violated rule's error is returned.
func checkName(name string, errLength, errCharacters, errDigit error) error {
	if len(name) < minNameLength || len(name) > maxNameLength {
		return errLength
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return errCharacters
		}
	}
	if name[0] >= '0' && name[0] <= '9' {
		return errDigit
	}
	return nil
}

// Identity is a validated author address. Immutable once built; the private
// key, when present, stays with whoever constructed it.
type Identity struct {
	shortname string
	keypair   Keypair
}

// NewIdentity validates the shortname and pairs it with the given key pair,
// generating a fresh one from the platform CSPRNG when keypair is nil. A
// supplied key pair is trusted as-is.
func NewIdentity(shortname string, keypair *Keypair) (*Identity, error) {
	if err := checkName(shortname, ErrIdentityNameLength, ErrIdentityNameCharacters, ErrIdentityNameDigit); err != nil {
		return nil, err
	}
	kp, err := resolveKeypair(keypair)
	if err != nil {
		return nil, err
	}
	return &Identity{shortname: shortname, keypair: kp}, nil
}

// Shortname returns the human-chosen part of the address.
func (id *Identity) Shortname() string { return id.shortname }

// PublicKey returns a copy of the signing public key.
func (id *Identity) PublicKey() ed25519.PublicKey {
	return append(ed25519.PublicKey(nil), id.keypair.Public...)
}

// CanSign reports whether the identity carries its private key.
func (id *Identity) CanSign() bool { return id.keypair.Private != nil }

// Sign signs the message with the identity's private key.
func (id *Identity) Sign(message []byte) ([]byte, error) {
	if id.keypair.Private == nil {
		return nil, fmt.Errorf("identity %s: no private key", id)
	}
	return ed25519.Sign(id.keypair.Private, message), nil
}

// Verify reports whether sig is a valid signature over message by this
// identity's key.
func (id *Identity) Verify(message, sig []byte) bool {
	return len(id.keypair.Public) == ed25519.PublicKeySize &&
		ed25519.Verify(id.keypair.Public, message, sig)
}

// Keypair returns a copy of the identity's key pair, for callers that
// persist keys. The copy includes the private key when present.
func (id *Identity) Keypair() Keypair { return id.keypair.clone() }

// String renders the display form "@<shortname>.b<base32(pubkey)>". The
// display form is what gets hashed into canonical document bytes.
func (id *Identity) String() string {
	return "@" + id.shortname + "." + escodec.Encode(id.keypair.Public)
}

// Share is a validated content-namespace address. Same rules as Identity
// with a '+' sigil and an independent key pair.
type Share struct {
	name    string
	keypair Keypair
}

// NewShare validates the name and pairs it with the given key pair,
// generating a fresh one when keypair is nil.
func NewShare(name string, keypair *Keypair) (*Share, error) {
	if err := checkName(name, ErrShareNameLength, ErrShareNameCharacters, ErrShareNameDigit); err != nil {
		return nil, err
	}
	kp, err := resolveKeypair(keypair)
	if err != nil {
		return nil, err
	}
	return &Share{name: name, keypair: kp}, nil
}

// Name returns the human-chosen part of the address.
func (sh *Share) Name() string { return sh.name }

// PublicKey returns a copy of the share's public key.
func (sh *Share) PublicKey() ed25519.PublicKey {
	return append(ed25519.PublicKey(nil), sh.keypair.Public...)
}

// CanSign reports whether the share carries its private key.
func (sh *Share) CanSign() bool { return sh.keypair.Private != nil }

// Sign signs the message with the share's private key.
func (sh *Share) Sign(message []byte) ([]byte, error) {
	if sh.keypair.Private == nil {
		return nil, fmt.Errorf("share %s: no private key", sh)
	}
	return ed25519.Sign(sh.keypair.Private, message), nil
}

// Keypair returns a copy of the share's key pair.
func (sh *Share) Keypair() Keypair { return sh.keypair.clone() }

// String renders the display form "+<name>.b<base32(pubkey)>".
func (sh *Share) String() string {
	return "+" + sh.name + "." + escodec.Encode(sh.keypair.Public)
}

// ParseIdentity rebuilds an Identity from its display form. The result
// carries only the public key, so it can verify documents but not sign.
func ParseIdentity(s string) (*Identity, error) {
	name, pub, err := parseAddress(s, '@')
	if err != nil {
		return nil, err
	}
	if err := checkName(name, ErrIdentityNameLength, ErrIdentityNameCharacters, ErrIdentityNameDigit); err != nil {
		return nil, err
	}
	return &Identity{shortname: name, keypair: Keypair{Public: pub}}, nil
}

// ParseShare rebuilds a Share from its display form, public key only.
func ParseShare(s string) (*Share, error) {
	name, pub, err := parseAddress(s, '+')
	if err != nil {
		return nil, err
	}
	if err := checkName(name, ErrShareNameLength, ErrShareNameCharacters, ErrShareNameDigit); err != nil {
		return nil, err
	}
	return &Share{name: name, keypair: Keypair{Public: pub}}, nil
}

func parseAddress(s string, sigil byte) (string, ed25519.PublicKey, error) {
	if len(s) < 2 || s[0] != sigil {
		return "", nil, fmt.Errorf("%w: %q", ErrMalformedAddress, s)
	}
	name, encoded, ok := strings.Cut(s[1:], ".")
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrMalformedAddress, s)
	}
	raw, err := escodec.Decode(encoded)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return "", nil, fmt.Errorf("%w: %q", ErrMalformedAddress, s)
	}
	return name, ed25519.PublicKey(raw), nil
}

func resolveKeypair(keypair *Keypair) (Keypair, error) {
	if keypair == nil {
		return GenerateKeypair(nil)
	}
	return keypair.clone(), nil
}
