// Package escodec implements the canonical byte encodings shared by every
// hashed or signed value in the protocol: SHA-256 digests and Ed25519
// signatures are rendered as RFC 4648 base32 without padding, prefixed with
// a single 'b' marking the encoding.
package escodec

import (
	"crypto/sha256"
	"encoding/base32"
)

const (
	// Prefix marks a base32-no-pad encoded value.
	Prefix = 'b'

	// HashLength is the length of an encoded SHA-256 digest:
	// 'b' + 52 base32 characters.
	HashLength = 53

	// SignatureLength is the length of an encoded Ed25519 signature under
	// format es.5: 'b' + 103 base32 characters.
	SignatureLength = 104
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Encode renders raw bytes in the canonical display encoding.
func Encode(raw []byte) string {
	return string(Prefix) + b32.EncodeToString(raw)
}

// Decode strips the prefix and decodes the base32 body.
func Decode(s string) ([]byte, error) {
	if len(s) == 0 || s[0] != Prefix {
		return nil, base32.CorruptInputError(0)
	}
	return b32.DecodeString(s[1:])
}

// EncodeHash hashes the input with SHA-256 and encodes the digest.
// The result is always HashLength characters.
func EncodeHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return Encode(sum[:])
}

// CheckEncoded reports whether s is a well-formed encoded value of exactly
// wantLen characters: prefix, length, and a decodable base32 body.
func CheckEncoded(s string, wantLen int) bool {
	if len(s) == 0 || len(s) != wantLen || s[0] != Prefix {
		return false
	}
	_, err := b32.DecodeString(s[1:])
	return err == nil
}

// CheckPrefixed reports whether s carries the prefix and a decodable base32
// body, without constraining its length.
func CheckPrefixed(s string) bool {
	if len(s) == 0 || s[0] != Prefix {
		return false
	}
	_, err := b32.DecodeString(s[1:])
	return err == nil
}
