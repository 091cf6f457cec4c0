// Package crypt implements the crypto capability (spec §4.6): hashing,
// random bytes, password hashing, Ed25519 signatures, keyed MACs, and
// authenticated encryption (secretbox/box), all exposed to interpreted code
// through explicit byte-in/byte-out functions rather than native objects.
package crypt

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
)

// SHA256Hex returns the lowercase hex-encoded SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SHA512Hex returns the lowercase hex-encoded SHA-512 digest of data.
func SHA512Hex(data []byte) string {
	sum := sha512.Sum512(data)
	return hex.EncodeToString(sum[:])
}
