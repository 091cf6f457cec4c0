package crypt

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// MinPBKDF2Iterations is the floor spec §4.6 mandates for password hashing;
// callers may ask for more but never fewer.
const MinPBKDF2Iterations = 100_000

const (
	passwordSaltBytes = 16
	passwordHashBytes = 32
	passwordFormatTag = "pbkdf2"
)

// PBKDF2 derives a key of length keyLen from password and salt using
// HMAC-SHA256, for callers that need the raw derived key rather than the
// packed password-record format HashPassword produces.
func PBKDF2(password, salt []byte, iterations, keyLen int) ([]byte, error) {
	if iterations < 1 {
		return nil, fmt.Errorf("crypt: pbkdf2: iterations must be positive")
	}
	return pbkdf2.Key(password, salt, iterations, keyLen, sha256.New), nil
}

// HashPassword derives a salted PBKDF2-HMAC-SHA256 hash of password and
// packs it into the self-describing record format
// "pbkdf2:<iterations>:<salt-hex>:<hash-hex>", so VerifyPassword never
// needs an out-of-band parameter set.
func HashPassword(password []byte, iterations int) (string, error) {
	if iterations < MinPBKDF2Iterations {
		iterations = MinPBKDF2Iterations
	}
	salt := make([]byte, passwordSaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("crypt: hash_password: entropy source failed: %w", err)
	}
	derived := pbkdf2.Key(password, salt, iterations, passwordHashBytes, sha256.New)
	return fmt.Sprintf("%s:%d:%s:%s", passwordFormatTag, iterations, hex.EncodeToString(salt), hex.EncodeToString(derived)), nil
}

// VerifyPassword reports whether password matches the packed record
// produced by HashPassword, comparing in constant time.
func VerifyPassword(password []byte, record string) (bool, error) {
	parts := strings.Split(record, ":")
	if len(parts) != 4 || parts[0] != passwordFormatTag {
		return false, fmt.Errorf("crypt: verify_password: malformed record")
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations < 1 {
		return false, fmt.Errorf("crypt: verify_password: malformed iteration count")
	}
	salt, err := hex.DecodeString(parts[2])
	if err != nil {
		return false, fmt.Errorf("crypt: verify_password: malformed salt")
	}
	want, err := hex.DecodeString(parts[3])
	if err != nil {
		return false, fmt.Errorf("crypt: verify_password: malformed hash")
	}
	got := pbkdf2.Key(password, salt, iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
