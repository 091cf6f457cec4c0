package crypt

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// Ed25519KeyPair holds a generated signing keypair.
type Ed25519KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// GenerateEd25519 generates a fresh Ed25519 keypair.
func GenerateEd25519() (Ed25519KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Ed25519KeyPair{}, fmt.Errorf("crypt: ed25519_keypair: %w", err)
	}
	return Ed25519KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

// Sign signs data with priv.
func Sign(priv ed25519.PrivateKey, data []byte) ([]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("crypt: sign: invalid private key size")
	}
	return ed25519.Sign(priv, data), nil
}

// VerifySignature reports whether sig is a valid Ed25519 signature over
// data under pub. Any malformed key or signature is treated as a failed
// verification rather than an error, matching spec §4.6's fail-closed
// posture for this operation.
func VerifySignature(pub ed25519.PublicKey, data, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, data, sig)
}
