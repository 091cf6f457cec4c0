package crypt

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"
)

// NonceSize is the nonce length both secretbox and box use, shared so
// callers generating a fresh nonce per call need only one constant.
const NonceSize = 24

// BoxKeyPair holds a generated Curve25519 keypair for box/box_open.
type BoxKeyPair struct {
	PublicKey  [32]byte
	PrivateKey [32]byte
}

// GenerateBoxKeyPair generates a fresh Curve25519 keypair.
func GenerateBoxKeyPair() (BoxKeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return BoxKeyPair{}, fmt.Errorf("crypt: box_keypair: %w", err)
	}
	return BoxKeyPair{PublicKey: *pub, PrivateKey: *priv}, nil
}

// SecretboxSeal encrypts message under key with a freshly generated nonce,
// returning nonce||ciphertext.
func SecretboxSeal(key [32]byte, message []byte) ([]byte, error) {
	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("crypt: secretbox: entropy source failed: %w", err)
	}
	return secretbox.Seal(nonce[:], message, &nonce, &key), nil
}

// SecretboxOpen decrypts a nonce||ciphertext blob produced by SecretboxSeal.
func SecretboxOpen(key [32]byte, boxed []byte) ([]byte, error) {
	if len(boxed) < NonceSize {
		return nil, fmt.Errorf("crypt: secretbox_open: ciphertext shorter than nonce")
	}
	var nonce [NonceSize]byte
	copy(nonce[:], boxed[:NonceSize])
	out, ok := secretbox.Open(nil, boxed[NonceSize:], &nonce, &key)
	if !ok {
		return nil, fmt.Errorf("crypt: secretbox_open: authentication failed")
	}
	return out, nil
}

// BoxSeal encrypts message from senderPriv to recipientPub, returning
// nonce||ciphertext.
func BoxSeal(recipientPub, senderPriv [32]byte, message []byte) ([]byte, error) {
	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("crypt: box: entropy source failed: %w", err)
	}
	return box.Seal(nonce[:], message, &nonce, &recipientPub, &senderPriv), nil
}

// BoxOpen decrypts a nonce||ciphertext blob produced by BoxSeal.
func BoxOpen(senderPub, recipientPriv [32]byte, boxed []byte) ([]byte, error) {
	if len(boxed) < NonceSize {
		return nil, fmt.Errorf("crypt: box_open: ciphertext shorter than nonce")
	}
	var nonce [NonceSize]byte
	copy(nonce[:], boxed[:NonceSize])
	out, ok := box.Open(nil, boxed[NonceSize:], &nonce, &senderPub, &recipientPriv)
	if !ok {
		return nil, fmt.Errorf("crypt: box_open: authentication failed")
	}
	return out, nil
}
