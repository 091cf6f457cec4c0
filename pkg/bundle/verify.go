package bundle

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrPublicKeyMismatch is step 2 of spec §4.10's runtime verification: the
// public key declared in hull.sig does not match the one supplied on the
// command line.
var ErrPublicKeyMismatch = errors.New("bundle: declared public key does not match the key supplied at startup")

// ErrFileHashMismatch is step 3: a listed source file's on-disk hash no
// longer matches the hash recorded at signing time.
var ErrFileHashMismatch = errors.New("bundle: a source file does not match its recorded hash")

// ErrSignatureInvalid is step 4: the Ed25519 signature does not verify
// against the recomputed canonical preimage.
var ErrSignatureInvalid = errors.New("bundle: signature verification failed")

// Verify implements spec §4.10's five-step runtime verification. appDir is
// the application directory the signature was issued for; expectedPubKeyHex
// is the developer public key passed on the command line at startup.
// Verify refuses (returns a non-nil error) on any step failing, and the
// caller is expected to exit non-zero before the interpreter loads any
// script.
func Verify(appDir string, sig *Signature, expectedPubKeyHex string) error {
	if sig.Record.PublicKey != expectedPubKeyHex {
		return ErrPublicKeyMismatch
	}

	pubKey, err := hex.DecodeString(sig.Record.PublicKey)
	if err != nil || len(pubKey) != ed25519.PublicKeySize {
		return fmt.Errorf("bundle: malformed public key in signature record: %w", err)
	}

	for _, f := range sig.Record.Files {
		data, err := os.ReadFile(filepath.Join(appDir, filepath.FromSlash(f.Path)))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrFileHashMismatch, f.Path, err)
		}
		sum := sha256.Sum256(data)
		if hex.EncodeToString(sum[:]) != f.SHA256 {
			return fmt.Errorf("%w: %s", ErrFileHashMismatch, f.Path)
		}
	}

	preimage, err := CanonicalPreimage(sig.Record)
	if err != nil {
		return err
	}
	sigBytes, err := hex.DecodeString(sig.Signature)
	if err != nil {
		return fmt.Errorf("bundle: malformed signature hex: %w", err)
	}
	if !ed25519.Verify(ed25519.PublicKey(pubKey), preimage, sigBytes) {
		return ErrSignatureInvalid
	}
	return nil
}

// VerifyFile is a convenience wrapper that reads sigPath and calls Verify.
func VerifyFile(appDir, sigPath, expectedPubKeyHex string) (*Signature, error) {
	sig, err := ReadFile(sigPath)
	if err != nil {
		return nil, err
	}
	if err := Verify(appDir, sig, expectedPubKeyHex); err != nil {
		return nil, err
	}
	return sig, nil
}
