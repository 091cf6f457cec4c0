// Package bundle implements the signed-bundle protocol (spec §4.10): a
// content-addressed manifest of an application's source files, platform
// and binary hashes, and the manifest's own permission grant, signed once
// by the developer's Ed25519 key and verified at startup before the
// interpreter loads a single line of script.
package bundle

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/gowebpki/jcs"
	"github.com/hull-run/hull/pkg/manifest"
)

// SignatureFileName is the well-known bundle file name spec §4.10 names.
const SignatureFileName = "hull.sig"

// FileHash is one entry of the deterministic file-hash enumeration.
type FileHash struct {
	Path string `json:"path"`
	SHA256 string `json:"sha256"`
}

// Record is the signed payload: {version, files, manifest, platform_hash,
// binary_hash, trampoline_hash, public_key}, per spec §4.10 step 3.
type Record struct {
	Version        int           `json:"version"`
	Files          []FileHash    `json:"files"`
	Manifest       manifest.Raw  `json:"manifest"`
	PlatformHash   string        `json:"platform_hash"`
	BinaryHash     string        `json:"binary_hash"`
	TrampolineHash string        `json:"trampoline_hash"`
	PublicKey      string        `json:"public_key"` // hex-encoded Ed25519 public key
}

// Signature is the on-disk hull.sig shape: the record plus its signature.
type Signature struct {
	Record    Record `json:"record"`
	Signature string `json:"signature"` // hex-encoded Ed25519 signature
}

const bundleVersion = 1

// HashDirectory enumerates every regular file under appDir in deterministic
// (lexicographically sorted, relative-path) order and computes its SHA-256,
// implementing spec §4.10 steps 1-2.
func HashDirectory(appDir string) ([]FileHash, error) {
	var files []FileHash
	err := filepath.WalkDir(appDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(appDir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(data)
		files = append(files, FileHash{Path: filepath.ToSlash(rel), SHA256: hex.EncodeToString(sum[:])})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bundle: hashing %q: %w", appDir, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// CanonicalPreimage serializes rec using RFC 8785 JSON Canonicalization, the
// exact preimage that is signed and later re-verified (spec §4.10 steps 3-4).
func CanonicalPreimage(rec Record) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("bundle: marshalling record: %w", err)
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("bundle: canonicalizing record: %w", err)
	}
	return canon, nil
}

// Sign builds a Record for appDir and signs it with priv, returning the
// full on-disk Signature value (spec §4.10 steps 1-4).
func Sign(appDir string, m manifest.Raw, platformHash, binaryHash, trampolineHash string, priv ed25519.PrivateKey) (*Signature, error) {
	files, err := HashDirectory(appDir)
	if err != nil {
		return nil, err
	}
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("bundle: private key has no Ed25519 public component")
	}
	rec := Record{
		Version:        bundleVersion,
		Files:          files,
		Manifest:       m,
		PlatformHash:   platformHash,
		BinaryHash:     binaryHash,
		TrampolineHash: trampolineHash,
		PublicKey:      hex.EncodeToString(pub),
	}
	preimage, err := CanonicalPreimage(rec)
	if err != nil {
		return nil, err
	}
	sig := ed25519.Sign(priv, preimage)
	return &Signature{Record: rec, Signature: hex.EncodeToString(sig)}, nil
}

// WriteFile writes sig as JSON to path (ordinarily <appDir>/hull.sig).
func WriteFile(path string, sig *Signature) error {
	data, err := json.MarshalIndent(sig, "", "  ")
	if err != nil {
		return fmt.Errorf("bundle: encoding signature: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("bundle: writing %q: %w", path, err)
	}
	return nil
}

// ReadFile reads and decodes a hull.sig file.
func ReadFile(path string) (*Signature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bundle: reading %q: %w", path, err)
	}
	var sig Signature
	if err := json.Unmarshal(data, &sig); err != nil {
		return nil, fmt.Errorf("bundle: decoding %q: %w", path, err)
	}
	return &sig, nil
}
