package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hull-run/hull/pkg/bundle"
	"github.com/hull-run/hull/pkg/manifest"
)

// runSignPlatform implements `hull sign-platform`: hash an application
// directory, bind it to a manifest and a set of platform/binary/trampoline
// hashes, sign with the developer's private key, and write hull.sig (spec
// §4.10, §6 "compiled-bundle convention").
func runSignPlatform(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("hull sign-platform", flag.ContinueOnError)
	fs.SetOutput(stderr)
	appDir := fs.String("app", ".", "application directory to sign")
	manifestPath := fs.String("manifest", "", "path to the manifest JSON document (required)")
	privKeyPath := fs.String("priv", "", "path to the hex-encoded Ed25519 private key (required)")
	platformHash := fs.String("platform-hash", "", "hex digest of the platform archive")
	binaryHash := fs.String("binary-hash", "", "hex digest of the host binary")
	trampolineHash := fs.String("trampoline-hash", "", "hex digest of the trampoline stub")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *manifestPath == "" || *privKeyPath == "" {
		fmt.Fprintln(stderr, "hull sign-platform: -manifest and -priv are required")
		return 1
	}

	manifestData, err := os.ReadFile(*manifestPath)
	if err != nil {
		fmt.Fprintf(stderr, "hull sign-platform: %v\n", err)
		return 1
	}
	var raw manifest.Raw
	if err := json.Unmarshal(manifestData, &raw); err != nil {
		fmt.Fprintf(stderr, "hull sign-platform: decoding manifest: %v\n", err)
		return 1
	}
	if _, err := manifest.Parse(raw); err != nil {
		fmt.Fprintf(stderr, "hull sign-platform: invalid manifest: %v\n", err)
		return 1
	}

	privHex, err := os.ReadFile(*privKeyPath)
	if err != nil {
		fmt.Fprintf(stderr, "hull sign-platform: %v\n", err)
		return 1
	}
	privBytes, err := hex.DecodeString(strings.TrimSpace(string(privHex)))
	if err != nil || len(privBytes) != ed25519.PrivateKeySize {
		fmt.Fprintln(stderr, "hull sign-platform: malformed private key")
		return 1
	}

	sig, err := bundle.Sign(*appDir, raw, *platformHash, *binaryHash, *trampolineHash, ed25519.PrivateKey(privBytes))
	if err != nil {
		fmt.Fprintf(stderr, "hull sign-platform: %v\n", err)
		return 1
	}

	sigPath := filepath.Join(*appDir, bundle.SignatureFileName)
	if err := bundle.WriteFile(sigPath, sig); err != nil {
		fmt.Fprintf(stderr, "hull sign-platform: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "hull sign-platform: wrote %s\n", sigPath)
	return 0
}
