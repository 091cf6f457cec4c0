package main

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"github.com/hull-run/hull/pkg/bundle"
)

// runVerify implements the `hull verify` command: verify a hull.sig bundle
// against an application directory and a developer public key, independent
// of starting the server (spec §4.10's verification, exposed standalone).
func runVerify(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("hull verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	appDir := fs.String("app", ".", "application directory")
	pubKey := fs.String("pub", "", "hex-encoded Ed25519 public key (required)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *pubKey == "" {
		fmt.Fprintln(stderr, "hull verify: -pub is required")
		return 1
	}

	sigPath := filepath.Join(*appDir, bundle.SignatureFileName)
	if _, err := bundle.VerifyFile(*appDir, sigPath, *pubKey); err != nil {
		fmt.Fprintf(stderr, "hull verify: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "hull verify: %s verified against %s\n", sigPath, *pubKey)
	return 0
}
