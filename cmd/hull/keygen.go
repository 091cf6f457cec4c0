package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
)

// runKeygen generates an Ed25519 signing keypair and writes the hex-encoded
// public/private keys to the paths given by -pub/-priv (stdout if omitted).
func runKeygen(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("hull keygen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	pubPath := fs.String("pub", "", "write the hex public key here (default: stdout)")
	privPath := fs.String("priv", "", "write the hex private key here (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		fmt.Fprintf(stderr, "hull keygen: %v\n", err)
		return 1
	}

	pubHex := hex.EncodeToString(pub)
	privHex := hex.EncodeToString(priv)

	if *pubPath == "" {
		fmt.Fprintf(stdout, "public:  %s\n", pubHex)
	} else if err := os.WriteFile(*pubPath, []byte(pubHex), 0o644); err != nil {
		fmt.Fprintf(stderr, "hull keygen: writing %s: %v\n", *pubPath, err)
		return 1
	}

	if *privPath == "" {
		fmt.Fprintf(stdout, "private: %s\n", privHex)
	} else if err := os.WriteFile(*privPath, []byte(privHex), 0o600); err != nil {
		fmt.Fprintf(stderr, "hull keygen: writing %s: %v\n", *privPath, err)
		return 1
	}

	return 0
}
