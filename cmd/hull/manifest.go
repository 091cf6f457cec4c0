package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/hull-run/hull/pkg/manifest"
)

// runManifest implements `hull manifest`: parse a manifest JSON document,
// validate it, and print the frozen, sorted canonical form.
func runManifest(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("hull manifest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("file", "", "path to a manifest JSON document (required)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *path == "" {
		fmt.Fprintln(stderr, "hull manifest: -file is required")
		return 1
	}

	data, err := os.ReadFile(*path)
	if err != nil {
		fmt.Fprintf(stderr, "hull manifest: %v\n", err)
		return 1
	}

	var raw manifest.Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		fmt.Fprintf(stderr, "hull manifest: decoding: %v\n", err)
		return 1
	}
	m, err := manifest.Parse(raw)
	if err != nil {
		fmt.Fprintf(stderr, "hull manifest: %v\n", err)
		return 1
	}

	out, err := json.MarshalIndent(m.Canonical(), "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "hull manifest: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(out))
	return 0
}
