package main

import (
	"fmt"
	"io"
)

// runExternalStub reports that name is one of spec §2's declared external
// collaborators (build-time subcommands with fixed interfaces the spec
// treats as outside this core's scope) rather than silently doing nothing.
func runExternalStub(name string, stdout, stderr io.Writer) int {
	fmt.Fprintf(stderr, "hull: %q is a build-time collaborator outside this core's scope and is not implemented here\n", name)
	return 2
}
