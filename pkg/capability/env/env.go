// Package env implements the environment-variable capability: a single
// get(name) operation gated by the manifest's env allowlist (spec §4.5).
package env

import (
	"os"

	"github.com/hull-run/hull/pkg/manifest"
)

// Capability mediates access to process environment variables.
type Capability struct {
	manifest *manifest.Manifest
	lookup   func(string) (string, bool)
}

// New builds an env Capability reading from the real process environment.
func New(m *manifest.Manifest) *Capability {
	return &Capability{manifest: m, lookup: os.LookupEnv}
}

// Get returns the value of name and true if it is both declared in the
// manifest's env allowlist and set in the process environment. Per spec
// §4.5 the two "absent" cases — not in the manifest, and in the manifest
// but unset — are indistinguishable to the caller: both report (_, false).
// This is deliberate: a script must not be able to use get's return shape
// to probe which names exist outside its declared allowlist.
func (c *Capability) Get(name string) (string, bool) {
	if !c.manifest.AllowsEnv(name) {
		return "", false
	}
	return c.lookup(name)
}
