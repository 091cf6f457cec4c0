// Package manifest implements the declarative capability contract described
// in spec §3 and §4.7: an application's top-level script populates a table
// of fs/env/host permissions, the host extracts it once after startup, and
// from that point on the Manifest is immutable.
package manifest

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Manifest is the immutable record of an application's declared side
// effects. Once built by Parse it is never mutated — every request that
// consults it reads the same frozen sets.
type Manifest struct {
	fsRead  map[string]struct{}
	fsWrite map[string]struct{}
	env     map[string]struct{}
	hosts   map[string]struct{}
}

// Raw is the shape the manifest table takes before validation, matching the
// §6 on-disk/in-script format:
//
//	fs    : { read: [path, …], write: [path, …] }
//	env   : [name, …]
//	hosts : [hostname, …]
type Raw struct {
	FS struct {
		Read  []string `json:"read"`
		Write []string `json:"write"`
	} `json:"fs"`
	Env   []string `json:"env"`
	Hosts []string `json:"hosts"`
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Parse validates a Raw manifest document and freezes it into a Manifest.
// Missing sub-keys default to empty sets, as spec §4.7 requires. Invariants
// enforced (spec §3):
//  1. each path is non-empty and does not contain ".." components;
//  2. each env name is a valid identifier;
//  3. each host is a non-empty bare hostname (no scheme, no path).
func Parse(raw Raw) (*Manifest, error) {
	m := &Manifest{
		fsRead:  make(map[string]struct{}),
		fsWrite: make(map[string]struct{}),
		env:     make(map[string]struct{}),
		hosts:   make(map[string]struct{}),
	}

	for _, p := range raw.FS.Read {
		if err := validatePathPrefix(p); err != nil {
			return nil, fmt.Errorf("manifest: fs.read: %w", err)
		}
		m.fsRead[p] = struct{}{}
	}
	for _, p := range raw.FS.Write {
		if err := validatePathPrefix(p); err != nil {
			return nil, fmt.Errorf("manifest: fs.write: %w", err)
		}
		m.fsWrite[p] = struct{}{}
	}
	for _, name := range raw.Env {
		if !identifierRe.MatchString(name) {
			return nil, fmt.Errorf("manifest: env: %q is not a valid environment variable name", name)
		}
		m.env[name] = struct{}{}
	}
	for _, host := range raw.Hosts {
		if err := validateHost(host); err != nil {
			return nil, fmt.Errorf("manifest: hosts: %w", err)
		}
		m.hosts[strings.ToLower(host)] = struct{}{}
	}

	return m, nil
}

func validatePathPrefix(p string) error {
	if p == "" {
		return fmt.Errorf("empty path")
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return fmt.Errorf("path %q contains a .. component", p)
		}
	}
	return nil
}

func validateHost(h string) error {
	if h == "" {
		return fmt.Errorf("empty hostname")
	}
	if strings.Contains(h, "://") || strings.Contains(h, "/") {
		return fmt.Errorf("hostname %q must be bare (no scheme, no path)", h)
	}
	return nil
}

// AllowsFSRead reports whether path falls under a declared fs.read prefix.
// fs.write entries also authorize reads (spec §3).
func (m *Manifest) AllowsFSRead(path string) bool {
	return matchesPrefix(m.fsRead, path) || matchesPrefix(m.fsWrite, path)
}

// AllowsFSWrite reports whether path falls under a declared fs.write prefix.
func (m *Manifest) AllowsFSWrite(path string) bool {
	return matchesPrefix(m.fsWrite, path)
}

// AllowsEnv reports whether name is in the declared env allowlist.
func (m *Manifest) AllowsEnv(name string) bool {
	_, ok := m.env[name]
	return ok
}

// AllowsHost reports whether host (case-insensitive) is in the declared
// hosts allowlist.
func (m *Manifest) AllowsHost(host string) bool {
	_, ok := m.hosts[strings.ToLower(host)]
	return ok
}

// HasHosts reports whether any host is declared — used by the sandbox
// applier to decide whether the dns syscall promise is needed (spec §4.7).
func (m *Manifest) HasHosts() bool {
	return len(m.hosts) > 0
}

// FSReadPrefixes returns the declared fs.read prefixes in sorted order.
func (m *Manifest) FSReadPrefixes() []string { return sortedKeys(m.fsRead) }

// FSWritePrefixes returns the declared fs.write prefixes in sorted order.
func (m *Manifest) FSWritePrefixes() []string { return sortedKeys(m.fsWrite) }

// EnvNames returns the declared env names in sorted order.
func (m *Manifest) EnvNames() []string { return sortedKeys(m.env) }

// Hosts returns the declared hostnames in sorted order.
func (m *Manifest) Hosts() []string { return sortedKeys(m.hosts) }

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func matchesPrefix(set map[string]struct{}, path string) bool {
	clean := strings.TrimPrefix(path, "/")
	for prefix := range set {
		p := strings.TrimSuffix(strings.TrimPrefix(prefix, "/"), "/")
		if clean == p || strings.HasPrefix(clean, p+"/") {
			return true
		}
	}
	return false
}

// Canonical returns the manifest as a Raw value with every set sorted, for
// use as the preimage of a signed bundle (spec §4.10): the same Manifest
// always serializes identically regardless of declaration order.
func (m *Manifest) Canonical() Raw {
	var r Raw
	r.FS.Read = m.FSReadPrefixes()
	r.FS.Write = m.FSWritePrefixes()
	r.Env = m.EnvNames()
	r.Hosts = m.Hosts()
	return r
}
