// Package sandbox applies the OS-level sandbox described in spec §4.7 once
// per loaded application: path registration for the declared fs.read/
// fs.write sets, sealed against further registration, and a syscall
// restriction pass computed from the manifest's permission shape. Where the
// host platform offers no syscall-restriction primitive, the restriction
// pass is a logged no-op rather than a startup failure — scripts still run,
// just without the kernel-level backstop.
package sandbox

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/hull-run/hull/pkg/manifest"
)

// Promise is one token of the syscall promise set spec §4.7 describes,
// modeled after pledge(2)'s promise strings.
type Promise string

const (
	PromiseStdio Promise = "stdio"
	PromiseInet  Promise = "inet"
	PromiseRpath Promise = "rpath"
	PromiseWpath Promise = "wpath"
	PromiseCpath Promise = "cpath"
	PromiseFlock Promise = "flock"
	PromiseDNS   Promise = "dns"
)

// basePromises are granted unconditionally (spec §4.7 step 4).
var basePromises = []Promise{PromiseStdio, PromiseInet, PromiseRpath, PromiseWpath, PromiseCpath, PromiseFlock}

// ComputePromises returns the syscall promise set for m: the base set plus
// "dns" iff the manifest declares any host.
func ComputePromises(m *manifest.Manifest) []Promise {
	promises := append([]Promise(nil), basePromises...)
	if m.HasHosts() {
		promises = append(promises, PromiseDNS)
	}
	return promises
}

// PromisesString renders a promise set as the space-separated form spec §4.7 uses
// ("stdio inet rpath wpath cpath flock").
func PromisesString(promises []Promise) string {
	out := ""
	for i, p := range promises {
		if i > 0 {
			out += " "
		}
		out += string(p)
	}
	return out
}

// PathGrant is one registered path permission.
type PathGrant struct {
	Path  string
	Read  bool
	Write bool
}

// Applier records path registration in-process and applies the syscall
// promise set to the current process; path grants are not handed to the
// kernel. One Applier is used per loaded application, and Apply is
// called exactly once, after manifest extraction and before the first
// request is dispatched.
type Applier struct {
	logger *slog.Logger
	sealed bool
	grants []PathGrant
}

// New builds an Applier.
func New(logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{logger: logger}
}

// RegisterPaths records every fs.read/fs.write prefix declared in m as a
// PathGrant. Must be called before Seal.
func (a *Applier) RegisterPaths(m *manifest.Manifest) error {
	if a.sealed {
		return fmt.Errorf("sandbox: path registration is sealed")
	}
	seen := make(map[string]*PathGrant)
	order := make([]string, 0)
	for _, p := range m.FSReadPrefixes() {
		if _, ok := seen[p]; !ok {
			seen[p] = &PathGrant{Path: p}
			order = append(order, p)
		}
		seen[p].Read = true
	}
	for _, p := range m.FSWritePrefixes() {
		if _, ok := seen[p]; !ok {
			seen[p] = &PathGrant{Path: p}
			order = append(order, p)
		}
		seen[p].Read = true
		seen[p].Write = true
	}
	sort.Strings(order)
	for _, p := range order {
		a.grants = append(a.grants, *seen[p])
	}
	return nil
}

// Grants returns the registered path grants in deterministic order.
func (a *Applier) Grants() []PathGrant {
	return append([]PathGrant(nil), a.grants...)
}

// Seal closes path registration: no further RegisterPaths call may succeed
// (spec §4.7 step 3).
func (a *Applier) Seal() {
	a.sealed = true
}

// Apply computes the syscall promise set for m and applies the platform
// restriction (applyPlatform, provided per-OS). Must be called after Seal.
func (a *Applier) Apply(m *manifest.Manifest) error {
	if !a.sealed {
		return fmt.Errorf("sandbox: Apply called before Seal")
	}
	promises := ComputePromises(m)
	a.logger.Info("sandbox: applying syscall promise set", "promises", PromisesString(promises))
	return applyPlatform(a.logger, promises)
}
