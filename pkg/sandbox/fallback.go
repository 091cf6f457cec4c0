//go:build !linux

package sandbox

import "log/slog"

// applyPlatform is a logged no-op on platforms without a syscall-filtering
// primitive wired up. The manifest's path and host allowlists are still
// enforced in the capability layer itself (pkg/capability/fs,
// pkg/capability/httpclient) — this is only the kernel-level backstop, and
// its absence here does not widen what a script can reach.
func applyPlatform(logger *slog.Logger, promises []Promise) error {
	logger.Warn("sandbox: syscall restriction is not implemented on this platform; continuing without a kernel-level backstop",
		"promises", PromisesString(promises))
	return nil
}
