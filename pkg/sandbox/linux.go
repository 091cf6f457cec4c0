//go:build linux

// This file implements only a seccomp-BPF syscall-class filter. It does not
// register any per-path kernel restriction (Linux landlock or any other
// unveil-style primitive) — path containment is enforced entirely above the
// kernel, in pkg/manifest.matchesPrefix and pkg/capability/fs's validator.
// That is a deliberate, permanent scope boundary, not a placeholder for a
// future landlock layer: see DESIGN.md.
package sandbox

import (
	"log/slog"
	"unsafe"

	"golang.org/x/sys/unix"
)

// deniedSyscalls is the fixed deny-list applied regardless of the promise
// set: operations no promise ever grants (spec has no "admin" promise).
var deniedSyscalls = []uint32{
	unix.SYS_MOUNT,
	unix.SYS_UMOUNT2,
	unix.SYS_REBOOT,
	unix.SYS_SWAPON,
	unix.SYS_SWAPOFF,
	unix.SYS_KEXEC_LOAD,
	unix.SYS_INIT_MODULE,
	unix.SYS_FINIT_MODULE,
	unix.SYS_DELETE_MODULE,
	unix.SYS_PIVOT_ROOT,
	unix.SYS_PTRACE,
}

// networkSyscalls are denied additionally when the promise set lacks
// "inet" — they're always present in the base set today (spec §4.7 step 4
// grants "inet" unconditionally), so this list is applied only in the
// hypothetical future a caller constructs a promise set without it.
var networkSyscalls = []uint32{
	unix.SYS_SOCKET,
	unix.SYS_CONNECT,
	unix.SYS_BIND,
	unix.SYS_LISTEN,
	unix.SYS_ACCEPT,
}

const (
	seccompRetAllow = 0x7fff0000
	seccompRetErrno = 0x00050000
)

func applyPlatform(logger *slog.Logger, promises []Promise) error {
	deny := append([]uint32(nil), deniedSyscalls...)
	if !hasPromise(promises, PromiseInet) {
		deny = append(deny, networkSyscalls...)
	}

	prog := buildSeccompFilter(deny)
	if prog == nil {
		return nil
	}

	// NO_NEW_PRIVS is required before installing a seccomp filter as a
	// non-root process.
	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		logger.Warn("sandbox: PR_SET_NO_NEW_PRIVS failed, syscall filter not applied", "error", err)
		return nil
	}

	sockFprog := &unix.SockFprog{
		Len:    uint16(len(prog)),
		Filter: &prog[0],
	}
	if err := unix.Prctl(unix.PR_SET_SECCOMP, unix.SECCOMP_MODE_FILTER, uintptr(unsafe.Pointer(sockFprog)), 0, 0); err != nil {
		logger.Warn("sandbox: seccomp filter installation failed, continuing without it", "error", err)
		return nil
	}
	logger.Info("sandbox: seccomp filter installed", "denied_syscalls", len(deny))
	return nil
}

func hasPromise(promises []Promise, want Promise) bool {
	for _, p := range promises {
		if p == want {
			return true
		}
	}
	return false
}

// buildSeccompFilter constructs a BPF program that denies the given
// syscalls and allows everything else, returning ENOSYS-as-EPERM for denied
// calls.
func buildSeccompFilter(denied []uint32) []unix.SockFilter {
	if len(denied) == 0 {
		return nil
	}
	prog := make([]unix.SockFilter, 0, len(denied)+3)
	prog = append(prog, unix.SockFilter{
		Code: unix.BPF_LD | unix.BPF_W | unix.BPF_ABS,
		K:    0,
	})
	for i, nr := range denied {
		jmpToDeny := uint8(len(denied) - i)
		prog = append(prog, unix.SockFilter{
			Code: unix.BPF_JMP | unix.BPF_JEQ | unix.BPF_K,
			Jt:   jmpToDeny,
			Jf:   0,
			K:    nr,
		})
	}
	prog = append(prog, unix.SockFilter{
		Code: unix.BPF_RET | unix.BPF_K,
		K:    seccompRetAllow,
	})
	prog = append(prog, unix.SockFilter{
		Code: unix.BPF_RET | unix.BPF_K,
		K:    seccompRetErrno | uint32(unix.EPERM),
	})
	return prog
}
