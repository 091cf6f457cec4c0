// Package kernel provides the error taxonomy described in spec §7: every
// internal failure is classified into one of a fixed set of kinds. The
// dispatcher (pkg/dispatch) renders a policy denial as an RFC 9457-shaped
// "problem details" JSON body, and a handler failure as a plain-text 500
// carrying the error's string form.
package kernel

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind is one of spec §7's error kinds.
type Kind string

const (
	// KindInvalidArgument covers null pointer, empty name, out-of-range n
	// to random, and similar caller-supplied-value errors.
	KindInvalidArgument Kind = "InvalidArgument"
	// KindDenied covers path outside root, host not in manifest, env name
	// not in the allowlist.
	KindDenied Kind = "Denied"
	// KindIO covers read/write/open failure, socket failure.
	KindIO Kind = "Io"
	// KindDbError covers malformed SQL, constraint violation, storage
	// engine status outside done/row.
	KindDbError Kind = "DbError"
	// KindQuotaExhausted covers heap cap reached, instruction gas
	// exhausted. The script is aborted; the dispatcher emits 500.
	KindQuotaExhausted Kind = "QuotaExhausted"
	// KindManifestViolation covers a script calling a capability for which
	// no manifest entry exists.
	KindManifestViolation Kind = "ManifestViolation"
	// KindSignatureMismatch covers hull.sig missing, tampered, or signed
	// with the wrong key. Fatal at startup, before the interpreter loads.
	KindSignatureMismatch Kind = "SignatureMismatch"
	// KindFatal covers interpreter init failure, storage engine cannot
	// open. Fatal at startup.
	KindFatal Kind = "Fatal"
)

// httpStatus is the default HTTP status spec §7 implies for each kind when
// a kind surfaces as a dispatcher response rather than a startup failure.
var httpStatus = map[Kind]int{
	KindInvalidArgument:   400,
	KindDenied:            403,
	KindIO:                500,
	KindDbError:           500,
	KindQuotaExhausted:    500,
	KindManifestViolation: 500,
	KindSignatureMismatch: 500,
	KindFatal:             500,
}

// ErrorIR is the canonical, loggable, wire-renderable shape of a failure:
// RFC 9457's type/title/status/detail/instance fields plus the kind that
// drove classification and the operation that raised it.
type ErrorIR struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Kind     Kind   `json:"kind"`
	Op       string `json:"op,omitempty"`
}

// New builds an ErrorIR for kind, tagged with op (the capability or
// dispatch stage that failed) and detail (a human-readable explanation).
// Instance is a freshly generated UUID so that two errors from the same
// kind/op are still individually traceable through logs.
func New(kind Kind, op, detail string) ErrorIR {
	return ErrorIR{
		Type:     fmt.Sprintf("https://hull.dev/errors/%s", strings.ToLower(string(kind))),
		Title:    string(kind),
		Status:   httpStatus[kind],
		Detail:   detail,
		Instance: uuid.NewString(),
		Kind:     kind,
		Op:       op,
	}
}

// Wrap builds an ErrorIR for kind from an existing error, preserving its
// message as Detail.
func Wrap(kind Kind, op string, err error) ErrorIR {
	return New(kind, op, err.Error())
}

// Error implements the error interface so ErrorIR can be returned and
// chained like any other Go error.
func (e ErrorIR) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// StatusCode returns the HTTP status the dispatcher should write for this
// error when responding from within a live request (as opposed to the
// startup-fatal kinds, which the CLI handles by exiting non-zero instead).
func (e ErrorIR) StatusCode() int {
	if e.Status != 0 {
		return e.Status
	}
	return 500
}

// IsFatal reports whether kind is fatal at startup rather than surfaced as
// a per-request error (spec §7: SignatureMismatch, Fatal).
func (k Kind) IsFatal() bool {
	return k == KindSignatureMismatch || k == KindFatal
}
