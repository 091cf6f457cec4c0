// Package fs implements the filesystem capability: read/write/exists/delete
// operations gated by the path-containment algorithm in spec §4.3.
package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrDenied is returned by Validate (and by every operation in this package)
// when a path fails containment — syntactically, or because its resolved
// form escapes the configured root.
var ErrDenied = errors.New("fs: denied")

// ErrIO wraps an underlying system error from a permitted operation.
var ErrIO = errors.New("fs: io error")

// Validator enforces spec §4.3's six-step path-containment algorithm against
// one root directory. One Validator is constructed per application root at
// startup; the root itself never changes afterward.
type Validator struct {
	root string // canonical, absolute
}

// NewValidator canonicalizes root and returns a Validator. The base
// directory must already exist (spec §4.3 step 3).
func NewValidator(root string) (*Validator, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: root: %v", ErrDenied, err)
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: root %q must exist: %v", ErrDenied, root, err)
	}
	return &Validator{root: canon}, nil
}

// Root returns the validator's canonical root.
func (v *Validator) Root() string { return v.root }

// Validate runs the full six-step algorithm from spec §4.3 and returns the
// absolute candidate path to open if every step passes.
//
//  1. reject NULL, empty, or a leading "/".
//  2. walk segments left-to-right; reject any segment equal to "..".
//  3. (root already canonicalized in NewValidator.)
//  4. join root || "/" || path into a candidate.
//  5. walk up the candidate until an existing ancestor is found; canonicalize it.
//  6. require the canonical ancestor to equal root or start with root + "/".
func (v *Validator) Validate(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("%w: empty path", ErrDenied)
	}
	if strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("%w: absolute path %q", ErrDenied, rel)
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: path %q contains a .. component", ErrDenied, rel)
		}
	}

	candidate := filepath.Join(v.root, rel)

	ancestor := candidate
	for {
		if _, err := os.Lstat(ancestor); err == nil {
			break
		}
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			return "", fmt.Errorf("%w: no existing ancestor for %q", ErrDenied, rel)
		}
		ancestor = parent
	}

	canonAncestor, err := filepath.EvalSymlinks(ancestor)
	if err != nil {
		return "", fmt.Errorf("%w: resolving ancestor of %q: %v", ErrDenied, rel, err)
	}

	if canonAncestor != v.root && !strings.HasPrefix(canonAncestor, v.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes root via symlink", ErrDenied, rel)
	}

	return candidate, nil
}
