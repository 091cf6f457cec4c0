package fs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hull-run/hull/pkg/manifest"
)

// Capability is the sole mediator between interpreted code and the
// filesystem (spec §4.3). Every operation is validated against the
// manifest's fs.read/fs.write sets before the path validator ever runs, so
// a script that declared no fs permissions cannot trigger a single stat
// call.
type Capability struct {
	validator *Validator
	manifest  *manifest.Manifest
}

// New builds a filesystem Capability rooted at the given directory.
func New(root string, m *manifest.Manifest) (*Capability, error) {
	v, err := NewValidator(root)
	if err != nil {
		return nil, err
	}
	return &Capability{validator: v, manifest: m}, nil
}

// Read returns the full contents of path. If path does not exist, returns
// (nil, ErrIO)-wrapped not-exist error — callers distinguish "denied" from
// "not found" by errors.Is against ErrDenied vs ErrIO.
func (c *Capability) Read(path string) ([]byte, error) {
	if !c.manifest.AllowsFSRead(path) {
		return nil, fmt.Errorf("%w: %q not under any fs.read/fs.write prefix", ErrDenied, path)
	}
	resolved, err := c.validator.Validate(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return data, nil
}

// Size returns the byte length of path without reading its contents — the
// "read with no buffer" variant spec §4.3 describes.
func (c *Capability) Size(path string) (int64, error) {
	if !c.manifest.AllowsFSRead(path) {
		return 0, fmt.Errorf("%w: %q not under any fs.read/fs.write prefix", ErrDenied, path)
	}
	resolved, err := c.validator.Validate(path)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return info.Size(), nil
}

// Write creates path (and its parent directories, mode 0755, per spec
// §4.3) and writes data to it.
func (c *Capability) Write(path string, data []byte) error {
	if !c.manifest.AllowsFSWrite(path) {
		return fmt.Errorf("%w: %q not under any fs.write prefix", ErrDenied, path)
	}
	resolved, err := c.validator.Validate(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// Exists reports whether path exists. A path outside every fs.read/fs.write
// prefix reports false together with an ErrDenied error, as the other
// operations do.
func (c *Capability) Exists(path string) (bool, error) {
	if !c.manifest.AllowsFSRead(path) {
		return false, fmt.Errorf("%w: %q not under any fs.read/fs.write prefix", ErrDenied, path)
	}
	resolved, err := c.validator.Validate(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(resolved)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", ErrIO, err)
}

// Delete removes path.
func (c *Capability) Delete(path string) error {
	if !c.manifest.AllowsFSWrite(path) {
		return fmt.Errorf("%w: %q not under any fs.write prefix", ErrDenied, path)
	}
	resolved, err := c.validator.Validate(path)
	if err != nil {
		return err
	}
	if err := os.Remove(resolved); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}
