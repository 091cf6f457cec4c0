package fs

import (
	"testing"

	"github.com/hull-run/hull/pkg/manifest"
	"github.com/stretchr/testify/require"
)

func allowAllManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	raw := manifest.Raw{}
	raw.FS.Read = []string{"data/", "new/"}
	raw.FS.Write = []string{"data/", "new/"}
	m, err := manifest.Parse(raw)
	require.NoError(t, err)
	return m
}

func denyAllManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse(manifest.Raw{})
	require.NoError(t, err)
	return m
}

func readOnlyManifest(t *testing.T, prefix string) *manifest.Manifest {
	t.Helper()
	raw := manifest.Raw{}
	raw.FS.Read = []string{prefix}
	m, err := manifest.Parse(raw)
	require.NoError(t, err)
	return m
}
