// Package testutil loads the metadata fixtures shared by the integration
// and e2e suites.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"productmd/internal/adapters"
	"productmd/internal/core"
)

// ComposeDir is the fixture compose under Testdata.
const ComposeDir = "Fedora-24-20160525.n.2"

// RepoRoot walks up from the working directory to the directory holding
// go.mod.
func RepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, dir, parent, "go.mod not found above working directory")
		dir = parent
	}
}

// Testdata joins parts onto the integration fixture directory.
func Testdata(t *testing.T, parts ...string) string {
	t.Helper()
	return filepath.Join(append([]string{RepoRoot(t), "tests", "integration", "testdata"}, parts...)...)
}

// MetadataPath returns a file in the fixture compose's metadata directory.
func MetadataPath(t *testing.T, name string) string {
	t.Helper()
	return Testdata(t, ComposeDir, "compose", "metadata", name)
}

// DecodeTree parses JSON bytes the way the CLI does.
func DecodeTree(t *testing.T, data []byte) core.Tree {
	t.Helper()
	tree, err := adapters.NewJSONCodecAdapter().Decode(data)
	require.NoError(t, err)
	return tree
}

// DecodeManifest detects the kind of tree and decodes it. name feeds kind
// detection for headerless legacy files.
func DecodeManifest(t *testing.T, tree core.Tree, name string, opts core.DecodeOptions) core.Manifest {
	t.Helper()
	kind, err := core.DetectKind(tree, name)
	require.NoError(t, err)
	m, err := core.NewManifest(kind)
	require.NoError(t, err)
	require.NoError(t, m.Decode(tree, opts))
	return m
}

// LoadManifest reads a fixture through the byte source and the JSON
// codec, then decodes it with default options.
func LoadManifest(t *testing.T, path string) core.Manifest {
	t.Helper()
	data, err := adapters.NewSourceAdapter(adapters.SourceConfig{}).Read(t.Context(), path)
	require.NoError(t, err)
	return DecodeManifest(t, DecodeTree(t, data), path, core.DecodeOptions{})
}

// EncodeJSON writes m at revision through the JSON codec.
func EncodeJSON(t *testing.T, m core.Manifest, revision core.FormatRevision) []byte {
	t.Helper()
	tree, err := m.Encode(revision)
	require.NoError(t, err)
	data, err := adapters.NewJSONCodecAdapter().Encode(tree)
	require.NoError(t, err)
	return data
}
