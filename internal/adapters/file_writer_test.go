package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWriterCreatesParents(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "compose", "metadata", "composeinfo.json")
	writer := NewFileWriterAdapter()

	require.NoError(t, writer.WriteFile(target, []byte("first")))
	require.NoError(t, writer.WriteFile(target, []byte(composeInfoJSON)))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	if diff := cmp.Diff(composeInfoJSON, string(data)); diff != "" {
		t.Fatalf("unexpected file content (-want +got):\n%s", diff)
	}

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileWriterCompresses(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "rpms.json.gz")
	require.NoError(t, NewFileWriterAdapter().WriteFile(target, []byte(composeInfoJSON)))

	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.NotEqual(t, composeInfoJSON, string(raw))

	data, err := NewSourceAdapter(SourceConfig{}).Read(t.Context(), target)
	require.NoError(t, err)
	assert.Equal(t, composeInfoJSON, string(data))
}
