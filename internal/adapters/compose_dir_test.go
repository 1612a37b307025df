package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeDirRoot(t *testing.T) {
	tests := []struct {
		name   string
		layout []string
		want   string
	}{
		{name: "compose subdir", layout: []string{"compose/metadata"}, want: "compose"},
		{name: "legacy subdir", layout: []string{"Fedora-24/metadata", "logs"}, want: "Fedora-24"},
		{name: "plain", layout: []string{"metadata"}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, sub := range tt.layout {
				require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0o755))
			}
			adapter := NewComposeDirAdapter(NewSourceAdapter(SourceConfig{}))
			got, err := adapter.Root(t.Context(), dir)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, tt.want), got)
		})
	}

	_, err := NewComposeDirAdapter(NewSourceAdapter(SourceConfig{})).Root(t.Context(), " ")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestComposeDirRootHTTP(t *testing.T) {
	server := newComposeServer(t)
	adapter := NewComposeDirAdapter(NewSourceAdapter(SourceConfig{HTTPRetries: 1}))

	got, err := adapter.Root(t.Context(), server.URL+"/nightly")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/nightly", got)

	found, err := adapter.Find(t.Context(), server.URL+"/compose", "metadata/rpms.json", "metadata/rpms.json.gz")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/compose/metadata/rpms.json.gz", found)
}

func TestComposeDirFind(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "metadata"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "metadata", "images.json"), []byte("{}"), 0o644))
	adapter := NewComposeDirAdapter(NewSourceAdapter(SourceConfig{}))

	got, err := adapter.Find(t.Context(), root, "metadata/images.json.gz", "metadata/images.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "metadata", "images.json"), got)

	_, err = adapter.Find(t.Context(), root, "metadata/modules.json")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}
