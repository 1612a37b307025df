package adapters

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
)

func TestTreeInfoFileSaveLoad(t *testing.T) {
	f := ini.Empty()
	header := f.Section("header")
	header.Key("type").SetValue("productmd.treeinfo")
	header.Key("version").SetValue("1.2")
	f.Section("release").Key("name").SetValue("Fedora")

	path := filepath.Join(t.TempDir(), "Server", "x86_64", "os", ".treeinfo")
	adapter := NewTreeInfoFileAdapter(NewSourceAdapter(SourceConfig{}), NewFileWriterAdapter())
	require.NoError(t, adapter.SaveTreeInfo(path, f))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "[header]"))

	loaded, err := adapter.LoadTreeInfo(t.Context(), path)
	require.NoError(t, err)
	assert.Equal(t, "1.2", loaded.Section("header").Key("version").String())
	assert.Equal(t, "Fedora", loaded.Section("release").Key("name").String())
}

func TestTreeInfoFileLoadErrors(t *testing.T) {
	dir := t.TempDir()
	adapter := NewTreeInfoFileAdapter(NewSourceAdapter(SourceConfig{}), NewFileWriterAdapter())

	_, err := adapter.LoadTreeInfo(t.Context(), filepath.Join(dir, ".treeinfo"))
	require.Error(t, err)

	path := filepath.Join(dir, "broken.treeinfo")
	require.NoError(t, os.WriteFile(path, []byte("[header\nversion = 1.2\n"), 0o644))
	_, err = adapter.LoadTreeInfo(t.Context(), path)
	require.Error(t, err)
}
