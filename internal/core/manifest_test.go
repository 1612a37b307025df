package core

import (
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productmd/internal/types"
)

const cdn = "https://cdn.example.com/compose/"

func TestNewManifest(t *testing.T) {
	for _, kind := range []types.EntityKind{
		types.EntityKindComposeInfo,
		types.EntityKindRpms,
		types.EntityKindImages,
		types.EntityKindModules,
		types.EntityKindExtraFiles,
	} {
		m, err := NewManifest(kind)
		require.NoError(t, err, kind)
		assert.Equal(t, DefaultRevision, m.OutputVersion())
	}

	_, err := NewManifest(types.EntityKindTreeInfo)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name    string
		tree    Tree
		file    string
		want    types.EntityKind
		wantErr bool
	}{
		{
			name: "header wins",
			tree: Tree{"header": map[string]any{"type": "productmd.images", "version": "1.2"}},
			file: "metadata/rpms.json",
			want: types.EntityKindImages,
		},
		{name: "rpm manifest name", tree: Tree{}, file: "metadata/rpm-manifest.json", want: types.EntityKindRpms},
		{name: "image manifest name", tree: Tree{}, file: "Image-Manifest.json", want: types.EntityKindImages},
		{name: "composeinfo name", tree: Tree{"header": map[string]any{"version": "1.0"}}, file: "composeinfo.json", want: types.EntityKindComposeInfo},
		{name: "extra files name", tree: Tree{}, file: "extra_files.yaml", want: types.EntityKindExtraFiles},
		{name: "unknown", tree: Tree{}, file: "data.json", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectKind(tt.tree, tt.file)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRebaseComposeInfo(t *testing.T) {
	ci := newTestComposeInfo(t)
	require.NoError(t, ci.Rebase(cdn))

	server, err := ci.Variant("Server")
	require.NoError(t, err)
	location, ok := server.Paths.Location(types.PathOSTree, "aarch64")
	require.True(t, ok)
	assert.Equal(t, cdn+"Server/aarch64/os", location.URL)
	assert.Equal(t, "Server/aarch64/os", location.LocalPath)

	optional, err := ci.Variant("Server-optional")
	require.NoError(t, err)
	location, ok = optional.Paths.Location(types.PathOSTree, "x86_64")
	require.True(t, ok)
	assert.Equal(t, cdn+"Server-optional/x86_64/os", location.URL)
}

func TestRebaseArtifacts(t *testing.T) {
	tests := []struct {
		name     string
		manifest Manifest
	}{
		{name: "rpms", manifest: newTestRpms(t)},
		{name: "images", manifest: newTestImages(t)},
		{name: "modules", manifest: newTestModules(t)},
		{name: "extra files", manifest: newTestExtraFiles(t)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := ArtifactLocations(tt.manifest)
			require.NotEmpty(t, before)
			require.NoError(t, tt.manifest.Rebase(cdn))
			after := ArtifactLocations(tt.manifest)
			require.Len(t, after, len(before))
			for key, location := range after {
				original, ok := before[key]
				require.True(t, ok, key)
				assert.Equal(t, cdn+original.LocalPath, location.URL, key)
				assert.Equal(t, original.Size, location.Size, key)
				assert.Equal(t, original.Checksum, location.Checksum, key)
			}
		})
	}
}

func TestRebaseKeepsLegacyFields(t *testing.T) {
	images := newTestImages(t)
	require.NoError(t, images.Rebase(cdn))
	image := images.Get("Server", "x86_64")[0]
	assert.Equal(t, bootISO, image.Path)
	assert.Equal(t, int64(1824522240), image.Size)
	assert.Equal(t, map[string]string{"sha256": "c0ffee"}, image.Checksums)
}

func TestArtifactLocationsKeys(t *testing.T) {
	locations := ArtifactLocations(newTestRpms(t))
	location, ok := locations["Server.x86_64 "+bashBinary]
	require.True(t, ok)
	assert.Equal(t, bashPath, location.URL)
	assert.Empty(t, ArtifactLocations(newTestComposeInfo(t)))
}
