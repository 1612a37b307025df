package integration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productmd/internal/app"
	"productmd/internal/core"
	"productmd/internal/types"
	"productmd/tests/testutil"
)

func TestOpenFixtureCompose(t *testing.T) {
	service := app.NewService()
	compose, err := service.OpenCompose(t.Context(), testutil.Testdata(t, testutil.ComposeDir))
	require.NoError(t, err)
	assert.Equal(t, testutil.Testdata(t, testutil.ComposeDir, "compose"), compose.Root)

	info, err := compose.Info(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "Fedora-24-20160525.n.2", info.Compose.ID)
	assert.Equal(t, "Fedora-24", info.ReleaseID(false))
	assert.Equal(t, []string{"Everything", "Server"}, info.Variants.Keys(core.RootHandle))

	optional, err := info.Variant("Server-optional")
	require.NoError(t, err)
	assert.Equal(t, types.VariantTypeOptional, optional.Type)

	rpms, err := compose.Rpms(t.Context())
	require.NoError(t, err)
	modules, err := compose.Modules(t.Context())
	require.NoError(t, err)
	assert.Equal(t, info.Compose, rpms.Compose)
	assert.Equal(t, info.Compose, modules.Compose)

	entry, ok := modules.Get("Server", "x86_64", "nodejs:10:20180816123422:6c81f848")
	require.True(t, ok)
	assert.Equal(t, "module-nodejs-10-20180816123422-6c81f848", entry.KojiTag)
	assert.Len(t, entry.Rpms, 2)
}

func TestVerifyFixtureCompose(t *testing.T) {
	result, err := app.NewService().Verify(t.Context(), app.VerifyRequest{ComposePath: testutil.Testdata(t, testutil.ComposeDir)})
	require.NoError(t, err)
	assert.Equal(t, "Fedora-24-20160525.n.2", result.ComposeID)
	assert.Equal(t, 3, result.Checked)
	assert.Empty(t, result.Failures)
}

func TestValidateFixtures(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantKind types.EntityKind
	}{
		{name: "composeinfo", path: testutil.MetadataPath(t, "composeinfo.json"), wantKind: types.EntityKindComposeInfo},
		{name: "rpms", path: testutil.MetadataPath(t, "rpms.json"), wantKind: types.EntityKindRpms},
		{name: "modules", path: testutil.MetadataPath(t, "modules.json"), wantKind: types.EntityKindModules},
		{name: "images v2", path: testutil.Testdata(t, "v2", "images.json"), wantKind: types.EntityKindImages},
		{name: "legacy rpms", path: testutil.Testdata(t, "legacy", "rpm-manifest.json"), wantKind: types.EntityKindRpms},
		{name: "treeinfo", path: testutil.Testdata(t, testutil.ComposeDir, "compose", "Server", "x86_64", "os", ".treeinfo"), wantKind: types.EntityKindTreeInfo},
		{name: "discinfo", path: testutil.Testdata(t, testutil.ComposeDir, "compose", "Server", "x86_64", "os", ".discinfo"), wantKind: types.EntityKindDiscInfo},
	}
	service := app.NewService()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.Validate(t.Context(), app.ValidateRequest{Path: tt.path})
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, got.Kind)
		})
	}
}

// TestConvertEncodings converts the fixture rpms to every encoding and
// checks that each output reads back to the same JSON.
func TestConvertEncodings(t *testing.T) {
	service := app.NewService()
	source := testutil.MetadataPath(t, "rpms.json")
	reference := testutil.EncodeJSON(t, testutil.LoadManifest(t, source), core.Revision20)

	for _, name := range []string{"rpms.json", "rpms.yaml", "rpms.cbor", "rpms.json.gz"} {
		t.Run(name, func(t *testing.T) {
			output := filepath.Join(t.TempDir(), name)
			result, err := service.Convert(t.Context(), app.ConvertRequest{Path: source, Output: output, Version: "2.0"})
			require.NoError(t, err)
			assert.Equal(t, core.Revision12, result.From)
			assert.Equal(t, core.Revision20, result.To)
			require.FileExists(t, output)

			validated, err := service.Validate(t.Context(), app.ValidateRequest{Path: output})
			require.NoError(t, err)
			assert.Equal(t, core.Revision20, validated.Revision)

			if filepath.Ext(name) != ".json" {
				return
			}
			data, err := os.ReadFile(output)
			require.NoError(t, err)
			assert.Equal(t, string(reference), string(data))
		})
	}
}

func TestPublishFixtureImages(t *testing.T) {
	output := filepath.Join(t.TempDir(), "images.json")
	result, err := app.NewService().Publish(t.Context(), app.PublishRequest{
		Path:    testutil.MetadataPath(t, "images.json"),
		Output:  output,
		BaseURL: "https://cdn.example.com/compose",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Locations)

	images, ok := testutil.LoadManifest(t, output).(*core.Images)
	require.True(t, ok)
	for _, image := range images.All() {
		location, ok := image.ExplicitLocation()
		require.True(t, ok, image.Path)
		assert.Equal(t, "https://cdn.example.com/compose/"+image.Path, location.URL)
	}
}
