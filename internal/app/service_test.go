package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productmd/internal/core"
	"productmd/internal/types"
)

// ---------------------------------------------------------------------------
// Validate
// ---------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	c := writeTestCompose(t)
	tests := []struct {
		name        string
		path        string
		wantKind    types.EntityKind
		wantVersion core.FormatRevision
		wantCompose string
	}{
		{name: "composeinfo", path: c.metadata("composeinfo.json"), wantKind: types.EntityKindComposeInfo, wantVersion: core.Revision12, wantCompose: testComposeID},
		{name: "images", path: c.metadata("images.json"), wantKind: types.EntityKindImages, wantVersion: core.Revision12, wantCompose: testComposeID},
		{name: "extra files", path: c.metadata("extra_files.json"), wantKind: types.EntityKindExtraFiles, wantVersion: core.Revision10, wantCompose: testComposeID},
		{name: "treeinfo", path: c.artifact("Server/x86_64/os/.treeinfo"), wantKind: types.EntityKindTreeInfo, wantVersion: core.Revision12},
		{name: "discinfo", path: c.artifact("Server/x86_64/os/.discinfo"), wantKind: types.EntityKindDiscInfo},
	}
	service := newTestService()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.Validate(t.Context(), ValidateRequest{Path: tt.path})
			require.NoError(t, err)
			want := ValidateResult{Kind: tt.wantKind, Revision: tt.wantVersion, ComposeID: tt.wantCompose}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("unexpected validate result (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateErrors(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "images.json")
	writeFile(t, broken, []byte(`{"header": `))
	future := filepath.Join(dir, "rpms.json")
	writeFile(t, future, []byte(`{"header": {"type": "productmd.rpms", "version": "3.0"}, "payload": {}}`))

	tests := []struct {
		name     string
		path     string
		wantCode errbuilder.ErrCode
	}{
		{name: "empty path", path: "  ", wantCode: errbuilder.CodeInvalidArgument},
		{name: "missing", path: filepath.Join(dir, "composeinfo.json"), wantCode: errbuilder.CodeNotFound},
		{name: "broken json", path: broken, wantCode: errbuilder.CodeInvalidArgument},
		{name: "future version", path: future, wantCode: errbuilder.CodeFailedPrecondition},
	}
	service := newTestService()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Validate(t.Context(), ValidateRequest{Path: tt.path})
			require.Error(t, err)
			if diff := cmp.Diff(tt.wantCode, errbuilder.CodeOf(err)); diff != "" {
				t.Fatalf("unexpected error code (-want +got):\n%s", diff)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Convert
// ---------------------------------------------------------------------------

func TestConvertManifest(t *testing.T) {
	c := writeTestCompose(t)
	service := newTestService()
	output := filepath.Join(c.dir, "out", "images.yaml")

	result, err := service.Convert(t.Context(), ConvertRequest{
		Path:    c.metadata("images.json"),
		Output:  output,
		Version: "2.0",
	})
	require.NoError(t, err)
	want := ConvertResult{
		Kind:     types.EntityKindImages,
		From:     core.Revision12,
		To:       core.Revision20,
		Encoding: types.EncodingYAML,
		Output:   output,
	}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Fatalf("unexpected convert result (-want +got):\n%s", diff)
	}

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "local_path: "+dvdPath)

	validated, err := service.Validate(t.Context(), ValidateRequest{Path: output})
	require.NoError(t, err)
	assert.Equal(t, core.Revision20, validated.Revision)
}

func TestConvertKeepsRevision(t *testing.T) {
	c := writeTestCompose(t)
	service := newTestService()
	output := filepath.Join(c.dir, "extra_files.cbor")

	result, err := service.Convert(t.Context(), ConvertRequest{Path: c.metadata("extra_files.json"), Output: output})
	require.NoError(t, err)
	assert.Equal(t, core.Revision10, result.To)
	assert.Equal(t, types.EncodingCBOR, result.Encoding)

	validated, err := service.Validate(t.Context(), ValidateRequest{Path: output})
	require.NoError(t, err)
	assert.Equal(t, types.EntityKindExtraFiles, validated.Kind)
	assert.Equal(t, testComposeID, validated.ComposeID)
}

func TestConvertTreeInfoAndDiscInfo(t *testing.T) {
	c := writeTestCompose(t)
	service := newTestService()

	treeinfo := filepath.Join(c.dir, "out", ".treeinfo")
	result, err := service.Convert(t.Context(), ConvertRequest{
		Path:    c.artifact("Server/x86_64/os/.treeinfo"),
		Output:  treeinfo,
		Version: "1.0",
	})
	require.NoError(t, err)
	assert.Equal(t, types.EncodingINI, result.Encoding)
	assert.Equal(t, core.Revision10, result.To)
	data, err := os.ReadFile(treeinfo)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "productmd.treeinfo")

	discinfo := filepath.Join(c.dir, "out", "media.discinfo")
	_, err = service.Convert(t.Context(), ConvertRequest{Path: c.artifact("Server/x86_64/os/.discinfo"), Output: discinfo})
	require.NoError(t, err)
	data, err = os.ReadFile(discinfo)
	require.NoError(t, err)
	assert.Equal(t, "1464172800.0\nFedora 24\nx86_64\nALL\n", string(data))
}

func TestConvertErrors(t *testing.T) {
	c := writeTestCompose(t)
	out := filepath.Join(c.dir, "out")
	tests := []struct {
		name     string
		req      ConvertRequest
		wantCode errbuilder.ErrCode
	}{
		{
			name:     "no output",
			req:      ConvertRequest{Path: c.metadata("images.json")},
			wantCode: errbuilder.CodeInvalidArgument,
		},
		{
			name:     "unsupported version",
			req:      ConvertRequest{Path: c.metadata("composeinfo.json"), Output: filepath.Join(out, "composeinfo.json"), Version: "3.0"},
			wantCode: errbuilder.CodeFailedPrecondition,
		},
		{
			name:     "treeinfo has no 2.0",
			req:      ConvertRequest{Path: c.artifact("Server/x86_64/os/.treeinfo"), Output: filepath.Join(out, ".treeinfo"), Version: "2.0"},
			wantCode: errbuilder.CodeFailedPrecondition,
		},
		{
			name:     "treeinfo as json",
			req:      ConvertRequest{Path: c.artifact("Server/x86_64/os/.treeinfo"), Output: filepath.Join(out, "treeinfo.json"), Encoding: types.EncodingJSON},
			wantCode: errbuilder.CodeInvalidArgument,
		},
	}
	service := newTestService()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Convert(t.Context(), tt.req)
			require.Error(t, err)
			if diff := cmp.Diff(tt.wantCode, errbuilder.CodeOf(err)); diff != "" {
				t.Fatalf("unexpected error code (-want +got):\n%s", diff)
			}
		})
	}
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

// ---------------------------------------------------------------------------
// Inspect
// ---------------------------------------------------------------------------

func TestInspect(t *testing.T) {
	c := writeTestCompose(t)
	service := newTestService()

	images, err := service.Inspect(t.Context(), InspectRequest{Path: c.metadata("images.json")})
	require.NoError(t, err)
	assert.Equal(t, testComposeID, images.ComposeID)
	assert.Equal(t, 1, images.Entries)
	assert.Equal(t, []InspectVariant{{UID: "Server", Arches: []string{"x86_64"}, Count: 1}}, images.Variants)
	assert.Equal(t, int64(len("fedora server dvd\n")), images.TotalSize)
	assert.NotEmpty(t, images.HumanSize)

	info, err := service.Inspect(t.Context(), InspectRequest{Path: c.metadata("composeinfo.json")})
	require.NoError(t, err)
	assert.Equal(t, "Fedora-24", info.Release)
	require.Len(t, info.Variants, 1)
	assert.Equal(t, types.VariantTypeVariant, info.Variants[0].Type)
	assert.Zero(t, info.TotalSize)

	tree, err := service.Inspect(t.Context(), InspectRequest{Path: c.artifact("Server/x86_64/os/.treeinfo")})
	require.NoError(t, err)
	assert.Equal(t, types.EntityKindTreeInfo, tree.Kind)
	assert.Equal(t, "Fedora-24", tree.Release)

	disc, err := service.Inspect(t.Context(), InspectRequest{Path: c.artifact("Server/x86_64/os/.discinfo")})
	require.NoError(t, err)
	assert.Equal(t, "Fedora 24", disc.Release)
	assert.Zero(t, disc.Entries)
}

// ---------------------------------------------------------------------------
// Verify
// ---------------------------------------------------------------------------

func TestVerifyClean(t *testing.T) {
	c := writeTestCompose(t)
	result, err := newTestService().Verify(t.Context(), VerifyRequest{ComposePath: c.dir})
	require.NoError(t, err)
	assert.Equal(t, testComposeID, result.ComposeID)
	assert.Equal(t, 2, result.Checked)
	assert.Empty(t, result.Failures)
	assert.Equal(t, fixedClock, result.CheckedAt)
}

func TestVerifyReportsFailures(t *testing.T) {
	c := writeTestCompose(t)
	writeFile(t, c.artifact(dvdPath), []byte("FEDORA SERVER DVD\n"))
	require.NoError(t, os.Remove(c.artifact(gplPath)))

	result, err := newTestService().Verify(t.Context(), VerifyRequest{ComposePath: c.dir})
	require.NoError(t, err)
	want := []VerifyFailure{
		{Artifact: "Server.x86_64 " + dvdPath, Path: c.artifact(dvdPath), Reason: "checksum mismatch"},
		{Artifact: "Server.x86_64 " + gplPath, Path: c.artifact(gplPath), Reason: "missing"},
	}
	if diff := cmp.Diff(want, result.Failures); diff != "" {
		t.Fatalf("unexpected failures (-want +got):\n%s", diff)
	}

	writeFile(t, c.artifact(dvdPath), []byte("short\n"))
	result, err = newTestService().Verify(t.Context(), VerifyRequest{ComposePath: c.dir})
	require.NoError(t, err)
	require.NotEmpty(t, result.Failures)
	assert.Equal(t, "size mismatch", result.Failures[0].Reason)
}

func TestVerifyWithoutExtraFiles(t *testing.T) {
	c := writeTestCompose(t)
	require.NoError(t, os.Remove(c.metadata("extra_files.json")))

	result, err := newTestService().Verify(t.Context(), VerifyRequest{ComposePath: c.dir})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)

	require.NoError(t, os.Remove(c.metadata("images.json")))
	_, err = newTestService().Verify(t.Context(), VerifyRequest{ComposePath: c.dir})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

// ---------------------------------------------------------------------------
// Publish
// ---------------------------------------------------------------------------

func TestPublish(t *testing.T) {
	c := writeTestCompose(t)
	service := newTestService()
	output := filepath.Join(c.dir, "published", "images.json")

	result, err := service.Publish(t.Context(), PublishRequest{
		Path:    c.metadata("images.json"),
		Output:  output,
		BaseURL: "https://cdn.example.com/pub/",
	})
	require.NoError(t, err)
	assert.Equal(t, PublishResult{Kind: types.EntityKindImages, Output: output, Locations: 1}, result)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"url": "https://cdn.example.com/pub/`+dvdPath+`"`)
	assert.Contains(t, string(data), `"version": "2.0"`)

	validated, err := service.Validate(t.Context(), ValidateRequest{Path: output})
	require.NoError(t, err)
	assert.Equal(t, core.Revision20, validated.Revision)
}

func TestPublishErrors(t *testing.T) {
	c := writeTestCompose(t)
	output := filepath.Join(c.dir, "published.json")
	tests := []struct {
		name    string
		req     PublishRequest
		wantMsg string
	}{
		{name: "relative base", req: PublishRequest{Path: c.metadata("images.json"), Output: output, BaseURL: "pub/compose"}, wantMsg: "must be absolute"},
		{name: "oci base", req: PublishRequest{Path: c.metadata("images.json"), Output: output, BaseURL: "oci://quay.io/fedora"}, wantMsg: "oci base urls"},
		{name: "treeinfo", req: PublishRequest{Path: c.artifact("Server/x86_64/os/.treeinfo"), Output: output, BaseURL: "https://cdn.example.com"}, wantMsg: "no artifact locations"},
		{name: "no base", req: PublishRequest{Path: c.metadata("images.json"), Output: output}, wantMsg: "base url is required"},
	}
	service := newTestService()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Publish(t.Context(), tt.req)
			require.Error(t, err)
			assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

// ---------------------------------------------------------------------------
// Compose directory
// ---------------------------------------------------------------------------

func TestOpenCompose(t *testing.T) {
	c := writeTestCompose(t)
	compose, err := newTestService().OpenCompose(t.Context(), c.dir)
	require.NoError(t, err)
	assert.Equal(t, c.root, compose.Root)
	assert.Equal(t, c.artifact(gplPath), compose.Path(gplPath))

	first, err := compose.Info(t.Context())
	require.NoError(t, err)
	second, err := compose.Info(t.Context())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, "Fedora-24", first.ReleaseID(false))

	extra, err := compose.ExtraFiles(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, extra.Len())

	_, err = compose.Rpms(t.Context())
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
	_, err = compose.Modules(t.Context())
	require.Error(t, err)
}

func TestOpenComposeWrongKind(t *testing.T) {
	c := writeTestCompose(t)
	images, err := os.ReadFile(c.metadata("images.json"))
	require.NoError(t, err)
	writeFile(t, c.metadata("rpms.json"), images)

	compose, err := newTestService().OpenCompose(t.Context(), c.root)
	require.NoError(t, err)
	_, err = compose.Rpms(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected metadata type")
}

// ---------------------------------------------------------------------------
// Identifiers
// ---------------------------------------------------------------------------

func TestComposeAndReleaseIDs(t *testing.T) {
	service := newTestService()

	parsed, err := service.ParseComposeID(t.Context(), testComposeID)
	require.NoError(t, err)
	assert.Equal(t, "Fedora", parsed.ID.Release.Short)
	assert.Equal(t, types.ComposeTypeNightly, parsed.ID.Type)
	assert.Equal(t, 2, parsed.ID.Respin)

	release, err := service.ParseReleaseID(t.Context(), "rhel-7.2-eus")
	require.NoError(t, err)
	assert.Equal(t, types.ReleaseTypeEUS, release.Type)

	id, err := service.CreateReleaseID(t.Context(), ReleaseIDRequest{Short: "sap", Version: "1.0", BaseShort: "rhel", BaseVersion: "7"})
	require.NoError(t, err)
	assert.Equal(t, "sap-1.0@rhel-7", id)

	_, err = service.ParseComposeID(t.Context(), "")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	_, err = service.ParseReleaseID(t.Context(), " ")
	require.Error(t, err)
}
