package app

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"productmd/internal/adapters"
	"productmd/internal/core"
	"productmd/internal/types"
)

const (
	testComposeID = "Fedora-24-20160525.n.2"
	dvdPath       = "Server/x86_64/iso/Fedora-Server-dvd-x86_64-24.iso"
	gplPath       = "Server/x86_64/os/GPL"
)

var fixedClock = time.Date(2026, 1, 27, 10, 0, 0, 0, time.UTC)

func newTestService() Service {
	service := NewService()
	service.Clock = func() time.Time { return fixedClock }
	return service
}

func testCompose() core.Compose {
	return core.Compose{ID: testComposeID, Type: types.ComposeTypeNightly, Date: "20160525", Respin: 2}
}

// testComposeDir is <dir>/compose with metadata and the artifacts
// described by its metadata.
type testComposeDir struct {
	dir  string
	root string
}

func (c testComposeDir) metadata(name string) string {
	return filepath.Join(c.root, "metadata", name)
}

func (c testComposeDir) artifact(rel string) string {
	return filepath.Join(c.root, filepath.FromSlash(rel))
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func writeManifest(t *testing.T, path string, m core.Manifest, revision core.FormatRevision) {
	t.Helper()
	tree, err := m.Encode(revision)
	require.NoError(t, err)
	data, err := adapters.NewJSONCodecAdapter().Encode(tree)
	require.NoError(t, err)
	writeFile(t, path, data)
}

func newTestComposeInfo(t *testing.T) *core.ComposeInfo {
	t.Helper()
	ci := core.NewComposeInfo()
	ci.Compose = testCompose()
	ci.Release = core.Release{Name: "Fedora", Version: "24", Short: "Fedora", Type: types.ReleaseTypeGA}
	server := core.NewVariant("Server", "Server", "Fedora Server", types.VariantTypeVariant, []string{"x86_64"})
	require.NoError(t, server.Paths.Set(types.PathOSTree, "x86_64", "Server/x86_64/os"))
	require.NoError(t, server.Paths.Set(types.PathIsos, "x86_64", "Server/x86_64/iso"))
	_, err := ci.AddVariant(core.RootHandle, server)
	require.NoError(t, err)
	return ci
}

func writeTestCompose(t *testing.T) testComposeDir {
	t.Helper()
	dir := t.TempDir()
	c := testComposeDir{dir: dir, root: filepath.Join(dir, "compose")}

	dvd := []byte("fedora server dvd\n")
	gpl := []byte("GNU GENERAL PUBLIC LICENSE\n")
	writeFile(t, c.artifact(dvdPath), dvd)
	writeFile(t, c.artifact(gplPath), gpl)

	writeManifest(t, c.metadata("composeinfo.json"), newTestComposeInfo(t), core.Revision12)

	images := core.NewImages()
	images.Compose = testCompose()
	require.NoError(t, images.Add("Server", "x86_64", &core.Image{
		Path:       dvdPath,
		Mtime:      1464172800,
		Size:       int64(len(dvd)),
		VolumeID:   "Fedora-S-dvd-x86_64-24",
		Type:       "dvd",
		Format:     "iso",
		Arch:       "x86_64",
		DiscNumber: 1,
		DiscCount:  1,
		Checksums:  map[string]string{"sha256": sha256Hex(dvd)},
		Bootable:   true,
		Subvariant: "Server",
	}))
	writeManifest(t, c.metadata("images.json"), images, core.Revision12)

	extra := core.NewExtraFiles()
	extra.Compose = testCompose()
	require.NoError(t, extra.Add("Server", "x86_64", gplPath, int64(len(gpl)), map[string]string{"sha256": sha256Hex(gpl)}))
	writeManifest(t, c.metadata("extra_files.json"), extra, core.Revision10)

	treeinfo := core.NewTreeInfo()
	treeinfo.Release = core.TreeRelease{TreeProduct: core.TreeProduct{Name: "Fedora", Version: "24", Short: "Fedora"}}
	treeinfo.Tree = core.TreeDetails{Arch: "x86_64", BuildTimestamp: 1464172800}
	variant := core.NewTreeVariant("Server", "Server", "Server", types.VariantTypeVariant)
	require.NoError(t, variant.SetPath(types.PathPackages, "Packages"))
	require.NoError(t, variant.SetPath(types.PathRepository, "."))
	_, err := treeinfo.AddVariant(core.RootHandle, variant)
	require.NoError(t, err)
	f, err := treeinfo.Encode(core.Revision12)
	require.NoError(t, err)
	files := adapters.NewTreeInfoFileAdapter(adapters.NewSourceAdapter(adapters.SourceConfig{}), adapters.NewFileWriterAdapter())
	require.NoError(t, files.SaveTreeInfo(c.artifact("Server/x86_64/os/.treeinfo"), f))

	discinfo := core.DiscInfo{Timestamp: 1464172800, Description: "Fedora 24", Arch: "x86_64"}
	data, err := discinfo.Encode()
	require.NoError(t, err)
	writeFile(t, c.artifact("Server/x86_64/os/.discinfo"), data)
	return c
}
