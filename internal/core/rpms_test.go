package core

import (
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productmd/internal/types"
)

const (
	bashBinary = "bash-0:4.2.46-19.el7.x86_64"
	bashSource = "bash-0:4.2.46-19.el7.src"
	bashPath   = "Server/x86_64/os/Packages/b/bash-4.2.46-19.el7.x86_64.rpm"
	bashSRPM   = "Server/source/tree/Packages/b/bash-4.2.46-19.el7.src.rpm"
)

func newTestRpms(t *testing.T) *Rpms {
	t.Helper()
	rpms := NewRpms()
	rpms.Compose = testCompose()
	require.NoError(t, rpms.Add(RpmRecord{
		Variant: "Server", Arch: "x86_64", NEVRA: bashBinary, Path: bashPath,
		Sigkey: "FD431D51", Category: types.RpmCategoryBinary, SRPMNEVRA: bashSource,
	}))
	require.NoError(t, rpms.Add(RpmRecord{
		Variant: "Server", Arch: "x86_64", NEVRA: bashSource, Path: bashSRPM,
		Sigkey: "FD431D51", Category: types.RpmCategorySource,
	}))
	require.NoError(t, rpms.Add(RpmRecord{
		Variant: "Server", Arch: "x86_64", NEVRA: "bash-debuginfo-0:4.2.46-19.el7.x86_64",
		Path:     "Server/x86_64/debug/tree/Packages/b/bash-debuginfo-4.2.46-19.el7.x86_64.rpm",
		Category: types.RpmCategoryDebug, SRPMNEVRA: bashSource,
	}))
	return rpms
}

func TestRpmsAdd(t *testing.T) {
	rpms := newTestRpms(t)
	assert.Equal(t, 3, rpms.Len())
	assert.Equal(t, []string{"Server"}, rpms.Variants())
	assert.Equal(t, []string{"x86_64"}, rpms.Arches("Server"))
	assert.Equal(t, []string{bashSource}, rpms.SRPMs("Server", "x86_64"))
	assert.Len(t, rpms.Packages("Server", "x86_64", bashSource), 3)

	entry, ok := rpms.Get("Server", "x86_64", bashSource, bashBinary)
	require.True(t, ok)
	assert.Equal(t, "fd431d51", entry.Sigkey)
	assert.Equal(t, bashPath, entry.Path)
}

func TestRpmsAddErrors(t *testing.T) {
	valid := RpmRecord{
		Variant: "Server", Arch: "x86_64", NEVRA: bashBinary, Path: bashPath,
		Category: types.RpmCategoryBinary, SRPMNEVRA: bashSource,
	}
	tests := []struct {
		name    string
		mutate  func(*RpmRecord)
		wantMsg string
	}{
		{name: "unknown arch", mutate: func(r *RpmRecord) { r.Arch = "pdp11" }, wantMsg: "arch not found in RPM arches"},
		{name: "source arch", mutate: func(r *RpmRecord) { r.Arch = "src" }, wantMsg: "source arch is not allowed"},
		{name: "unknown category", mutate: func(r *RpmRecord) { r.Category = "docs" }, wantMsg: "invalid category value"},
		{name: "absolute path", mutate: func(r *RpmRecord) { r.Path = "/" + bashPath }, wantMsg: "relative path expected"},
		{name: "missing epoch", mutate: func(r *RpmRecord) { r.NEVRA = "bash-4.2.46-19.el7.x86_64" }, wantMsg: "missing epoch"},
		{name: "binary without srpm", mutate: func(r *RpmRecord) { r.SRPMNEVRA = "" }, wantMsg: "missing srpm_nevra"},
		{
			name: "source with srpm",
			mutate: func(r *RpmRecord) {
				r.NEVRA = bashSource
				r.Category = types.RpmCategorySource
			},
			wantMsg: "expected blank srpm_nevra",
		},
		{name: "category arch mismatch", mutate: func(r *RpmRecord) { r.NEVRA = bashSource }, wantMsg: "invalid category/arch combination"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rpms := NewRpms()
			record := valid
			tt.mutate(&record)
			err := rpms.Add(record)
			require.Error(t, err)
			assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
			assert.Contains(t, errorMessage(err), tt.wantMsg)
			assert.Zero(t, rpms.Len())
		})
	}
}

func TestRpmsEncodeV1Shape(t *testing.T) {
	tree, err := newTestRpms(t).Encode(Revision12)
	require.NoError(t, err)
	packages := tree["payload"].(map[string]any)["rpms"].(map[string]any)["Server"].(map[string]any)["x86_64"].(map[string]any)[bashSource].(map[string]any)

	want := map[string]any{"sigkey": "fd431d51", "category": "binary", "path": bashPath}
	if diff := cmp.Diff(want, packages[bashBinary]); diff != "" {
		t.Fatalf("encoded package mismatch (-want +got):\n%s", diff)
	}
	debug := packages["bash-debuginfo-0:4.2.46-19.el7.x86_64"].(map[string]any)
	assert.Nil(t, debug["sigkey"])
}

func TestRpmsRoundTrip(t *testing.T) {
	for _, revision := range []FormatRevision{Revision10, Revision12, Revision20} {
		t.Run(revision.String(), func(t *testing.T) {
			tree, err := newTestRpms(t).Encode(revision)
			require.NoError(t, err)

			decoded := NewRpms()
			require.NoError(t, decoded.Decode(tree, DecodeOptions{}))
			assert.Equal(t, 3, decoded.Len())

			again, err := decoded.Encode(revision)
			require.NoError(t, err)
			if diff := cmp.Diff(tree, again); diff != "" {
				t.Fatalf("re-encoded tree mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRpmsExplicitLocation(t *testing.T) {
	rpms := newTestRpms(t)
	entry, ok := rpms.Get("Server", "x86_64", bashSource, bashBinary)
	require.True(t, ok)

	synthesized := entry.Location()
	assert.Equal(t, bashPath, synthesized.URL)
	_, explicit := entry.ExplicitLocation()
	assert.False(t, explicit)

	remote := Location{
		URL:       "https://cdn.example.com/" + bashPath,
		Size:      int64Ptr(1024),
		Checksum:  "sha256:" + "ab12",
		LocalPath: bashPath,
	}
	require.NoError(t, entry.SetLocation(remote))
	assert.True(t, remote.Equal(entry.Location()))

	tree, err := rpms.Encode(Revision20)
	require.NoError(t, err)
	decoded := NewRpms()
	require.NoError(t, decoded.Decode(tree, DecodeOptions{}))
	got, ok := decoded.Get("Server", "x86_64", bashSource, bashBinary)
	require.True(t, ok)
	location, ok := got.ExplicitLocation()
	require.True(t, ok)
	assert.True(t, remote.Equal(location))

	err = entry.SetLocation(Location{URL: "/abs", LocalPath: bashPath})
	require.Error(t, err)
}

func TestRpmsDecodeLegacy(t *testing.T) {
	tree := Tree{
		"header": map[string]any{"version": "0.3"},
		"payload": map[string]any{
			"compose": map[string]any{"id": "Fedora-24-20160525.n.2", "type": "nightly", "date": "20160525", "respin": 2},
			"manifest": map[string]any{
				"Server": map[string]any{
					"x86_64": map[string]any{
						bashSource: map[string]any{
							bashBinary: map[string]any{"path": bashPath, "sigkey": "FD431D51", "type": "package"},
						},
					},
					"src": map[string]any{
						bashSource: map[string]any{"path": bashSRPM, "sigkey": "FD431D51"},
					},
				},
			},
		},
	}
	rpms := NewRpms()
	require.NoError(t, rpms.Decode(tree, DecodeOptions{}))
	assert.Equal(t, 2, rpms.Len())
	assert.Equal(t, Revision10, rpms.OutputVersion())

	source, ok := rpms.Get("Server", "x86_64", bashSource, bashSource)
	require.True(t, ok)
	assert.Equal(t, types.RpmCategorySource, source.Category)
	binary, ok := rpms.Get("Server", "x86_64", bashSource, bashBinary)
	require.True(t, ok)
	assert.Equal(t, types.RpmCategoryBinary, binary.Category)
}

func TestRpmsDecodeNamesPath(t *testing.T) {
	tree, err := newTestRpms(t).Encode(Revision12)
	require.NoError(t, err)
	packages := tree["payload"].(map[string]any)["rpms"].(map[string]any)["Server"].(map[string]any)["x86_64"].(map[string]any)[bashSource].(map[string]any)
	delete(packages[bashBinary].(map[string]any), "category")

	err = NewRpms().Decode(tree, DecodeOptions{})
	require.Error(t, err)
	assert.Contains(t, errorMessage(err), "payload.rpms.Server.x86_64."+bashSource+"."+bashBinary+".category")
}

func TestRpmsDeleteVariant(t *testing.T) {
	rpms := newTestRpms(t)
	rpms.Delete("Server")
	assert.Zero(t, rpms.Len())
	assert.Empty(t, rpms.Locations())
}
