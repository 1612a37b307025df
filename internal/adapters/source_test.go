package adapters

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const composeInfoJSON = `{"header": {"type": "productmd.composeinfo", "version": "1.2"}}`

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	_, err := writer.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return buf.Bytes()
}

// ---------------------------------------------------------------------------
// Local files
// ---------------------------------------------------------------------------

func TestSourceReadLocal(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "composeinfo.json")
	packed := filepath.Join(dir, "rpms.json.gz")
	require.NoError(t, os.WriteFile(plain, []byte(composeInfoJSON), 0o644))
	require.NoError(t, os.WriteFile(packed, gzipBytes(t, []byte(composeInfoJSON)), 0o644))

	source := NewSourceAdapter(SourceConfig{})
	for _, location := range []string{plain, packed} {
		data, err := source.Read(t.Context(), location)
		require.NoError(t, err)
		if diff := cmp.Diff(composeInfoJSON, string(data)); diff != "" {
			t.Fatalf("unexpected content of %s (-want +got):\n%s", location, diff)
		}
	}

	broken := filepath.Join(dir, "broken.json.gz")
	require.NoError(t, os.WriteFile(broken, []byte("not gzip"), 0o644))
	_, err := source.Read(t.Context(), broken)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))

	_, err = source.Read(t.Context(), filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestSourceExistsLocal(t *testing.T) {
	dir := t.TempDir()
	source := NewSourceAdapter(SourceConfig{})

	ok, err := source.Exists(t.Context(), dir)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = source.Exists(t.Context(), filepath.Join(dir, "compose"))
	require.NoError(t, err)
	assert.False(t, ok)
}

// ---------------------------------------------------------------------------
// HTTP
// ---------------------------------------------------------------------------

func newComposeServer(t *testing.T) *httptest.Server {
	t.Helper()
	packed := gzipBytes(t, []byte(composeInfoJSON))
	mux := http.NewServeMux()
	mux.HandleFunc("/compose/metadata/composeinfo.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(composeInfoJSON))
	})
	mux.HandleFunc("/compose/metadata/rpms.json.gz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(packed)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestSourceReadHTTP(t *testing.T) {
	server := newComposeServer(t)
	source := NewSourceAdapter(SourceConfig{HTTPTimeoutSec: 5, HTTPRetries: 1})

	for _, name := range []string{"composeinfo.json", "rpms.json.gz"} {
		data, err := source.Read(t.Context(), server.URL+"/compose/metadata/"+name)
		require.NoError(t, err, name)
		assert.Equal(t, composeInfoJSON, string(data), name)
	}

	_, err := source.Read(t.Context(), server.URL+"/compose/metadata/images.json")
	require.Error(t, err)
	if diff := cmp.Diff(errbuilder.CodeNotFound, errbuilder.CodeOf(err)); diff != "" {
		t.Fatalf("unexpected error code (-want +got):\n%s", diff)
	}
}

func TestSourceExistsHTTP(t *testing.T) {
	server := newComposeServer(t)
	source := NewSourceAdapter(SourceConfig{HTTPRetries: 1})

	ok, err := source.Exists(t.Context(), server.URL+"/compose/metadata/composeinfo.json")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = source.Exists(t.Context(), server.URL+"/compose/metadata/modules.json")
	require.NoError(t, err)
	assert.False(t, ok)
}
