package core

import (
	"path/filepath"

	"productmd/internal/types"
)

// fakeHasher serves sizes and digests from memory, keyed by cleaned path.
type fakeHasher struct {
	sizes   map[string]int64
	digests map[string]map[types.ChecksumAlgorithm]string
	calls   int
}

func newFakeHasher() *fakeHasher {
	return &fakeHasher{
		sizes:   map[string]int64{},
		digests: map[string]map[types.ChecksumAlgorithm]string{},
	}
}

func (h *fakeHasher) add(path string, size int64, algorithm types.ChecksumAlgorithm, digest string) {
	path = filepath.Clean(path)
	h.sizes[path] = size
	if h.digests[path] == nil {
		h.digests[path] = map[types.ChecksumAlgorithm]string{}
	}
	h.digests[path][algorithm] = digest
}

func (h *fakeHasher) FileSize(path string) (int64, error) {
	size, ok := h.sizes[filepath.Clean(path)]
	if !ok {
		return 0, notFoundf("no such file: %s", path)
	}
	return size, nil
}

func (h *fakeHasher) FileChecksum(path string, algorithm types.ChecksumAlgorithm) (string, error) {
	h.calls++
	digest, ok := h.digests[filepath.Clean(path)][algorithm]
	if !ok {
		return "", notFoundf("no %s digest for %s", algorithm, path)
	}
	return digest, nil
}

func int64Ptr(n int64) *int64 { return &n }
