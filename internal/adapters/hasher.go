package adapters

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"productmd/internal/ports"
	"productmd/internal/types"
)

// HasherAdapter computes file sizes and digests on the local disk.
type HasherAdapter struct{}

func NewHasherAdapter() HasherAdapter {
	return HasherAdapter{}
}

func (a HasherAdapter) FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fileError(path, err)
	}
	return info.Size(), nil
}

func (a HasherAdapter) FileChecksum(path string, algorithm types.ChecksumAlgorithm) (string, error) {
	h, err := newHash(algorithm)
	if err != nil {
		return "", err
	}
	file, err := os.Open(path)
	if err != nil {
		return "", fileError(path, err)
	}
	defer file.Close()
	if _, err := io.Copy(h, file); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read " + path).
			WithCause(err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func newHash(algorithm types.ChecksumAlgorithm) (hash.Hash, error) {
	switch algorithm {
	case types.ChecksumMD5:
		return md5.New(), nil
	case types.ChecksumSHA1:
		return sha1.New(), nil
	case types.ChecksumSHA256:
		return sha256.New(), nil
	case types.ChecksumSHA512:
		return sha512.New(), nil
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unsupported checksum type: " + string(algorithm))
	}
}

func fileError(path string, err error) error {
	code := errbuilder.CodeInternal
	if os.IsNotExist(err) {
		code = errbuilder.CodeNotFound
	}
	return errbuilder.New().
		WithCode(code).
		WithMsg("cannot access " + path).
		WithCause(err)
}

var _ ports.HasherPort = HasherAdapter{}
