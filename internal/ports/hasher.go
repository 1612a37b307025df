package ports

import "productmd/internal/types"

// HasherPort reads integrity data of files on disk.
type HasherPort interface {
	FileSize(path string) (int64, error)
	// FileChecksum returns the lowercase hex digest of the file.
	FileChecksum(path string, algorithm types.ChecksumAlgorithm) (string, error)
}
