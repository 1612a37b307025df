package ports

import "context"

// ByteSourcePort reads raw manifest bytes. Locations are local paths or
// http(s) URLs; compressed content is returned decompressed.
type ByteSourcePort interface {
	Read(ctx context.Context, location string) ([]byte, error)
	Exists(ctx context.Context, location string) (bool, error)
}

// FileWriterPort writes generated files, creating parent directories.
type FileWriterPort interface {
	WriteFile(path string, data []byte) error
}
