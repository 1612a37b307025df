package adapters

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"

	"productmd/internal/ports"
	"productmd/internal/shared"
)

// FileWriterAdapter writes files through a temporary sibling and a
// rename. Names ending in ".gz" are compressed.
type FileWriterAdapter struct{}

func NewFileWriterAdapter() FileWriterAdapter {
	return FileWriterAdapter{}
}

func (a FileWriterAdapter) WriteFile(path string, data []byte) error {
	if _, compressed := shared.TrimCompression(path); compressed {
		var buf bytes.Buffer
		writer := gzip.NewWriter(&buf)
		if _, err := writer.Write(data); err != nil {
			return writeError(path, err)
		}
		if err := writer.Close(); err != nil {
			return writeError(path, err)
		}
		data = buf.Bytes()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return writeError(path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return writeError(path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return writeError(path, err)
	}
	if err := tmp.Close(); err != nil {
		return writeError(path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return writeError(path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return writeError(path, err)
	}
	log.Debug().Str("path", path).Int("bytes", len(data)).Msg("file written")
	return nil
}

func writeError(path string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("failed to write " + path).
		WithCause(err)
}

var _ ports.FileWriterPort = FileWriterAdapter{}
