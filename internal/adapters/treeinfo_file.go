package adapters

import (
	"bytes"
	"context"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/ini.v1"

	"productmd/internal/core"
	"productmd/internal/ports"
)

// TreeInfoFileAdapter reads .treeinfo files through a byte source and
// writes them through a file writer.
type TreeInfoFileAdapter struct {
	Source ports.ByteSourcePort
	Writer ports.FileWriterPort
}

func NewTreeInfoFileAdapter(source ports.ByteSourcePort, writer ports.FileWriterPort) TreeInfoFileAdapter {
	return TreeInfoFileAdapter{Source: source, Writer: writer}
}

func (a TreeInfoFileAdapter) LoadTreeInfo(ctx context.Context, location string) (*ini.File, error) {
	data, err := a.Source.Read(ctx, location)
	if err != nil {
		return nil, err
	}
	return core.LoadINI(data)
}

func (a TreeInfoFileAdapter) SaveTreeInfo(path string, f *ini.File) error {
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to render treeinfo").
			WithCause(err)
	}
	return a.Writer.WriteFile(path, buf.Bytes())
}

var _ ports.TreeInfoFilePort = TreeInfoFileAdapter{}
