package app

import (
	"time"

	"productmd/internal/adapters"
	"productmd/internal/ports"
	"productmd/internal/types"
)

type Service struct {
	Source        ports.ByteSourcePort
	Writer        ports.FileWriterPort
	Codecs        ports.CodecRegistryPort
	Hasher        ports.HasherPort
	ComposeDir    ports.ComposeDirPort
	TreeInfoFiles ports.TreeInfoFilePort
	Clock         func() time.Time
	// ZeroCopy shares decoded string slices with the source tree.
	ZeroCopy bool
}

func NewService() Service {
	return NewServiceWithConfig(types.Config{})
}

func NewServiceWithConfig(cfg types.Config) Service {
	source := adapters.NewSourceAdapter(adapters.SourceConfig{
		HTTPTimeoutSec: cfg.HTTPTimeoutSec,
		HTTPRetries:    cfg.HTTPRetries,
	})
	writer := adapters.NewFileWriterAdapter()
	return Service{
		Source:        source,
		Writer:        writer,
		Codecs:        adapters.NewCodecRegistryAdapter(),
		Hasher:        adapters.NewHasherAdapter(),
		ComposeDir:    adapters.NewComposeDirAdapter(source),
		TreeInfoFiles: adapters.NewTreeInfoFileAdapter(source, writer),
		Clock:         time.Now,
		ZeroCopy:      cfg.ZeroCopy,
	}
}
