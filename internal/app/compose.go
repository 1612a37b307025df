package app

import (
	"context"
	"sync"

	"productmd/internal/core"
	"productmd/internal/shared"
)

var (
	composeInfoCandidates = []string{"metadata/composeinfo.json"}
	imagesCandidates      = []string{"metadata/images.json", "metadata/image-manifest.json"}
	rpmsCandidates        = []string{"metadata/rpms.json", "metadata/rpm-manifest.json"}
	modulesCandidates     = []string{"metadata/modules.json"}
	extraFilesCandidates  = []string{"metadata/extra_files.json"}
)

// ComposeDir gives access to the metadata of one compose. Each manifest
// is loaded on first use and kept.
type ComposeDir struct {
	service Service
	// Root is the compose directory holding "metadata".
	Root string

	infoOnce sync.Once
	info     *core.ComposeInfo
	infoErr  error

	imagesOnce sync.Once
	images     *core.Images
	imagesErr  error

	rpmsOnce sync.Once
	rpms     *core.Rpms
	rpmsErr  error

	modulesOnce sync.Once
	modules     *core.Modules
	modulesErr  error

	extraOnce sync.Once
	extra     *core.ExtraFiles
	extraErr  error
}

// OpenCompose locates the compose directory under composePath.
func (s Service) OpenCompose(ctx context.Context, composePath string) (*ComposeDir, error) {
	composePath, err := requirePath(composePath, "compose path")
	if err != nil {
		return nil, err
	}
	root, err := s.ComposeDir.Root(ctx, composePath)
	if err != nil {
		return nil, err
	}
	return &ComposeDir{service: s, Root: root}, nil
}

func (c *ComposeDir) Info(ctx context.Context) (*core.ComposeInfo, error) {
	c.infoOnce.Do(func() {
		c.info, c.infoErr = loadManifest[*core.ComposeInfo](ctx, c, composeInfoCandidates)
	})
	return c.info, c.infoErr
}

func (c *ComposeDir) Images(ctx context.Context) (*core.Images, error) {
	c.imagesOnce.Do(func() {
		c.images, c.imagesErr = loadManifest[*core.Images](ctx, c, imagesCandidates)
	})
	return c.images, c.imagesErr
}

func (c *ComposeDir) Rpms(ctx context.Context) (*core.Rpms, error) {
	c.rpmsOnce.Do(func() {
		c.rpms, c.rpmsErr = loadManifest[*core.Rpms](ctx, c, rpmsCandidates)
	})
	return c.rpms, c.rpmsErr
}

func (c *ComposeDir) Modules(ctx context.Context) (*core.Modules, error) {
	c.modulesOnce.Do(func() {
		c.modules, c.modulesErr = loadManifest[*core.Modules](ctx, c, modulesCandidates)
	})
	return c.modules, c.modulesErr
}

func (c *ComposeDir) ExtraFiles(ctx context.Context) (*core.ExtraFiles, error) {
	c.extraOnce.Do(func() {
		c.extra, c.extraErr = loadManifest[*core.ExtraFiles](ctx, c, extraFilesCandidates)
	})
	return c.extra, c.extraErr
}

// Path joins rel to the compose root.
func (c *ComposeDir) Path(rel string) string {
	return shared.JoinLocation(c.Root, rel)
}

func loadManifest[M core.Manifest](ctx context.Context, c *ComposeDir, candidates []string) (M, error) {
	var zero M
	location, err := c.service.ComposeDir.Find(ctx, c.Root, candidates...)
	if err != nil {
		return zero, err
	}
	doc, err := c.service.load(ctx, location)
	if err != nil {
		return zero, err
	}
	typed, ok := doc.manifest.(M)
	if !ok {
		return zero, invalidManifestKind(location, doc.kind)
	}
	return typed, nil
}
