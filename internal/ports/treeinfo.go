package ports

import (
	"context"

	"gopkg.in/ini.v1"
)

// TreeInfoFilePort loads and stores .treeinfo files.
type TreeInfoFilePort interface {
	LoadTreeInfo(ctx context.Context, location string) (*ini.File, error)
	SaveTreeInfo(path string, f *ini.File) error
}
