package app

import (
	"context"
	"strings"

	"productmd/internal/core"
	"productmd/internal/types"
)

func (s Service) ParseComposeID(_ context.Context, composeID string) (ComposeIDResult, error) {
	composeID, err := requirePath(composeID, "compose id")
	if err != nil {
		return ComposeIDResult{}, err
	}
	parsed, err := core.ParseComposeID(composeID)
	if err != nil {
		return ComposeIDResult{}, err
	}
	return ComposeIDResult{ID: parsed}, nil
}

func (s Service) ParseReleaseID(_ context.Context, releaseID string) (core.ReleaseID, error) {
	releaseID, err := requirePath(releaseID, "release id")
	if err != nil {
		return core.ReleaseID{}, err
	}
	return core.ParseReleaseID(releaseID)
}

// CreateReleaseID encodes a release id; the base product is optional
// and only used when BaseShort is set.
func (s Service) CreateReleaseID(_ context.Context, req ReleaseIDRequest) (string, error) {
	var base *core.ReleaseID
	if strings.TrimSpace(req.BaseShort) != "" {
		base = &core.ReleaseID{
			Short:   req.BaseShort,
			Version: req.BaseVersion,
			Type:    defaultReleaseType(req.BaseType),
		}
	}
	return core.CreateReleaseID(req.Short, req.Version, defaultReleaseType(req.Type), base)
}

func defaultReleaseType(releaseType types.ReleaseType) types.ReleaseType {
	if releaseType == "" {
		return types.ReleaseTypeGA
	}
	return releaseType
}
