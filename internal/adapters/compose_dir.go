package adapters

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"productmd/internal/ports"
	"productmd/internal/shared"
)

// ComposeDirAdapter locates compose metadata. A compose is either
// "<path>/compose", a legacy "<path>/<subdir>" holding "metadata", or
// path itself.
type ComposeDirAdapter struct {
	Source ports.ByteSourcePort
}

func NewComposeDirAdapter(source ports.ByteSourcePort) ComposeDirAdapter {
	return ComposeDirAdapter{Source: source}
}

func (a ComposeDirAdapter) Root(ctx context.Context, composePath string) (string, error) {
	composePath = strings.TrimSpace(composePath)
	if composePath == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("compose path is required")
	}
	candidate := shared.JoinLocation(composePath, "compose")
	ok, err := a.Source.Exists(ctx, candidate)
	if err != nil {
		return "", err
	}
	if ok {
		return candidate, nil
	}
	if !shared.IsURL(composePath) {
		if root, found := legacyComposeRoot(composePath); found {
			log.Debug().Str("path", root).Msg("legacy compose layout detected")
			return root, nil
		}
	}
	return composePath, nil
}

// legacyComposeRoot returns the first subdirectory, by name, that holds
// a "metadata" directory.
func legacyComposeRoot(composePath string) (string, bool) {
	entries, err := os.ReadDir(composePath)
	if err != nil {
		return "", false
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		root := filepath.Join(composePath, name)
		if info, err := os.Stat(filepath.Join(root, "metadata")); err == nil && info.IsDir() {
			return root, true
		}
	}
	return "", false
}

func (a ComposeDirAdapter) Find(ctx context.Context, root string, candidates ...string) (string, error) {
	for _, candidate := range candidates {
		location := shared.JoinLocation(root, candidate)
		ok, err := a.Source.Exists(ctx, location)
		if err != nil {
			return "", err
		}
		if ok {
			return location, nil
		}
	}
	return "", errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg("failed to load metadata from " + root + ": none of " + strings.Join(candidates, ", ") + " exists")
}

var _ ports.ComposeDirPort = ComposeDirAdapter{}
