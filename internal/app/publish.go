package app

import (
	"context"
	"net/url"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"productmd/internal/core"
)

// Publish rewrites every artifact location of a manifest to live under
// BaseURL and writes the result as 2.0.
func (s Service) Publish(ctx context.Context, req PublishRequest) (PublishResult, error) {
	location, err := requirePath(req.Path, "metadata path")
	if err != nil {
		return PublishResult{}, err
	}
	output, err := requirePath(req.Output, "output path")
	if err != nil {
		return PublishResult{}, err
	}
	baseURL, err := requirePath(req.BaseURL, "base url")
	if err != nil {
		return PublishResult{}, err
	}
	if parsed, err := url.Parse(baseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return PublishResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("base url must be absolute: " + baseURL)
	}
	if strings.HasPrefix(baseURL, "oci://") {
		return PublishResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("oci base urls need per-artifact digests and cannot be rebased")
	}
	doc, err := s.load(ctx, location)
	if err != nil {
		return PublishResult{}, err
	}
	if doc.manifest == nil {
		return PublishResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(string(doc.kind) + " has no artifact locations to publish")
	}
	if err := doc.manifest.Rebase(baseURL); err != nil {
		return PublishResult{}, err
	}
	if err := s.save(doc, output, core.Revision20, s.Codecs.Detect(output)); err != nil {
		return PublishResult{}, err
	}
	count := len(core.ArtifactLocations(doc.manifest))
	log.Debug().
		Str("kind", string(doc.kind)).
		Str("base_url", baseURL).
		Int("locations", count).
		Msg("manifest published")
	return PublishResult{Kind: doc.kind, Output: output, Locations: count}, nil
}
