package app

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"productmd/internal/core"
)

// Convert re-encodes a metadata file at another revision or encoding.
func (s Service) Convert(ctx context.Context, req ConvertRequest) (ConvertResult, error) {
	location, err := requirePath(req.Path, "metadata path")
	if err != nil {
		return ConvertResult{}, err
	}
	output, err := requirePath(req.Output, "output path")
	if err != nil {
		return ConvertResult{}, err
	}
	doc, err := s.load(ctx, location)
	if err != nil {
		return ConvertResult{}, err
	}
	target, err := s.targetRevision(doc, req.Version)
	if err != nil {
		return ConvertResult{}, err
	}
	encoding := req.Encoding
	if encoding == "" {
		encoding = s.Codecs.Detect(output)
		if doc.manifest == nil {
			encoding = doc.encoding
		}
	}
	if err := s.save(doc, output, target, encoding); err != nil {
		return ConvertResult{}, err
	}
	log.Debug().
		Str("from", doc.source.String()).
		Str("to", target.String()).
		Str("output", output).
		Msg("metadata converted")
	return ConvertResult{
		Kind:     doc.kind,
		From:     doc.source,
		To:       target,
		Encoding: encoding,
		Output:   output,
	}, nil
}

// targetRevision resolves the requested version, defaulting to the
// revision the entity was read as.
func (s Service) targetRevision(doc document, version string) (core.FormatRevision, error) {
	version = strings.TrimSpace(version)
	switch {
	case doc.discinfo != nil:
		return core.RevisionUnset, nil
	case doc.treeinfo != nil:
		if version != "" {
			if err := doc.treeinfo.SetOutputVersionString(version); err != nil {
				return core.RevisionUnset, err
			}
		}
		return doc.treeinfo.OutputVersion(), nil
	}
	if version != "" {
		if err := doc.manifest.SetOutputVersionString(version); err != nil {
			return core.RevisionUnset, err
		}
	}
	return doc.manifest.OutputVersion(), nil
}
