package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"productmd/internal/core"
	"productmd/internal/types"
)

// document is one loaded metadata file. Exactly one of manifest,
// treeinfo and discinfo is set.
type document struct {
	kind     types.EntityKind
	source   core.FormatRevision
	encoding types.Encoding
	manifest core.Manifest
	treeinfo *core.TreeInfo
	discinfo *core.DiscInfo
}

func requirePath(value string, what string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(what + " is required")
	}
	return trimmed, nil
}

func (s Service) decodeOptions() core.DecodeOptions {
	return core.DecodeOptions{ZeroCopy: s.ZeroCopy}
}

// load reads location and decodes it by the encoding its name implies.
func (s Service) load(ctx context.Context, location string) (document, error) {
	encoding := s.Codecs.Detect(location)
	switch encoding {
	case types.EncodingINI:
		return s.loadTreeInfo(ctx, location)
	case types.EncodingText:
		return s.loadDiscInfo(ctx, location)
	}
	data, err := s.Source.Read(ctx, location)
	if err != nil {
		return document{}, err
	}
	codec, err := s.Codecs.Codec(encoding)
	if err != nil {
		return document{}, err
	}
	tree, err := codec.Decode(data)
	if err != nil {
		return document{}, err
	}
	kind, err := core.DetectKind(tree, location)
	if err != nil {
		return document{}, err
	}
	source, err := core.DetectRevision(tree)
	if err != nil {
		return document{}, err
	}
	manifest, err := core.NewManifest(kind)
	if err != nil {
		return document{}, err
	}
	if err := manifest.Decode(tree, s.decodeOptions()); err != nil {
		return document{}, err
	}
	log.Debug().
		Str("location", location).
		Str("kind", string(kind)).
		Str("version", source.String()).
		Str("encoding", string(encoding)).
		Msg("manifest loaded")
	return document{kind: kind, source: source, encoding: encoding, manifest: manifest}, nil
}

func (s Service) loadTreeInfo(ctx context.Context, location string) (document, error) {
	f, err := s.TreeInfoFiles.LoadTreeInfo(ctx, location)
	if err != nil {
		return document{}, err
	}
	treeinfo := core.NewTreeInfo()
	if err := treeinfo.Decode(f); err != nil {
		return document{}, err
	}
	source, err := core.ParseRevision(treeinfo.Header.Version)
	if err != nil {
		return document{}, err
	}
	log.Debug().
		Str("location", location).
		Str("version", source.String()).
		Int("variants", len(treeinfo.Variants.UIDs())).
		Msg("treeinfo loaded")
	return document{
		kind:     types.EntityKindTreeInfo,
		source:   source,
		encoding: types.EncodingINI,
		treeinfo: treeinfo,
	}, nil
}

func (s Service) loadDiscInfo(ctx context.Context, location string) (document, error) {
	data, err := s.Source.Read(ctx, location)
	if err != nil {
		return document{}, err
	}
	discinfo := &core.DiscInfo{}
	if err := discinfo.Decode(data); err != nil {
		return document{}, err
	}
	log.Debug().Str("location", location).Str("arch", discinfo.Arch).Msg("discinfo loaded")
	return document{kind: types.EntityKindDiscInfo, encoding: types.EncodingText, discinfo: discinfo}, nil
}

// save encodes doc at revision with encoding and writes it to output.
// RevisionUnset keeps each entity's own output revision.
func (s Service) save(doc document, output string, revision core.FormatRevision, encoding types.Encoding) error {
	switch {
	case doc.treeinfo != nil:
		if encoding != types.EncodingINI {
			return unsupportedEncoding(doc.kind, encoding)
		}
		f, err := doc.treeinfo.Encode(revision)
		if err != nil {
			return err
		}
		return s.TreeInfoFiles.SaveTreeInfo(output, f)
	case doc.discinfo != nil:
		if encoding != types.EncodingText {
			return unsupportedEncoding(doc.kind, encoding)
		}
		data, err := doc.discinfo.Encode()
		if err != nil {
			return err
		}
		return s.Writer.WriteFile(output, append(data, '\n'))
	}
	codec, err := s.Codecs.Codec(encoding)
	if err != nil {
		return err
	}
	tree, err := doc.manifest.Encode(revision)
	if err != nil {
		return err
	}
	data, err := codec.Encode(tree)
	if err != nil {
		return err
	}
	return s.Writer.WriteFile(output, data)
}

func unsupportedEncoding(kind types.EntityKind, encoding types.Encoding) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("encoding " + string(encoding) + " is not available for " + string(kind))
}

// composeOf returns the compose block of compose-scoped manifests.
func composeOf(m core.Manifest) (core.Compose, bool) {
	switch typed := m.(type) {
	case *core.ComposeInfo:
		return typed.Compose, true
	case *core.Rpms:
		return typed.Compose, true
	case *core.Images:
		return typed.Compose, true
	case *core.Modules:
		return typed.Compose, true
	case *core.ExtraFiles:
		return typed.Compose, true
	default:
		return core.Compose{}, false
	}
}
