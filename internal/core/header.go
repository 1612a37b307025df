package core

import (
	"github.com/rs/zerolog/log"

	"productmd/internal/types"
)

// Header is the envelope every manifest starts with.
type Header struct {
	Type    types.EntityKind
	Version string
}

// decodeHeader reads the header of tree and checks its type tag. The
// tag is only enforced from 1.1 on; older producers did not write it.
func decodeHeader(tree Tree, kind types.EntityKind) (Header, FormatRevision, error) {
	header, err := childMap(tree, "", "header")
	if err != nil {
		return Header{}, RevisionUnset, err
	}
	version, err := reqString(header, "header", "version")
	if err != nil {
		return Header{}, RevisionUnset, err
	}
	revision, err := ParseRevision(version)
	if err != nil {
		return Header{}, RevisionUnset, err
	}
	declared, err := optString(header, "header", "type")
	if err != nil {
		return Header{}, RevisionUnset, err
	}
	if revision >= Revision11 && declared != string(kind) {
		return Header{}, RevisionUnset, invalidf("invalid metadata type '%s', expected '%s'", declared, kind)
	}
	if revision < Revision10 {
		log.Debug().Str("type", string(kind)).Str("version", version).Msg("legacy metadata upgraded on read")
	}
	return Header{Type: kind, Version: version}, revision, nil
}

func encodeHeader(kind types.EntityKind, revision FormatRevision) map[string]any {
	return map[string]any{
		"type":    string(kind),
		"version": revision.String(),
	}
}

// KindOf returns the declared header type of a manifest tree, if any.
func KindOf(tree Tree) (types.EntityKind, bool) {
	header, ok := tree["header"].(map[string]any)
	if !ok {
		return "", false
	}
	declared, ok := header["type"].(string)
	if !ok || declared == "" {
		return "", false
	}
	return types.EntityKind(declared), true
}

// decodeEnvelope reads the header, payload and payload.compose shared by
// the compose-scoped manifests.
func decodeEnvelope(tree Tree, kind types.EntityKind) (Header, FormatRevision, map[string]any, Compose, error) {
	header, revision, err := decodeHeader(tree, kind)
	if err != nil {
		return Header{}, RevisionUnset, nil, Compose{}, err
	}
	payload, err := childMap(tree, "", "payload")
	if err != nil {
		return Header{}, RevisionUnset, nil, Compose{}, err
	}
	compose, err := decodeCompose(payload, "payload", revision)
	if err != nil {
		return Header{}, RevisionUnset, nil, Compose{}, err
	}
	return header, revision, payload, compose, nil
}

// encodeEnvelope returns the manifest tree and its payload map, with the
// compose already written.
func encodeEnvelope(kind types.EntityKind, revision FormatRevision, compose Compose) (Tree, map[string]any, error) {
	encoded, err := compose.encode()
	if err != nil {
		return nil, nil, err
	}
	payload := map[string]any{"compose": encoded}
	return Tree{"header": encodeHeader(kind, revision), "payload": payload}, payload, nil
}
