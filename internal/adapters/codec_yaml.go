package adapters

import (
	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"productmd/internal/ports"
	"productmd/internal/types"
)

type YAMLCodecAdapter struct{}

func NewYAMLCodecAdapter() YAMLCodecAdapter {
	return YAMLCodecAdapter{}
}

func (a YAMLCodecAdapter) Encoding() types.Encoding { return types.EncodingYAML }

func (a YAMLCodecAdapter) Decode(data []byte) (map[string]any, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, parseError("yaml", err)
	}
	if tree == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse yaml: document is not a mapping")
	}
	return tree, nil
}

func (a YAMLCodecAdapter) Encode(tree map[string]any) ([]byte, error) {
	data, err := yaml.Marshal(tree)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode yaml").
			WithCause(err)
	}
	return data, nil
}

var _ ports.TreeCodecPort = YAMLCodecAdapter{}
