package adapters

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/tidwall/jsonc"

	"productmd/internal/ports"
	"productmd/internal/types"
)

// JSONCodecAdapter reads JSON manifests, tolerating comments and
// trailing commas, and writes them with sorted keys and 4-space indent.
type JSONCodecAdapter struct{}

func NewJSONCodecAdapter() JSONCodecAdapter {
	return JSONCodecAdapter{}
}

func (a JSONCodecAdapter) Encoding() types.Encoding { return types.EncodingJSON }

func (a JSONCodecAdapter) Decode(data []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.UseNumber()
	var tree map[string]any
	if err := decoder.Decode(&tree); err != nil {
		return nil, parseError("json", err)
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse json: trailing data after document")
	}
	if tree == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse json: document is not an object")
	}
	return tree, nil
}

func (a JSONCodecAdapter) Encode(tree map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "    ")
	if err := encoder.Encode(tree); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode json").
			WithCause(err)
	}
	return buf.Bytes(), nil
}

func parseError(format string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("failed to parse " + format).
		WithCause(err)
}

var _ ports.TreeCodecPort = JSONCodecAdapter{}
