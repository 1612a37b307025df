package adapters

import (
	"path"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"productmd/internal/ports"
	"productmd/internal/shared"
	"productmd/internal/types"
)

// CodecRegistryAdapter holds the manifest tree codecs.
type CodecRegistryAdapter struct {
	codecs map[types.Encoding]ports.TreeCodecPort
}

func NewCodecRegistryAdapter() CodecRegistryAdapter {
	return CodecRegistryAdapter{codecs: map[types.Encoding]ports.TreeCodecPort{
		types.EncodingJSON: NewJSONCodecAdapter(),
		types.EncodingYAML: NewYAMLCodecAdapter(),
		types.EncodingCBOR: NewCBORCodecAdapter(),
	}}
}

func (a CodecRegistryAdapter) Codec(encoding types.Encoding) (ports.TreeCodecPort, error) {
	codec, ok := a.codecs[encoding]
	if !ok {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unsupported manifest encoding: " + string(encoding))
	}
	return codec, nil
}

// Detect maps a file name to its encoding. Unknown extensions are
// treated as JSON.
func (a CodecRegistryAdapter) Detect(name string) types.Encoding {
	name, _ = shared.TrimCompression(strings.ToLower(path.Base(name)))
	switch {
	case name == ".treeinfo" || name == "treeinfo" || strings.HasSuffix(name, ".ini"):
		return types.EncodingINI
	case name == ".discinfo" || name == "discinfo":
		return types.EncodingText
	}
	switch path.Ext(name) {
	case ".yaml", ".yml":
		return types.EncodingYAML
	case ".cbor":
		return types.EncodingCBOR
	default:
		return types.EncodingJSON
	}
}

var _ ports.CodecRegistryPort = CodecRegistryAdapter{}
