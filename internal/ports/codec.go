package ports

import "productmd/internal/types"

// TreeCodecPort converts between bytes and the generic manifest tree.
type TreeCodecPort interface {
	Encoding() types.Encoding
	Decode(data []byte) (map[string]any, error)
	Encode(tree map[string]any) ([]byte, error)
}

// CodecRegistryPort picks a codec by encoding name or file name.
type CodecRegistryPort interface {
	Codec(encoding types.Encoding) (TreeCodecPort, error)
	Detect(path string) types.Encoding
}
