package adapters

import (
	"reflect"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/fxamacker/cbor/v2"

	"productmd/internal/ports"
	"productmd/internal/types"
)

// cborEncMode uses Core Deterministic Encoding so the same manifest
// always produces the same bytes.
var cborEncMode cbor.EncMode

// cborDecMode decodes untyped maps as map[string]any, the shape every
// other codec produces.
var cborDecMode cbor.DecMode

func init() {
	var err error
	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("adapters: CBOR encoder initialization failed: " + err.Error())
	}
	cborDecMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("adapters: CBOR decoder initialization failed: " + err.Error())
	}
}

type CBORCodecAdapter struct{}

func NewCBORCodecAdapter() CBORCodecAdapter {
	return CBORCodecAdapter{}
}

func (a CBORCodecAdapter) Encoding() types.Encoding { return types.EncodingCBOR }

func (a CBORCodecAdapter) Decode(data []byte) (map[string]any, error) {
	var tree map[string]any
	if err := cborDecMode.Unmarshal(data, &tree); err != nil {
		return nil, parseError("cbor", err)
	}
	if tree == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse cbor: document is not a map")
	}
	return tree, nil
}

func (a CBORCodecAdapter) Encode(tree map[string]any) ([]byte, error) {
	data, err := cborEncMode.Marshal(tree)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode cbor").
			WithCause(err)
	}
	return data, nil
}

var _ ports.TreeCodecPort = CBORCodecAdapter{}
