package store

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/roach88/tabula/internal/value"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CanonicalEncOptions().EncMode(); err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// marshalResult encodes a value as canonical CBOR of its native form.
func marshalResult(v value.Value) ([]byte, error) {
	native, err := value.ToNative(v)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	data, err := encMode.Marshal(native)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return data, nil
}

// unmarshalResult decodes stored CBOR into plain Go data.
func unmarshalResult(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var out any
	if err := decMode.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return out, nil
}
