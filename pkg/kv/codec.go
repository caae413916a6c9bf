package kv

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// Codec converts between a typed value and its raw byte representation.
// Encode must be deterministic and side-effect free, and Decode must recover
// a value equal to the one encoded.
//
// A codec used for keys must additionally be order-preserving: the
// byte-lexicographic order of encoded keys must match the logical order of
// the type, because range iteration walks keys in byte order. Raw, String,
// Integer and SignedInteger satisfy this; JSON does not and should only be
// used for values.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)

	// Name identifies the codec in decode errors.
	Name() string
}

// Raw is the identity codec: bytes in, same bytes out.
type Raw struct{}

func (Raw) Name() string { return "raw" }

func (Raw) Encode(v []byte) ([]byte, error) { return v, nil }

func (Raw) Decode(data []byte) ([]byte, error) { return data, nil }

// String encodes strings as their UTF-8 bytes. Byte order matches string
// comparison order, so String is safe as a key codec.
type String struct{}

func (String) Name() string { return "string" }

func (String) Encode(v string) ([]byte, error) { return []byte(v), nil }

func (String) Decode(data []byte) (string, error) { return string(data), nil }

// Integer encodes uint64 as 8 big-endian bytes, so ascending byte order
// equals ascending numeric order.
type Integer struct{}

func (Integer) Name() string { return "integer" }

func (Integer) Encode(v uint64) ([]byte, error) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf, nil
}

func (Integer) Decode(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, &DecodeError{Codec: "integer", Err: fmt.Errorf("want 8 bytes, got %d", len(data))}
	}
	return binary.BigEndian.Uint64(data), nil
}

// SignedInteger encodes int64 as 8 big-endian bytes with the sign bit
// flipped, which keeps negative values ordered below positive ones under
// byte comparison.
type SignedInteger struct{}

func (SignedInteger) Name() string { return "signed integer" }

func (SignedInteger) Encode(v int64) ([]byte, error) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v)^(1<<63))
	return buf, nil
}

func (SignedInteger) Decode(data []byte) (int64, error) {
	if len(data) != 8 {
		return 0, &DecodeError{Codec: "signed integer", Err: fmt.Errorf("want 8 bytes, got %d", len(data))}
	}
	return int64(binary.BigEndian.Uint64(data) ^ (1 << 63)), nil
}

// JSON returns a codec that serializes T with encoding/json. Decode reports
// malformed or schema-incompatible bytes as a DecodeError.
func JSON[T any]() Codec[T] { return jsonCodec[T]{} }

type jsonCodec[T any] struct{}

func (jsonCodec[T]) Name() string { return "json" }

func (jsonCodec[T]) Encode(v T) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding json value: %w", err)
	}
	return data, nil
}

func (jsonCodec[T]) Decode(data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, &DecodeError{Codec: "json", Err: err}
	}
	return v, nil
}
