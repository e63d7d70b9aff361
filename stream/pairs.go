package stream

import (
	"fmt"
)

// Pair is one key/value entry of a PairEncoder sequence.
type Pair[K, V any] struct {
	Key   K
	Value V
}

// PairEncoder renders a sequence of pairs as one flat JSON object:
//
//	"{\n    " "k1": v1 ",\n    " "k2": v2 ... "\n}"
//
// A pair whose key or value cannot be encoded is reported as an encoding
// error in its slot; the object continues with the next pair.
type PairEncoder[K, V any] struct {
	framed[Pair[K, V]]
}

// NewPairEncoder wraps inner. The encoder owns inner and closes it on Close.
func NewPairEncoder[K, V any](inner Iterator[Pair[K, V]], opts ...Option) *PairEncoder[K, V] {
	o := newOptions(opts)
	return &PairEncoder[K, V]{framed[Pair[K, V]]{
		inner: inner,
		frame: pairFrame,
		encode: func(dst []byte, p Pair[K, V]) ([]byte, error) {
			key, err := encodeKey(o.marshal, p.Key)
			if err != nil {
				return nil, err
			}
			val, err := o.marshal(p.Value)
			if err != nil {
				return nil, err
			}
			dst = append(dst, key...)
			dst = append(dst, ": "...)
			return append(dst, val...), nil
		},
	}}
}

// encodeKey serializes a label and checks it is a JSON string, the only valid
// object key.
func encodeKey(marshal Marshaler, key any) ([]byte, error) {
	data, err := marshal(key)
	if err != nil {
		return nil, fmt.Errorf("encode key: %w", err)
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return nil, fmt.Errorf("encode key: %s is not a JSON string", data)
	}
	return data, nil
}
