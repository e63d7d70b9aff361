package stream

import (
	jsoniter "github.com/json-iterator/go"
)

// Marshaler serializes one item or label to JSON.
type Marshaler func(v any) ([]byte, error)

// DefaultMarshaler encodes with json-iterator's encoding/json compatible config.
var DefaultMarshaler Marshaler = jsoniter.ConfigCompatibleWithStandardLibrary.Marshal

// Option configures an encoder.
type Option func(*options)

type options struct {
	marshal  Marshaler
	maxChunk int
}

func newOptions(opts []Option) options {
	o := options{marshal: DefaultMarshaler}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithMarshaler replaces the JSON marshaler used for items and labels.
func WithMarshaler(m Marshaler) Option {
	return func(o *options) {
		if m != nil {
			o.marshal = m
		}
	}
}

// WithMaxChunk bounds the hex encoder's scratch buffer to n bytes. A chunk
// whose encoded form does not fit is reported as an encoding error.
// Zero means unbounded.
func WithMaxChunk(n int) Option {
	return func(o *options) { o.maxChunk = n }
}
