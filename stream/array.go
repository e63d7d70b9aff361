package stream

import (
	"context"
)

// frameState tracks a single-sequence frame: opening token, items, closing token.
type frameState int

const (
	frameNotStarted frameState = iota
	frameStreaming
	frameClosed
	frameDone
)

// frame holds the literal tokens around and between items.
type frame struct {
	open  string
	sep   string
	close string
}

var (
	arrayFrame = frame{open: "[\n    ", sep: ",\n    ", close: "\n]"}
	pairFrame  = frame{open: "{\n    ", sep: ",\n    ", close: "\n}"}
)

// framed drives one transition per Next over an inner sequence. It is shared
// by ArrayEncoder and PairEncoder, which differ only in tokens and item encoding.
type framed[T any] struct {
	inner  Iterator[T]
	frame  frame
	encode func(dst []byte, v T) ([]byte, error)

	state  frameState
	first  bool
	buf    []byte
	closed bool
}

// Next emits the opening token, then one item per call, then the closing
// token on the same call that observes the inner sequence is exhausted.
func (f *framed[T]) Next(ctx context.Context) ([]byte, bool, error) {
	for {
		switch f.state {
		case frameNotStarted:
			f.state = frameStreaming
			f.first = true
			return f.emit(f.frame.open), true, nil

		case frameStreaming:
			v, ok, err := f.inner.Next(ctx)
			if err != nil {
				return nil, false, SourceError(err)
			}
			if !ok {
				f.state = frameClosed
				continue
			}
			// first advances even when encoding fails, so the next good item
			// is always separated from whatever preceded it.
			first := f.first
			f.first = false

			f.buf = f.buf[:0]
			if !first {
				f.buf = append(f.buf, f.frame.sep...)
			}
			out, err := f.encode(f.buf, v)
			if err != nil {
				return nil, false, EncodingError(err)
			}
			f.buf = out
			return f.buf, true, nil

		case frameClosed:
			f.state = frameDone
			return f.emit(f.frame.close), true, nil

		default:
			return nil, false, nil
		}
	}
}

// Close stops the frame and closes the inner sequence. Safe to call multiple times.
func (f *framed[T]) Close() error {
	f.state = frameDone
	if f.closed {
		return nil
	}
	f.closed = true
	return f.inner.Close()
}

func (f *framed[T]) emit(token string) []byte {
	f.buf = append(f.buf[:0], token...)
	return f.buf
}

// ArrayEncoder renders a sequence as a JSON array:
//
//	"[\n    " item1 ",\n    " item2 ... "\n]"
//
// An empty sequence renders as "[\n    \n]".
type ArrayEncoder[T any] struct {
	framed[T]
}

// NewArrayEncoder wraps inner. The encoder owns inner and closes it on Close.
func NewArrayEncoder[T any](inner Iterator[T], opts ...Option) *ArrayEncoder[T] {
	o := newOptions(opts)
	return &ArrayEncoder[T]{framed[T]{
		inner: inner,
		frame: arrayFrame,
		encode: func(dst []byte, v T) ([]byte, error) {
			data, err := o.marshal(v)
			if err != nil {
				return nil, err
			}
			return append(dst, data...), nil
		},
	}}
}
