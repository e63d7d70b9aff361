package stream

import (
	"context"
)

// Iterator provides pull-based sequential access to a stream of values.
// Structurally compatible with provider.Iterator[T] style sources.
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted
	// and (zero, false, err) for a failed slot; Next may be called again after
	// a failed slot.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator.
	Close() error
}

// FromSlice creates an iterator over a slice of values.
func FromSlice[T any](items []T) Iterator[T] {
	return &sliceIter[T]{items: items}
}

// Empty returns an iterator that is exhausted immediately.
func Empty[T any]() Iterator[T] {
	return &sliceIter[T]{}
}

// Fail returns an iterator that yields err as its only slot and then ends.
// Descriptors use it to surface bind failures on the first pull.
func Fail[T any](err error) Iterator[T] {
	return &failIter[T]{err: err}
}

// Once turns a single blocking call into a one-item sequence. The call runs on
// the first Next; later calls report exhaustion.
func Once[T any](fn func(context.Context) (T, error)) Iterator[T] {
	return &onceIter[T]{fn: fn}
}

// MapResult maps the items and the failed slots of it independently.
// A nil onErr passes errors through unchanged.
func MapResult[T, U any](it Iterator[T], onOK func(T) U, onErr func(error) error) Iterator[U] {
	return &mapResultIter[T, U]{source: it, onOK: onOK, onErr: onErr}
}

// Drain pulls every value and hands it to sink. It stops at the end of the
// sequence, the first failed slot or the first sink error, and closes it.
func Drain[T any](ctx context.Context, it Iterator[T], sink func(context.Context, T) error) error {
	defer it.Close()
	for {
		val, ok, err := it.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := sink(ctx, val); err != nil {
			return err
		}
	}
}

// Collect runs the iterator to the end and returns all values as a slice.
// Values gathered before a failed slot are returned alongside the error.
// Chunks from encoders alias a reused buffer; use ReadAll for those.
func Collect[T any](ctx context.Context, it Iterator[T]) ([]T, error) {
	var result []T
	err := Drain(ctx, it, func(_ context.Context, v T) error {
		result = append(result, v)
		return nil
	})
	return result, err
}

// ReadAll concatenates every chunk of it, copying each one.
func ReadAll(ctx context.Context, it Iterator[[]byte]) ([]byte, error) {
	var out []byte
	err := Drain(ctx, it, func(_ context.Context, chunk []byte) error {
		out = append(out, chunk...)
		return nil
	})
	return out, err
}

// --- Internal iterators ---

type sliceIter[T any] struct {
	items []T
	index int
}

func (it *sliceIter[T]) Next(_ context.Context) (T, bool, error) {
	if it.index >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	val := it.items[it.index]
	it.index++
	return val, true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

type failIter[T any] struct {
	err  error
	done bool
}

func (it *failIter[T]) Next(_ context.Context) (T, bool, error) {
	var zero T
	if it.done {
		return zero, false, nil
	}
	it.done = true
	return zero, false, it.err
}

func (it *failIter[T]) Close() error { return nil }

type onceIter[T any] struct {
	fn      func(context.Context) (T, error)
	emitted bool
}

func (it *onceIter[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if it.emitted {
		return zero, false, nil
	}
	val, err := it.fn(ctx)
	it.emitted = true
	if err != nil {
		return zero, false, err
	}
	return val, true, nil
}

func (it *onceIter[T]) Close() error { return nil }

type mapResultIter[T, U any] struct {
	source Iterator[T]
	onOK   func(T) U
	onErr  func(error) error
}

func (it *mapResultIter[T, U]) Next(ctx context.Context) (U, bool, error) {
	var zero U
	val, ok, err := it.source.Next(ctx)
	if err != nil {
		if it.onErr != nil {
			err = it.onErr(err)
		}
		return zero, false, err
	}
	if !ok {
		return zero, false, nil
	}
	return it.onOK(val), true, nil
}

func (it *mapResultIter[T, U]) Close() error { return it.source.Close() }
