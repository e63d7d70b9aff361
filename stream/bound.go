package stream

import (
	"context"
	"errors"
)

// Descriptor describes a query that yields a sequence once bound to a resource.
// Bind must not fail: bind errors are reported as the first slot of the
// returned sequence (see Fail).
type Descriptor[R, T any] interface {
	Bind(ctx context.Context, res R) Iterator[T]
}

// DescriptorFunc adapts a function to Descriptor.
type DescriptorFunc[R, T any] func(ctx context.Context, res R) Iterator[T]

// Bind calls f.
func (f DescriptorFunc[R, T]) Bind(ctx context.Context, res R) Iterator[T] {
	return f(ctx, res)
}

// Bound owns one reference to a Handle together with the sequence bound to it.
// Once constructed it always has a consumer to delegate to, and Close always
// closes that consumer before the reference is released.
type Bound[R, T any] struct {
	handle *Handle[R]
	iter   Iterator[T]
	closed bool
}

// Bind retains h and binds d to its resource immediately, so the query is
// issued here and not on the first Next.
func Bind[R, T any](ctx context.Context, h *Handle[R], d Descriptor[R, T]) *Bound[R, T] {
	h.Retain()
	it := d.Bind(ctx, h.Value())
	if it == nil {
		it = Empty[T]()
	}
	return &Bound[R, T]{handle: h, iter: it}
}

// Own binds d to h and hands the caller's reference over to the returned
// Bound, which then releases the resource when it is closed.
func Own[R, T any](ctx context.Context, h *Handle[R], d Descriptor[R, T]) *Bound[R, T] {
	b := Bind(ctx, h, d)
	_ = h.Release() // never the last reference: b holds one
	return b
}

// Next delegates to the bound sequence.
func (b *Bound[R, T]) Next(ctx context.Context) (T, bool, error) {
	if b.closed {
		var zero T
		return zero, false, nil
	}
	return b.iter.Next(ctx)
}

// Close closes the bound sequence, then releases the resource reference.
// Safe to call multiple times.
func (b *Bound[R, T]) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	iterErr := b.iter.Close()
	releaseErr := b.handle.Release()
	return errors.Join(iterErr, releaseErr)
}
