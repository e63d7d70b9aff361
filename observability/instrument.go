package observability

import (
	"context"
	"time"

	"github.com/kbukum/streamkit/stream"
)

// Instrumented wraps a chunk sequence and records chunks, bytes and failed
// slots as they pass through. It does not alter the sequence.
type Instrumented struct {
	inner   stream.Iterator[[]byte]
	metrics *StreamMetrics
	route   string

	ctx    context.Context
	start  time.Time
	chunks int
	bytes  int
	errors int
	closed bool
}

// Instrument wraps it. A nil metrics records nothing but still counts
// chunks and bytes for Stats.
func Instrument(it stream.Iterator[[]byte], metrics *StreamMetrics, route string) *Instrumented {
	return &Instrumented{inner: it, metrics: metrics, route: route}
}

// Next delegates and records the outcome.
func (i *Instrumented) Next(ctx context.Context) ([]byte, bool, error) {
	if i.start.IsZero() {
		i.start = time.Now()
		i.ctx = context.WithoutCancel(ctx)
		if i.metrics != nil {
			i.metrics.started(i.ctx, i.route)
		}
	}

	chunk, ok, err := i.inner.Next(ctx)
	switch {
	case err != nil:
		i.errors++
		if i.metrics != nil {
			i.metrics.failed(ctx, i.route, errorKind(err))
		}
	case ok:
		i.chunks++
		i.bytes += len(chunk)
		if i.metrics != nil {
			i.metrics.chunk(ctx, i.route, len(chunk))
		}
	}
	return chunk, ok, err
}

// Close closes the inner sequence and records the stream's duration.
func (i *Instrumented) Close() error {
	if i.closed {
		return nil
	}
	i.closed = true
	if i.metrics != nil && !i.start.IsZero() {
		i.metrics.finished(i.ctx, i.route, time.Since(i.start))
	}
	return i.inner.Close()
}

// Stats returns the chunks, bytes and failed slots seen so far.
func (i *Instrumented) Stats() (chunks, bytes, errors int) {
	return i.chunks, i.bytes, i.errors
}

func errorKind(err error) string {
	if se, ok := stream.AsError(err); ok {
		return se.Kind.String()
	}
	return "unknown"
}
