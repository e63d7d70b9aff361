package stream

import (
	"context"
	"strings"
	"testing"
)

// step is one scripted slot: an item or a failure.
type step[T any] struct {
	val T
	err error
}

func item[T any](v T) step[T]        { return step[T]{val: v} }
func failure[T any](e error) step[T] { return step[T]{err: e} }

// scripted replays its steps in order and records Close calls.
type scripted[T any] struct {
	steps   []step[T]
	pos     int
	pulls   int
	closes  int
	onClose func()
}

func script[T any](steps ...step[T]) *scripted[T] {
	return &scripted[T]{steps: steps}
}

func (s *scripted[T]) Next(_ context.Context) (T, bool, error) {
	s.pulls++
	var zero T
	if s.pos >= len(s.steps) {
		return zero, false, nil
	}
	st := s.steps[s.pos]
	s.pos++
	if st.err != nil {
		return zero, false, st.err
	}
	return st.val, true, nil
}

func (s *scripted[T]) Close() error {
	s.closes++
	if s.onClose != nil {
		s.onClose()
	}
	return nil
}

// slot is one observed result of Next.
type slot struct {
	chunk string
	err   error
}

// pullAll calls Next until end of sequence, recording chunks and failed slots.
func pullAll(t *testing.T, it Iterator[[]byte]) []slot {
	t.Helper()
	var out []slot
	for i := 0; i < 1000; i++ {
		chunk, ok, err := it.Next(context.Background())
		if err != nil {
			out = append(out, slot{err: err})
			continue
		}
		if !ok {
			return out
		}
		out = append(out, slot{chunk: string(chunk)})
	}
	t.Fatal("sequence did not end")
	return nil
}

func joinChunks(slots []slot) string {
	var b strings.Builder
	for _, s := range slots {
		b.WriteString(s.chunk)
	}
	return b.String()
}

func countErrors(slots []slot) int {
	n := 0
	for _, s := range slots {
		if s.err != nil {
			n++
		}
	}
	return n
}
