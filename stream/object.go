package stream

import (
	"context"
)

// keyedState is the state of an ObjectEncoder.
type keyedState int

const (
	keyedInit keyedState = iota
	// keyedAwaitingOpen and keyedAwaitingOpenAfterClose carry the next entry
	// (in ObjectEncoder.next) before its opening token is written.
	keyedAwaitingOpen
	keyedAwaitingOpenAfterClose
	keyedEmitting
	keyedGlobalClose
	keyedDone
)

const (
	objectOpen        = "{\n    "
	objectEmpty       = "{}"
	objectKeyOpen     = ": ["
	objectFirstItem   = "\n        "
	objectItemSep     = ",\n        "
	objectNextKey     = "\n    ],\n    "
	objectGlobalClose = "\n    ]\n}"
)

// Entry pairs an object key with the query whose results become its array.
type Entry[K, R, T any] struct {
	Key   K
	Query Descriptor[R, T]
}

// ObjectEncoder renders labeled sub-sequences as one JSON object whose values
// are arrays:
//
//	{
//	    "k1": [
//	        item1a,
//	        item1b
//	    ],
//	    "k2": [
//	    ]
//	}
//
// Entries are bound to the shared handle one at a time, in order: the next
// entry is bound only after the previous sub-sequence has drained and been
// closed, so at most one sub-sequence holds the resource at any moment.
// An empty entry list renders as "{}".
type ObjectEncoder[K, R, T any] struct {
	handle  *Handle[R]
	pending []Entry[K, R, T]
	next    Entry[K, R, T]
	active  *Bound[R, T]
	opts    options

	state  keyedState
	first  bool
	buf    []byte
	closed bool
}

// NewObjectEncoder takes ownership of the caller's reference to h and
// releases it on Close.
func NewObjectEncoder[K, R, T any](h *Handle[R], entries []Entry[K, R, T], opts ...Option) *ObjectEncoder[K, R, T] {
	return &ObjectEncoder[K, R, T]{
		handle:  h,
		pending: entries,
		opts:    newOptions(opts),
		state:   keyedInit,
	}
}

// Next emits exactly one chunk or one failed slot per call.
func (e *ObjectEncoder[K, R, T]) Next(ctx context.Context) ([]byte, bool, error) {
	for {
		switch e.state {
		case keyedInit:
			if !e.popNext() {
				e.state = keyedDone
				return e.emit(objectEmpty), true, nil
			}
			e.state = keyedAwaitingOpen

		case keyedAwaitingOpen, keyedAwaitingOpenAfterClose:
			key, err := encodeKey(e.opts.marshal, e.next.Key)
			if err != nil {
				// Part of the frame may already be flushed; the object cannot
				// be completed consistently.
				e.abort()
				return nil, false, EncodingError(err)
			}
			e.buf = e.buf[:0]
			if e.state == keyedAwaitingOpen {
				e.buf = append(e.buf, objectOpen...)
			} else {
				e.buf = append(e.buf, objectNextKey...)
			}
			e.buf = append(e.buf, key...)
			e.buf = append(e.buf, objectKeyOpen...)

			e.active = Bind(ctx, e.handle, e.next.Query)
			e.next = Entry[K, R, T]{}
			e.state = keyedEmitting
			e.first = true
			return e.buf, true, nil

		case keyedEmitting:
			v, ok, err := e.active.Next(ctx)
			if err != nil {
				return nil, false, SourceError(err)
			}
			if !ok {
				closeErr := e.closeActive()
				if e.popNext() {
					e.state = keyedAwaitingOpenAfterClose
				} else {
					e.state = keyedGlobalClose
				}
				if closeErr != nil {
					return nil, false, SourceError(closeErr)
				}
				continue
			}

			first := e.first
			e.first = false

			data, err := e.opts.marshal(v)
			if err != nil {
				return nil, false, EncodingError(err)
			}
			e.buf = e.buf[:0]
			if first {
				e.buf = append(e.buf, objectFirstItem...)
			} else {
				e.buf = append(e.buf, objectItemSep...)
			}
			e.buf = append(e.buf, data...)
			return e.buf, true, nil

		case keyedGlobalClose:
			e.state = keyedDone
			return e.emit(objectGlobalClose), true, nil

		default:
			return nil, false, nil
		}
	}
}

// Close closes the active sub-sequence, if any, then releases the handle.
// Safe to call multiple times.
func (e *ObjectEncoder[K, R, T]) Close() error {
	e.state = keyedDone
	if e.closed {
		return nil
	}
	e.closed = true
	activeErr := e.closeActive()
	if releaseErr := e.handle.Release(); releaseErr != nil && activeErr == nil {
		return releaseErr
	}
	return activeErr
}

func (e *ObjectEncoder[K, R, T]) popNext() bool {
	if len(e.pending) == 0 {
		return false
	}
	e.next, e.pending = e.pending[0], e.pending[1:]
	return true
}

func (e *ObjectEncoder[K, R, T]) closeActive() error {
	if e.active == nil {
		return nil
	}
	err := e.active.Close()
	e.active = nil
	return err
}

func (e *ObjectEncoder[K, R, T]) abort() {
	_ = e.closeActive()
	e.pending = nil
	e.next = Entry[K, R, T]{}
	e.state = keyedDone
}

func (e *ObjectEncoder[K, R, T]) emit(token string) []byte {
	e.buf = append(e.buf[:0], token...)
	return e.buf
}
