package stream

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"strings"
)

// LineEnding selects the separator written between hex lines.
type LineEnding string

const (
	// CRLF separates lines with "\r\n". It is the default.
	CRLF LineEnding = "crlf"
	// LF separates lines with "\n".
	LF LineEnding = "lf"
)

// ParseLineEnding parses "crlf" or "lf", case-insensitively. An empty string
// yields the default, CRLF.
func ParseLineEnding(s string) (LineEnding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(CRLF):
		return CRLF, nil
	case string(LF):
		return LF, nil
	default:
		return "", fmt.Errorf("invalid line ending %q: must be crlf or lf", s)
	}
}

// Separator returns the literal separator for the line ending.
func (l LineEnding) Separator() string {
	if l == LF {
		return "\n"
	}
	return "\r\n"
}

// MarshalText implements encoding.TextMarshaler.
func (l LineEnding) MarshalText() ([]byte, error) {
	if l == "" {
		return []byte(CRLF), nil
	}
	return []byte(l), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *LineEnding) UnmarshalText(text []byte) error {
	parsed, err := ParseLineEnding(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// HexEncoder renders binary chunks as lower-case hex text, one chunk per
// line. Lines after the first are prefixed with the separator, so the output
// never ends with a dangling separator. All lines are written into one
// reused scratch buffer.
type HexEncoder struct {
	inner    Iterator[[]byte]
	sep      string
	maxChunk int

	first  bool
	done   bool
	closed bool
	buf    []byte
}

// NewHexEncoder wraps inner. Only WithMaxChunk applies to hex encoding.
func NewHexEncoder(inner Iterator[[]byte], ending LineEnding, opts ...Option) *HexEncoder {
	o := newOptions(opts)
	return &HexEncoder{
		inner:    inner,
		sep:      ending.Separator(),
		maxChunk: o.maxChunk,
		first:    true,
	}
}

// Next encodes one inner chunk per call.
func (e *HexEncoder) Next(ctx context.Context) ([]byte, bool, error) {
	if e.done {
		return nil, false, nil
	}
	chunk, ok, err := e.inner.Next(ctx)
	if err != nil {
		return nil, false, SourceError(err)
	}
	if !ok {
		e.done = true
		return nil, false, nil
	}

	prefix := ""
	if !e.first {
		prefix = e.sep
	}
	e.first = false

	need := len(prefix) + hex.EncodedLen(len(chunk))
	if e.maxChunk > 0 && need > e.maxChunk {
		return nil, false, EncodingError(fmt.Errorf("hex: encoded chunk needs %d bytes, buffer holds %d", need, e.maxChunk))
	}
	if cap(e.buf) < need {
		e.buf = make([]byte, need)
	}
	e.buf = e.buf[:need]
	copy(e.buf, prefix)
	hex.Encode(e.buf[len(prefix):], chunk)
	return e.buf, true, nil
}

// Close closes the inner sequence. Safe to call multiple times.
func (e *HexEncoder) Close() error {
	e.done = true
	if e.closed {
		return nil
	}
	e.closed = true
	return e.inner.Close()
}

// HexDecoder turns hex lines, as produced by HexEncoder, back into binary
// chunks. Leading separators are stripped; malformed hex is reported as a
// decoding error in its slot.
type HexDecoder struct {
	inner  Iterator[[]byte]
	done   bool
	closed bool
	buf    []byte
}

// NewHexDecoder wraps inner.
func NewHexDecoder(inner Iterator[[]byte]) *HexDecoder {
	return &HexDecoder{inner: inner}
}

// Next decodes one inner chunk per call.
func (d *HexDecoder) Next(ctx context.Context) ([]byte, bool, error) {
	if d.done {
		return nil, false, nil
	}
	line, ok, err := d.inner.Next(ctx)
	if err != nil {
		return nil, false, SourceError(err)
	}
	if !ok {
		d.done = true
		return nil, false, nil
	}

	line = bytes.TrimLeft(line, "\r\n")
	n := hex.DecodedLen(len(line))
	if cap(d.buf) < n {
		d.buf = make([]byte, n)
	}
	d.buf = d.buf[:n]
	if _, err := hex.Decode(d.buf, line); err != nil {
		return nil, false, DecodingError(err)
	}
	return d.buf, true, nil
}

// Close closes the inner sequence. Safe to call multiple times.
func (d *HexDecoder) Close() error {
	d.done = true
	if d.closed {
		return nil
	}
	d.closed = true
	return d.inner.Close()
}
