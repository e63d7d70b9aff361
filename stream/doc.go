// Package stream encodes live, pull-based sequences into wire formats while they
// are still being produced.
//
// Every sequence implements Iterator: the consumer calls Next once per output
// chunk and each call pulls from the inner sequence only when the encoder's
// state needs a new item. A failed slot is returned as an error without ending
// the sequence; the producer decides whether more items follow.
//
// # Encoders
//
//   - ArrayEncoder: one sequence rendered as a JSON array
//   - ObjectEncoder: labeled sub-sequences rendered as a JSON object of arrays,
//     each sub-sequence bound to a shared Handle only when its turn comes
//   - PairEncoder: a sequence of key/value pairs rendered as a JSON object
//   - HexEncoder / HexDecoder: binary chunks to hex lines and back
//
// Chunks returned by an encoder are only valid until the next call to Next on
// that encoder. Copy them (or use ReadAll) to keep them.
//
// # Resources
//
// Handle is a reference-counted backend resource. Bind issues a Descriptor
// against a Handle and returns a Bound sequence that holds its own reference;
// closing the Bound closes the consumer before the reference is released.
//
//	h := stream.NewHandle(conn, func(c *sql.Conn) error { return c.Close() })
//	enc := stream.NewArrayEncoder(stream.Own(ctx, h, query))
//	defer enc.Close()
//	for {
//	    chunk, ok, err := enc.Next(ctx)
//	    ...
//	}
//
// # Errors
//
// Every encoder reports failures as *Error with one of three kinds: source
// (the inner sequence failed), encoding (an item or label could not be
// serialized) and decoding (malformed binary input). Output already handed to
// the consumer is never retracted, so a failure mid-stream leaves the
// concatenated output truncated.
package stream
