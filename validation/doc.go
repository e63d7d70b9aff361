// Package validation turns struct-tag and hand-written checks into 400
// AppErrors with per-field details.
//
//	type blobQuery struct {
//	    LineEnding string `form:"line_ending" validate:"omitempty,oneof=crlf lf"`
//	}
//	if err := validation.Validate(q); err != nil { ... }
package validation
