package stream

import "fmt"

// Config holds encoder settings loaded from the service configuration.
type Config struct {
	// LineEnding separates hex lines: "crlf" (default) or "lf".
	LineEnding LineEnding `yaml:"line_ending" mapstructure:"line_ending" validate:"omitempty,oneof=crlf lf"`

	// MaxHexChunk bounds the hex encoder's scratch buffer in bytes. 0 is unbounded.
	MaxHexChunk int `yaml:"max_hex_chunk" mapstructure:"max_hex_chunk" validate:"gte=0"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.LineEnding == "" {
		c.LineEnding = CRLF
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if _, err := ParseLineEnding(string(c.LineEnding)); err != nil {
		return fmt.Errorf("stream.line_ending: %w", err)
	}
	if c.MaxHexChunk < 0 {
		return fmt.Errorf("stream.max_hex_chunk must be non-negative (got: %d)", c.MaxHexChunk)
	}
	return nil
}

// HexOptions returns the encoder options the configuration implies.
func (c *Config) HexOptions() []Option {
	if c.MaxHexChunk > 0 {
		return []Option{WithMaxChunk(c.MaxHexChunk)}
	}
	return nil
}
