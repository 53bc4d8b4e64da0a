// Package codec defines the configuration, errors and stream plumbing shared by the Huffman codecs.
// See its subpackages static and adaptive for the two realizations of Huffman coding.
package codec

import (
	"io"
	"log/slog"

	"github.com/fumin/huff/bitstream"
	"github.com/pkg/errors"
)

var (
	// ErrEndOfBuffer is returned by the bit reader when its window is exhausted.
	// It is handled internally by refilling and never escapes an Encode or Decode call.
	ErrEndOfBuffer = bitstream.ErrEndOfBuffer

	// ErrEndOfStream is returned when the source is exhausted while the protocol still expects bits.
	ErrEndOfStream = errors.New("unexpected end of stream")

	// ErrMalformedHeader is returned when the frame or the embedded tree cannot be decoded.
	ErrMalformedHeader = errors.New("malformed header")

	// ErrUnknownSymbolCode is returned when the trailing bits of a stream do not resolve to symbols and padding.
	ErrUnknownSymbolCode = errors.New("unknown symbol code")

	// ErrInvalidConfiguration is returned for out of range settings, before any I/O happens.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

const (
	// MinProcessBits and MaxProcessBits bound the symbol width.
	MinProcessBits = 2
	MaxProcessBits = 16

	// DefaultProcessBits makes every input byte one symbol.
	DefaultProcessBits = 8

	// DefaultBufferSize is the default size of input reads and output flushes.
	DefaultBufferSize = 1024
)

// Config holds the settings of an encode or decode session.
// The zero value selects byte symbols and 1KB buffers.
type Config struct {
	// ProcessBits is the symbol width in bits, in [MinProcessBits, MaxProcessBits].
	// Decoders ignore it and take the width from the stream.
	ProcessBits int

	// BufferSize bounds input reads and output flushes, in bytes.
	BufferSize int

	// Logger receives progress at Info and per-symbol detail at Debug. Nil discards.
	Logger *slog.Logger
}

// Validate reports ErrInvalidConfiguration for out of range settings.
func (c Config) Validate() error {
	if c.ProcessBits != 0 && (c.ProcessBits < MinProcessBits || c.ProcessBits > MaxProcessBits) {
		return errors.Wrapf(ErrInvalidConfiguration, "process bits %d not in [%d, %d]", c.ProcessBits, MinProcessBits, MaxProcessBits)
	}
	if c.BufferSize < 0 {
		return errors.Wrapf(ErrInvalidConfiguration, "buffer size %d", c.BufferSize)
	}
	return nil
}

// WithDefaults validates c and fills in unset fields.
func (c Config) WithDefaults() (Config, error) {
	if err := c.Validate(); err != nil {
		return c, err
	}
	if c.ProcessBits == 0 {
		c.ProcessBits = DefaultProcessBits
	}
	if c.BufferSize == 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c, nil
}
