// Package bitstream converts between byte windows and MSB-first bit sequences.
//
// A Reader consumes a window of bytes at a time; when the window runs dry it reports
// ErrEndOfBuffer and the caller refills it with SetBuffer and retries.
// A Writer packs bits into bytes and hands completed bytes back to the caller in batches.
package bitstream

import (
	"github.com/pkg/errors"
)

// ErrEndOfBuffer is returned when the current window holds no more bits for the requested read.
// It is recoverable: refill the Reader with SetBuffer and retry the same call.
var ErrEndOfBuffer = errors.New("end of buffer")

// A Reader reads bits from a refillable byte window.
type Reader struct {
	buf []byte
	pos int // index of the next window byte to load

	// carry is the byte currently being consumed. It lives outside the window so that a
	// byte whose bits straddle two refills can be completed after SetBuffer.
	carry byte
	left  uint // bits of carry not yet consumed, 0..8

	acc  uint32 // ReadBits progress kept across ErrEndOfBuffer
	accN uint
}

// NewReader returns a Reader over b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// SetBuffer replaces the window with b.
// Unconsumed bits of the carry byte and any partial ReadBits progress are preserved.
func (r *Reader) SetBuffer(b []byte) {
	r.buf = b
	r.pos = 0
}

// CanRead reports whether unconsumed bits remain in the carry byte or the window.
func (r *Reader) CanRead() bool {
	return r.left > 0 || r.pos < len(r.buf)
}

// Remaining returns the number of unconsumed bits in the carry byte and the window.
func (r *Reader) Remaining() int {
	return int(r.left) + 8*(len(r.buf)-r.pos)
}

// Pending returns the number of bits collected by an unfinished ReadBits call.
func (r *Reader) Pending() int {
	return int(r.accN)
}

// Buffered returns the number of window bytes not yet loaded.
// Refilling is only safe when it is zero.
func (r *Reader) Buffered() int {
	return len(r.buf) - r.pos
}

// TakePending returns and clears the bits collected by an unfinished ReadBits call.
func (r *Reader) TakePending() (uint32, int) {
	v, n := r.acc, int(r.accN)
	r.acc, r.accN = 0, 0
	return v, n
}

// Aligned reports whether the next bit starts a byte.
func (r *Reader) Aligned() bool {
	return r.left == 0
}

func (r *Reader) load() bool {
	if r.pos >= len(r.buf) {
		return false
	}
	r.carry = r.buf[r.pos]
	r.pos++
	r.left = 8
	return true
}

// ReadBit returns the next bit.
func (r *Reader) ReadBit() (uint, error) {
	if r.left == 0 && !r.load() {
		return 0, ErrEndOfBuffer
	}
	r.left--
	return uint(r.carry>>r.left) & 1, nil
}

// ReadByte returns the next 8 bits.
//
// When the reader is byte aligned the window byte is returned directly.
// Otherwise the remaining bits of the carry byte are joined with the leading bits of the next window byte.
// If that byte has not arrived yet, nothing is consumed and ErrEndOfBuffer is returned;
// the carry survives SetBuffer, so retrying after a refill completes the byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.left == 0 {
		if r.pos >= len(r.buf) {
			return 0, ErrEndOfBuffer
		}
		b := r.buf[r.pos]
		r.pos++
		return b, nil
	}
	if r.pos >= len(r.buf) {
		return 0, ErrEndOfBuffer
	}
	next := r.buf[r.pos]
	r.pos++
	shift := 8 - r.left
	b := r.carry<<shift | next>>r.left
	r.carry = next
	return b, nil
}

// ReadBits returns the next width bits, most significant first, in the low bits of the result.
// Width must be in [0, 32].
// Bits read before an ErrEndOfBuffer are kept, so after a refill the caller retries with the same width.
func (r *Reader) ReadBits(width uint) (uint32, error) {
	if width > 32 {
		return 0, errors.Errorf("read of %d bits exceeds 32", width)
	}
	if r.accN == 0 && width == 8 && r.left == 0 {
		return r.readAlignedByte()
	}
	for r.accN < width {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		r.acc = r.acc<<1 | uint32(bit)
		r.accN++
	}
	v := r.acc
	r.acc, r.accN = 0, 0
	return v, nil
}

func (r *Reader) readAlignedByte() (uint32, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	return uint32(b), nil
}
