package codec

import (
	"io"

	"github.com/fumin/huff/bitstream"
	"github.com/pkg/errors"
)

// FrameBits is the size of the frame that starts every stream.
//
//	byte 0: [1 bit variant][4 bits processBits-2][3 bits padding]
//	byte 1: [4 bits tail][payload ...
//
// Padding is the number of unused bits in the final byte.
// Tail is the number of zero bits appended to the final input symbol to make it processBits wide.
// Both are unknown until the stream ends and are backpatched by the encoder.
const FrameBits = 12

// A Variant identifies the codec that produced a stream.
type Variant int

// Variants, as stored in the first bit of the frame.
const (
	Static Variant = iota // two-pass coding with the tree in a header
	Adaptive              // one-pass FGK coding
)

func (v Variant) String() string {
	switch v {
	case Static:
		return "static"
	case Adaptive:
		return "adaptive"
	default:
		return "unknown"
	}
}

// A Frame is the decoded form of the leading FrameBits of a stream.
type Frame struct {
	Variant     Variant
	ProcessBits int
	Padding     int
	Tail        int
}

// PeekVariant returns the variant recorded in the first byte of a stream.
func PeekVariant(b byte) Variant {
	return Variant(b >> 7)
}

// WriteFrame writes the frame with padding and tail zero; they are filled in by Backpatch.
func WriteFrame(w *bitstream.Writer, f Frame) {
	w.WriteBits(uint64(f.Variant), 1)
	w.WriteBits(uint64(f.ProcessBits-MinProcessBits), 4)
	w.WriteBits(0, 3)
	w.WriteBits(0, 4)
}

// ReadFrame reads the frame from the start of a stream.
func ReadFrame(src *BitSource) (Frame, error) {
	v, err := src.ReadBits(FrameBits)
	if err != nil {
		return Frame{}, errors.Wrap(ErrMalformedHeader, err.Error())
	}
	f := Frame{
		Variant:     Variant(v >> 11),
		ProcessBits: int(v>>7&0xf) + MinProcessBits,
		Padding:     int(v >> 4 & 0x7),
		Tail:        int(v & 0xf),
	}
	if f.ProcessBits > MaxProcessBits {
		return f, errors.Wrapf(ErrMalformedHeader, "process bits %d", f.ProcessBits)
	}
	if f.Tail >= f.ProcessBits {
		return f, errors.Wrapf(ErrMalformedHeader, "tail %d for %d bit symbols", f.Tail, f.ProcessBits)
	}
	return f, nil
}

// patch returns the first two stream bytes with padding and tail filled in.
func (f Frame) patch(head [2]byte) [2]byte {
	head[0] = head[0]&^0x7 | byte(f.Padding)
	head[1] = head[1]&0x0f | byte(f.Tail)<<4
	return head
}

// Backpatch rewrites the first two bytes of dst and leaves dst positioned at its end.
func Backpatch(dst io.WriteSeeker, head [2]byte, f Frame) error {
	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "")
	}
	patched := f.patch(head)
	if _, err := dst.Write(patched[:]); err != nil {
		return errors.Wrap(err, "")
	}
	if _, err := dst.Seek(0, io.SeekEnd); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}
