package bitstream

import (
	"github.com/pkg/errors"
)

// ErrNothingToDelete is returned by DeleteLastBit when every written bit has already been handed out or deleted.
var ErrNothingToDelete = errors.New("no bits left to delete")

// A Writer packs bits MSB first into bytes.
// Completed bytes accumulate in memory until the caller takes them with PopContent or Drain.
type Writer struct {
	out []byte
	cur byte
	n   uint // bits filled in cur, 0..7
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Buffered returns the number of completed bytes not yet popped.
func (w *Writer) Buffered() int {
	return len(w.out)
}

// Pending returns the number of bits in the partially filled byte, 0..7.
func (w *Writer) Pending() int {
	return int(w.n)
}

func (w *Writer) complete() {
	w.out = append(w.out, w.cur)
	w.cur = 0
	w.n = 0
}

// WriteBit appends the low bit of bit.
func (w *Writer) WriteBit(bit uint) {
	if bit&1 == 1 {
		w.cur |= 1 << (7 - w.n)
	}
	w.n++
	if w.n == 8 {
		w.complete()
	}
}

// WriteByte appends 8 bits. It never fails; the error satisfies io.ByteWriter.
func (w *Writer) WriteByte(b byte) error {
	if w.n == 0 {
		w.out = append(w.out, b)
		return nil
	}
	// The high 8-n bits of b finish cur, the low n bits start the next byte.
	w.cur |= b >> w.n
	w.out = append(w.out, w.cur)
	w.cur = b << (8 - w.n)
	return nil
}

// WriteBits appends the low width bits of value, most significant first.
func (w *Writer) WriteBits(value uint64, width uint) {
	for width >= 8 && w.n == 0 {
		width -= 8
		w.out = append(w.out, byte(value>>width))
	}
	for width > 0 {
		width--
		w.WriteBit(uint(value>>width) & 1)
	}
}

// PopContent returns and clears the completed bytes.
// With flushPartial, a partially filled trailing byte is included with its unused low bits zero.
func (w *Writer) PopContent(flushPartial bool) []byte {
	if flushPartial && w.n > 0 {
		w.complete()
	}
	content := w.out
	w.out = nil
	return content
}

// Drain returns and clears the completed bytes except for the newest keep bytes,
// which stay available to DeleteLastBit.
func (w *Writer) Drain(keep int) []byte {
	if len(w.out) <= keep {
		return nil
	}
	cut := len(w.out) - keep
	content := make([]byte, cut)
	copy(content, w.out[:cut])
	w.out = append(w.out[:0], w.out[cut:]...)
	return content
}

// DeleteLastBit retracts the most recently written bit,
// reopening the last completed byte if the partial byte is empty.
func (w *Writer) DeleteLastBit() error {
	if w.n == 0 {
		if len(w.out) == 0 {
			return ErrNothingToDelete
		}
		last := len(w.out) - 1
		w.cur = w.out[last]
		w.out = w.out[:last]
		w.n = 8
	}
	w.n--
	w.cur &^= 1 << (7 - w.n)
	return nil
}
