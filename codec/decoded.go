package codec

import (
	"io"
	"log/slog"

	"github.com/fumin/huff/bitstream"
	"github.com/pkg/errors"
)

// HistorySize is the number of decoded code lengths kept for end of stream rollback.
// Padding is at most 7 bits and every code is at least 1 bit long, so 8 suffices.
const HistorySize = 8

// A History is a ring of the most recent code lengths.
type History struct {
	lens  [HistorySize]int
	start int
	n     int
}

// Push records a code length, evicting the oldest once full.
func (h *History) Push(n int) {
	if h.n == HistorySize {
		h.lens[h.start] = n
		h.start = (h.start + 1) % HistorySize
		return
	}
	h.lens[(h.start+h.n)%HistorySize] = n
	h.n++
}

// Pop removes and returns the newest code length.
func (h *History) Pop() (int, bool) {
	if h.n == 0 {
		return 0, false
	}
	h.n--
	return h.lens[(h.start+h.n)%HistorySize], true
}

// Len returns the number of recorded code lengths.
func (h *History) Len() int {
	return h.n
}

// A Decoded is the decoder side of a stream.
// Symbols are packed back into bytes through a bit writer that retains enough
// recent output to retract the symbols decoded from padding bits.
type Decoded struct {
	dst     io.Writer
	w       *bitstream.Writer
	width   uint
	size    int
	keep    int
	hist    History
	written int64
	symbols int64
}

// NewDecoded returns a Decoded writing width bit symbols to dst, flushing size bytes at a time.
func NewDecoded(dst io.Writer, width, size int) *Decoded {
	if size < 1 {
		size = 1
	}
	return &Decoded{
		dst:   dst,
		w:     bitstream.NewWriter(),
		width: uint(width),
		size:  size,
		keep:  (HistorySize*width+MaxProcessBits)/8 + 2,
	}
}

// Emit appends a decoded symbol whose code was codeLen bits long.
func (d *Decoded) Emit(sym uint32, codeLen int) error {
	if d.width == 8 {
		d.w.WriteByte(byte(sym))
	} else {
		d.w.WriteBits(uint64(sym), d.width)
	}
	d.hist.Push(codeLen)
	d.symbols++
	if d.w.Buffered() < d.size+d.keep {
		return nil
	}
	return d.write(d.w.Drain(d.keep))
}

// Symbols returns the number of symbols emitted, including any later retracted.
func (d *Decoded) Symbols() int64 {
	return d.symbols
}

// Written returns the number of bytes written to dst.
func (d *Decoded) Written() int64 {
	return d.written
}

func (d *Decoded) write(content []byte) error {
	n, err := d.dst.Write(content)
	d.written += int64(n)
	if err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func (d *Decoded) retract(bits int) error {
	for i := 0; i < bits; i++ {
		if err := d.w.DeleteLastBit(); err != nil {
			return errors.Wrap(err, "")
		}
	}
	return nil
}

// Finish reconciles the end of the stream and flushes the remaining output.
//
// partial is the number of bits consumed by a symbol that was never completed.
// Those bits, plus the codes of the newest symbols if needed, must add up to exactly
// the padding recorded in the frame; symbols decoded from padding are retracted.
// The zero bits that extended the final input symbol are retracted last.
func (d *Decoded) Finish(f Frame, partial int, log *slog.Logger) error {
	remaining := f.Padding - partial
	if remaining < 0 {
		return errors.Wrapf(ErrUnknownSymbolCode, "%d trailing bits exceed %d padding bits", partial, f.Padding)
	}
	for remaining > 0 {
		n, ok := d.hist.Pop()
		if !ok {
			return errors.Wrapf(ErrMalformedHeader, "padding of %d bits exceeds the stream", f.Padding)
		}
		if n > remaining {
			return errors.Wrapf(ErrUnknownSymbolCode, "code of %d bits overlaps %d padding bits", n, remaining)
		}
		log.Debug("retracting symbol decoded from padding", "codeLen", n, "padding", remaining)
		remaining -= n
		if err := d.retract(int(d.width)); err != nil {
			return err
		}
	}
	if err := d.retract(f.Tail); err != nil {
		return errors.Wrapf(ErrMalformedHeader, "tail of %d bits: %v", f.Tail, err)
	}
	if d.w.Pending() != 0 {
		return errors.Wrapf(ErrMalformedHeader, "decoded output ends %d bits past a byte boundary", d.w.Pending())
	}
	return d.write(d.w.PopContent(true))
}
