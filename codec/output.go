package codec

import (
	"io"

	"github.com/fumin/huff/bitstream"
	"github.com/pkg/errors"
)

// An Output is the encoder side of a stream.
// It flushes completed bytes to dst once size of them have accumulated,
// and remembers the first two bytes so the frame can be backpatched at the end.
type Output struct {
	dst     io.WriteSeeker
	w       *bitstream.Writer
	size    int
	head    [2]byte
	headN   int
	written int64
}

// NewOutput returns an Output that starts with the frame f.
func NewOutput(dst io.WriteSeeker, f Frame, size int) *Output {
	if size < 1 {
		size = 1
	}
	o := &Output{dst: dst, w: bitstream.NewWriter(), size: size}
	WriteFrame(o.w, f)
	return o
}

// Bits returns the writer that codes are appended to.
func (o *Output) Bits() *bitstream.Writer {
	return o.w
}

// Written returns the number of bytes written to dst.
func (o *Output) Written() int64 {
	return o.written
}

func (o *Output) write(content []byte) error {
	for i := 0; o.headN < len(o.head) && i < len(content); i++ {
		o.head[o.headN] = content[i]
		o.headN++
	}
	n, err := o.dst.Write(content)
	o.written += int64(n)
	if err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Flush writes the completed bytes if the buffer is full.
func (o *Output) Flush() error {
	if o.w.Buffered() < o.size {
		return nil
	}
	return o.write(o.w.PopContent(false))
}

// Finish writes the remaining bits, then backpatches the padding and tail fields of f.
// The returned frame carries the final padding.
func (o *Output) Finish(f Frame) (Frame, error) {
	f.Padding = (8 - o.w.Pending()) % 8
	if err := o.write(o.w.PopContent(true)); err != nil {
		return f, err
	}
	if o.headN < len(o.head) {
		return f, errors.Errorf("stream of %d bytes is shorter than its frame", o.headN)
	}
	if err := Backpatch(o.dst, o.head, f); err != nil {
		return f, err
	}
	return f, nil
}
