package codec

import (
	"io"

	"github.com/pkg/errors"
)

// A SeekBuffer is an in-memory io.WriteSeeker, for encoding without a file.
type SeekBuffer struct {
	buf []byte
	off int
}

// Write writes p at the current offset, growing the buffer as needed.
func (b *SeekBuffer) Write(p []byte) (int, error) {
	if end := b.off + len(p); end > len(b.buf) {
		b.buf = append(b.buf, make([]byte, end-len(b.buf))...)
	}
	n := copy(b.buf[b.off:], p)
	b.off += n
	return n, nil
}

// Seek sets the offset for the next Write.
func (b *SeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.off) + offset
	case io.SeekEnd:
		abs = int64(len(b.buf)) + offset
	default:
		return 0, errors.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.Errorf("negative position %d", abs)
	}
	b.off = int(abs)
	return abs, nil
}

// Bytes returns the buffer contents.
func (b *SeekBuffer) Bytes() []byte {
	return b.buf
}

// Len returns the size of the buffer.
func (b *SeekBuffer) Len() int {
	return len(b.buf)
}
