package codec

import (
	"io"

	"github.com/fumin/huff/bitstream"
	"github.com/pkg/errors"
)

// A BitSource reads bits from an io.Reader through a bounded window,
// refilling the window whenever the bit reader reports ErrEndOfBuffer.
type BitSource struct {
	src  io.Reader
	r    *bitstream.Reader
	buf  []byte
	eof  bool
	read int64
}

// NewBitSource returns a BitSource reading at most size bytes per refill.
func NewBitSource(src io.Reader, size int) *BitSource {
	if size < 1 {
		size = 1
	}
	return &BitSource{src: src, r: bitstream.NewReader(nil), buf: make([]byte, size)}
}

// refill loads the next block of the source into the window.
// It returns false once the source is exhausted.
func (s *BitSource) refill() (bool, error) {
	if s.eof {
		return false, nil
	}
	if s.r.Buffered() > 0 {
		return true, nil
	}
	for {
		n, err := s.src.Read(s.buf)
		if n > 0 {
			s.read += int64(n)
			s.r.SetBuffer(s.buf[:n])
			return true, nil
		}
		if err == io.EOF {
			s.eof = true
			return false, nil
		}
		if err != nil {
			return false, errors.Wrap(err, "")
		}
	}
}

// retry runs read until it stops reporting ErrEndOfBuffer, refilling in between.
func (s *BitSource) retry(read func() error) error {
	for {
		err := read()
		if !errors.Is(err, bitstream.ErrEndOfBuffer) {
			return err
		}
		ok, err := s.refill()
		if err != nil {
			return err
		}
		if !ok {
			return ErrEndOfStream
		}
	}
}

// ReadBit returns the next bit, or ErrEndOfStream if the source is exhausted.
func (s *BitSource) ReadBit() (uint, error) {
	var bit uint
	err := s.retry(func() (err error) {
		bit, err = s.r.ReadBit()
		return err
	})
	return bit, err
}

// ReadByte returns the next 8 bits, or ErrEndOfStream if the source is exhausted.
func (s *BitSource) ReadByte() (byte, error) {
	var b byte
	err := s.retry(func() (err error) {
		b, err = s.r.ReadByte()
		return err
	})
	return b, err
}

// ReadBits returns the next width bits, or ErrEndOfStream if the source is exhausted.
// Bits collected before the source ran out stay pending, see Leftover and TakePending.
func (s *BitSource) ReadBits(width uint) (uint32, error) {
	var v uint32
	err := s.retry(func() (err error) {
		v, err = s.r.ReadBits(width)
		return err
	})
	return v, err
}

// Drained reports whether every byte of the source has been loaded into the bit reader.
// Bits of the last byte may still be unread, see Leftover.
func (s *BitSource) Drained() (bool, error) {
	ok, err := s.refill()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// Leftover returns the number of bits loaded but not returned to the caller:
// unread bits plus bits held by an unfinished ReadBits.
func (s *BitSource) Leftover() int {
	return s.r.Remaining() + s.r.Pending()
}

// TakePending returns and clears the bits collected by an unfinished ReadBits.
func (s *BitSource) TakePending() (uint32, int) {
	return s.r.TakePending()
}

// BytesRead returns the number of bytes read from the source.
func (s *BitSource) BytesRead() int64 {
	return s.read
}

// A SymbolReader cuts a byte stream into fixed width symbols, most significant bit first.
// The final symbol is zero extended when the stream length is not a multiple of the width.
type SymbolReader struct {
	src   *BitSource
	width uint
	tail  int
	done  bool
}

// NewSymbolReader returns a SymbolReader of width bit symbols reading size bytes at a time.
func NewSymbolReader(src io.Reader, width, size int) *SymbolReader {
	return &SymbolReader{src: NewBitSource(src, size), width: uint(width)}
}

// Next returns the next symbol, or io.EOF after the last one.
func (s *SymbolReader) Next() (uint32, error) {
	if s.done {
		return 0, io.EOF
	}
	v, err := s.src.ReadBits(s.width)
	if errors.Is(err, ErrEndOfStream) {
		s.done = true
		partial, n := s.src.TakePending()
		if n == 0 {
			return 0, io.EOF
		}
		s.tail = int(s.width) - n
		return partial << s.tail, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

// Tail returns the number of zero bits appended to the final symbol.
// It is valid once Next has returned io.EOF.
func (s *SymbolReader) Tail() int {
	return s.tail
}

// BytesRead returns the number of bytes consumed from the underlying reader.
func (s *SymbolReader) BytesRead() int64 {
	return s.src.BytesRead()
}
