package bitstream

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/icza/bitio"
	"github.com/pkg/errors"
)

func randomBits(rnd *rand.Rand, n int) []uint {
	bits := make([]uint, n)
	for i := range bits {
		bits[i] = uint(rnd.Intn(2))
	}
	return bits
}

// readAll reads n bits from data, feeding the reader chunk bytes at a time.
func readAll(t *testing.T, data []byte, chunk, n int) []uint {
	r := NewReader(nil)
	got := make([]uint, 0, n)
	for len(got) < n {
		bit, err := r.ReadBit()
		if errors.Is(err, ErrEndOfBuffer) {
			if len(data) == 0 {
				t.Fatalf("ran out of data after %d bits", len(got))
			}
			k := chunk
			if k > len(data) {
				k = len(data)
			}
			r.SetBuffer(data[:k])
			data = data[k:]
			continue
		}
		if err != nil {
			t.Fatalf("%+v", err)
		}
		got = append(got, bit)
	}
	return got
}

// TestSymmetry writes random bit sequences through a Writer and reads them back with every refill chunk size.
func TestSymmetry(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for _, n := range []int{0, 1, 7, 8, 9, 63, 64, 65, 500, 3001} {
		bits := randomBits(rnd, n)
		w := NewWriter()
		for _, b := range bits {
			w.WriteBit(b)
		}
		data := w.PopContent(true)
		if len(data) != (n+7)/8 {
			t.Fatalf("n=%d: %d bytes", n, len(data))
		}

		chunks := []int{1, 2, 3, 7, 64, len(data) + 1}
		for _, chunk := range chunks {
			got := readAll(t, data, chunk, n)
			for i := range bits {
				if got[i] != bits[i] {
					t.Fatalf("n=%d chunk=%d: bit %d: %d != %d", n, chunk, i, got[i], bits[i])
				}
			}
		}
	}
}

func TestWriterMatchesBitio(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	w := NewWriter()
	var oracle bytes.Buffer
	bw := bitio.NewWriter(&oracle)
	for i := 0; i < 2000; i++ {
		width := uint(rnd.Intn(17))
		v := rnd.Uint64() & (1<<width - 1)
		switch rnd.Intn(3) {
		case 0:
			w.WriteBits(v, width)
			if err := bw.WriteBits(v, uint8(width)); err != nil {
				t.Fatalf("%v", err)
			}
		case 1:
			b := byte(rnd.Intn(256))
			w.WriteByte(b)
			if err := bw.WriteBits(uint64(b), 8); err != nil {
				t.Fatalf("%v", err)
			}
		default:
			bit := uint(v & 1)
			w.WriteBit(bit)
			if err := bw.WriteBool(bit == 1); err != nil {
				t.Fatalf("%v", err)
			}
		}
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("%v", err)
	}
	if got := w.PopContent(true); !bytes.Equal(got, oracle.Bytes()) {
		t.Errorf("%x != %x", got, oracle.Bytes())
	}
}

func TestReaderMatchesBitio(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	data := make([]byte, 300)
	rnd.Read(data)
	oracle := bitio.NewReader(bytes.NewReader(data))

	r := NewReader(nil)
	rest := data
	total := 0
	for total+16 <= 8*len(data) {
		width := uint(1 + rnd.Intn(16))
		var got uint32
		for {
			v, err := r.ReadBits(width)
			if errors.Is(err, ErrEndOfBuffer) {
				k := 1 + rnd.Intn(5)
				if k > len(rest) {
					k = len(rest)
				}
				r.SetBuffer(rest[:k])
				rest = rest[k:]
				continue
			}
			if err != nil {
				t.Fatalf("%+v", err)
			}
			got = v
			break
		}
		want, err := oracle.ReadBits(uint8(width))
		if err != nil {
			t.Fatalf("%v", err)
		}
		if uint64(got) != want {
			t.Fatalf("bit %d width %d: %x != %x", total, width, got, want)
		}
		total += int(width)
	}
}

// TestReadByteCarry checks that an unaligned byte straddling two windows is completed after a refill.
func TestReadByteCarry(t *testing.T) {
	r := NewReader([]byte{0b1011_0110})
	for i := 0; i < 3; i++ {
		if _, err := r.ReadBit(); err != nil {
			t.Fatalf("%v", err)
		}
	}
	if _, err := r.ReadByte(); !errors.Is(err, ErrEndOfBuffer) {
		t.Fatalf("expected end of buffer, got %v", err)
	}
	if r.Remaining() != 5 {
		t.Fatalf("remaining %d", r.Remaining())
	}
	r.SetBuffer([]byte{0b1110_0001})
	b, err := r.ReadByte()
	if err != nil {
		t.Fatalf("%v", err)
	}
	if b != 0b1_0110_111 {
		t.Errorf("%08b", b)
	}
	v, err := r.ReadBits(5)
	if err != nil {
		t.Fatalf("%v", err)
	}
	if v != 0b00001 {
		t.Errorf("%05b", v)
	}
	if r.CanRead() {
		t.Errorf("reader should be empty")
	}
}

func TestAlignedReadByte(t *testing.T) {
	r := NewReader([]byte{0xab, 0xcd})
	for _, want := range []byte{0xab, 0xcd} {
		b, err := r.ReadByte()
		if err != nil {
			t.Fatalf("%v", err)
		}
		if b != want {
			t.Errorf("%x != %x", b, want)
		}
	}
	if _, err := r.ReadByte(); !errors.Is(err, ErrEndOfBuffer) {
		t.Errorf("expected end of buffer, got %v", err)
	}
}

func TestDeleteLastBit(t *testing.T) {
	w := NewWriter()
	w.WriteBits(0b1111_1111_1, 9)
	if err := w.DeleteLastBit(); err != nil {
		t.Fatalf("%v", err)
	}
	// The completed byte must be reopened for the next deletion.
	for i := 0; i < 3; i++ {
		if err := w.DeleteLastBit(); err != nil {
			t.Fatalf("%v", err)
		}
	}
	if w.Buffered() != 0 || w.Pending() != 5 {
		t.Fatalf("buffered %d pending %d", w.Buffered(), w.Pending())
	}
	w.WriteBits(0b010, 3)
	if got := w.PopContent(true); !bytes.Equal(got, []byte{0b1111_1010}) {
		t.Errorf("%08b", got)
	}
	if err := w.DeleteLastBit(); !errors.Is(err, ErrNothingToDelete) {
		t.Errorf("expected nothing to delete, got %v", err)
	}
}

func TestDrainKeepsTail(t *testing.T) {
	w := NewWriter()
	for i := 0; i < 10; i++ {
		w.WriteByte(byte(i))
	}
	w.WriteBit(1)
	got := w.Drain(4)
	if !bytes.Equal(got, []byte{0, 1, 2, 3, 4, 5}) {
		t.Fatalf("%v", got)
	}
	if w.Drain(4) != nil {
		t.Fatalf("second drain should be empty")
	}
	for i := 0; i < 9; i++ {
		if err := w.DeleteLastBit(); err != nil {
			t.Fatalf("%v", err)
		}
	}
	if got := w.PopContent(true); !bytes.Equal(got, []byte{6, 7, 8}) {
		t.Errorf("%v", got)
	}
}

func TestPopContentPartial(t *testing.T) {
	w := NewWriter()
	w.WriteBits(0xabc, 12)
	if got := w.PopContent(false); !bytes.Equal(got, []byte{0xab}) {
		t.Fatalf("%x", got)
	}
	if w.Pending() != 4 {
		t.Fatalf("pending %d", w.Pending())
	}
	if got := w.PopContent(true); !bytes.Equal(got, []byte{0xc0}) {
		t.Errorf("%x", got)
	}
}
