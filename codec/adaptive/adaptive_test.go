package adaptive

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/fumin/huff/codec"
	"github.com/fumin/huff/codec/static"
	"github.com/pkg/errors"
)

func encode(t *testing.T, data []byte, cfg codec.Config) []byte {
	var buf codec.SeekBuffer
	if err := Encode(&buf, bytes.NewReader(data), cfg); err != nil {
		t.Fatalf("%+v", err)
	}
	return buf.Bytes()
}

func roundTrip(t *testing.T, data []byte, cfg codec.Config) []byte {
	enc := encode(t, data, cfg)
	var dec bytes.Buffer
	if err := Decode(&dec, bytes.NewReader(enc), codec.Config{BufferSize: cfg.BufferSize}); err != nil {
		t.Fatalf("%+v", err)
	}
	if !bytes.Equal(data, dec.Bytes()) {
		t.Fatalf("decoded %x, want %x", dec.Bytes(), data)
	}
	return enc
}

func TestRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(0))
	random := make([]byte, 2000)
	rnd.Read(random)
	skewed := make([]byte, 3000)
	for i := range skewed {
		skewed[i] = byte(rnd.Intn(1 + rnd.Intn(40)))
	}

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: []byte{}},
		{name: "single byte", data: []byte{'z'}},
		{name: "single symbol", data: bytes.Repeat([]byte{'a'}, 100)},
		{name: "aardvark", data: []byte("aardvark")},
		{name: "sentence", data: []byte("Four score and seven years ago our fathers brought forth")},
		{name: "len7", data: random[:7]},
		{name: "len8", data: random[:8]},
		{name: "len9", data: random[:9]},
		{name: "random", data: random},
		{name: "skewed", data: skewed},
	}
	for _, test := range tests {
		for bits := codec.MinProcessBits; bits <= codec.MaxProcessBits; bits++ {
			for _, size := range []int{1, 3, 1024} {
				t.Run(fmt.Sprintf("%s/p%d/b%d", test.name, bits, size), func(t *testing.T) {
					roundTrip(t, test.data, codec.Config{ProcessBits: bits, BufferSize: size})
				})
			}
		}
	}
}

func TestEmpty(t *testing.T) {
	enc := roundTrip(t, nil, codec.Config{})
	if !bytes.Equal(enc, []byte{0xb4, 0x00}) {
		t.Errorf("encoded %x", enc)
	}
}

func TestSingleByte(t *testing.T) {
	// frame 12 + literal 8 = 20 bits.
	enc := roundTrip(t, []byte{'z'}, codec.Config{})
	f, err := codec.ReadFrame(codec.NewBitSource(bytes.NewReader(enc), 1))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(enc) != 3 || f.Padding != 4 {
		t.Errorf("%d bytes, frame %+v", len(enc), f)
	}
}

// TestDeterminism checks that the decoder goes through the same trees as the encoder.
func TestDeterminism(t *testing.T) {
	data := []byte("she sells sea shells by the sea shore, the shells she sells are sea shells for sure")
	for _, bits := range []int{3, 8, 11} {
		cfg := codec.Config{ProcessBits: bits, BufferSize: 5}

		var encoded []uint64
		e, err := NewEncoder(cfg)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		e.Trace = func(tree *Tree) {
			if err := tree.Check(); err != nil {
				t.Fatalf("%+v", err)
			}
			encoded = append(encoded, tree.Fingerprint())
		}
		var buf codec.SeekBuffer
		if err := e.Encode(&buf, bytes.NewReader(data)); err != nil {
			t.Fatalf("%+v", err)
		}

		var decoded []uint64
		d, err := NewDecoder(cfg)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		d.Trace = func(tree *Tree) { decoded = append(decoded, tree.Fingerprint()) }
		var out bytes.Buffer
		if err := d.Decode(&out, bytes.NewReader(buf.Bytes())); err != nil {
			t.Fatalf("%+v", err)
		}
		if !bytes.Equal(out.Bytes(), data) {
			t.Fatalf("bits=%d: decoded %q", bits, out.Bytes())
		}

		if want := (8*len(data) + bits - 1) / bits; len(encoded) != want {
			t.Errorf("bits=%d: %d encoder updates, want %d", bits, len(encoded), want)
		}
		// The decoder also updates with symbols decoded from padding bits.
		if len(decoded) < len(encoded) {
			t.Fatalf("bits=%d: %d decoder updates, %d encoder updates", bits, len(decoded), len(encoded))
		}
		for i := range encoded {
			if encoded[i] != decoded[i] {
				t.Fatalf("bits=%d: trees diverge at symbol %d", bits, i)
			}
		}
	}
}

func TestCompresses(t *testing.T) {
	data := bytes.Repeat([]byte("abracadabra "), 500)
	enc := roundTrip(t, data, codec.Config{})
	if len(enc)*2 > len(data) {
		t.Errorf("%d bytes compressed to %d", len(data), len(enc))
	}
}

func TestDecodeErrors(t *testing.T) {
	var staticStream codec.SeekBuffer
	if err := static.Encode(&staticStream, bytes.NewReader([]byte("aardvark")), codec.Config{}); err != nil {
		t.Fatalf("%+v", err)
	}
	adaptiveStream := encode(t, []byte("aardvark"), codec.Config{})

	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{name: "empty", data: nil, err: codec.ErrMalformedHeader},
		{name: "frame only", data: adaptiveStream[:1], err: codec.ErrMalformedHeader},
		{name: "static stream", data: staticStream.Bytes(), err: codec.ErrMalformedHeader},
	}
	for _, test := range tests {
		var dec bytes.Buffer
		err := Decode(&dec, bytes.NewReader(test.data), codec.Config{})
		if !errors.Is(err, test.err) {
			t.Errorf("%s: %+v", test.name, err)
		}
	}
}

func TestInvalidConfiguration(t *testing.T) {
	for _, cfg := range []codec.Config{{ProcessBits: 1}, {ProcessBits: 17}, {BufferSize: -1}} {
		if _, err := NewEncoder(cfg); !errors.Is(err, codec.ErrInvalidConfiguration) {
			t.Errorf("%+v: %+v", cfg, err)
		}
		if _, err := NewDecoder(cfg); !errors.Is(err, codec.ErrInvalidConfiguration) {
			t.Errorf("%+v: %+v", cfg, err)
		}
	}
}
