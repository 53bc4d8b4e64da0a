package adaptive

import (
	"context"
	"io"
	"log/slog"

	"github.com/fumin/huff/codec"
	"github.com/pkg/errors"
)

// An Encoder compresses a source in a single pass.
type Encoder struct {
	cfg codec.Config

	// Trace, if set, is called with the tree after every update.
	Trace func(*Tree)
}

// NewEncoder returns an Encoder, or ErrInvalidConfiguration.
func NewEncoder(cfg codec.Config) (*Encoder, error) {
	cfg, err := cfg.WithDefaults()
	if err != nil {
		return nil, err
	}
	return &Encoder{cfg: cfg}, nil
}

// Encode compresses src into dst.
// dst must be seekable so the frame can be completed after the last byte is written.
func (e *Encoder) Encode(dst io.WriteSeeker, src io.Reader) error {
	log := e.cfg.Logger
	width := e.cfg.ProcessBits
	debug := log.Enabled(context.Background(), slog.LevelDebug)

	frame := codec.Frame{Variant: codec.Adaptive, ProcessBits: width}
	out := codec.NewOutput(dst, frame, e.cfg.BufferSize)
	w := out.Bits()
	sr := codec.NewSymbolReader(src, width, e.cfg.BufferSize)
	tree := NewTree(width)

	log.Info("encoding", "processBits", width)
	path := make([]uint, 0, 64)
	for {
		sym, err := sr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "")
		}

		var seen bool
		path, seen = tree.Code(sym, path[:0])
		for _, b := range path {
			w.WriteBit(b)
		}
		if !seen {
			if width == 8 {
				w.WriteByte(byte(sym))
			} else {
				w.WriteBits(uint64(sym), uint(width))
			}
		}
		if debug {
			log.Debug("encoded", "symbol", sym, "new", !seen, "codeLen", len(path))
		}

		tree.Update(sym)
		if e.Trace != nil {
			e.Trace(tree)
		}
		if err := out.Flush(); err != nil {
			return errors.Wrap(err, "")
		}
	}

	frame.Tail = sr.Tail()
	frame, err := out.Finish(frame)
	if err != nil {
		return errors.Wrap(err, "")
	}
	log.Info("done", "read", sr.BytesRead(), "written", out.Written(), "symbols", tree.Symbols(), "padding", frame.Padding, "tail", frame.Tail)
	return nil
}

// A Decoder decompresses streams written by an Encoder.
type Decoder struct {
	cfg codec.Config

	// Trace, if set, is called with the tree after every update.
	// Symbols decoded from padding bits are traced before they are retracted.
	Trace func(*Tree)
}

// NewDecoder returns a Decoder, or ErrInvalidConfiguration.
func NewDecoder(cfg codec.Config) (*Decoder, error) {
	cfg, err := cfg.WithDefaults()
	if err != nil {
		return nil, err
	}
	return &Decoder{cfg: cfg}, nil
}

func readLiteral(src *codec.BitSource, width int) (uint32, error) {
	if width == 8 {
		b, err := src.ReadByte()
		return uint32(b), err
	}
	return src.ReadBits(uint(width))
}

// Decode decompresses src into dst.
func (d *Decoder) Decode(dst io.Writer, src io.Reader) error {
	log := d.cfg.Logger
	debug := log.Enabled(context.Background(), slog.LevelDebug)

	bs := codec.NewBitSource(src, d.cfg.BufferSize)
	frame, err := codec.ReadFrame(bs)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if frame.Variant != codec.Adaptive {
		return errors.Wrapf(codec.ErrMalformedHeader, "%s stream given to the adaptive decoder", frame.Variant)
	}
	width := frame.ProcessBits
	log.Info("decoding", "processBits", width, "padding", frame.Padding, "tail", frame.Tail)

	out := codec.NewDecoded(dst, width, d.cfg.BufferSize)
	tree := NewTree(width)
	emit := func(sym uint32, codeLen int) error {
		if debug {
			log.Debug("decoded", "symbol", sym, "codeLen", codeLen)
		}
		if err := out.Emit(sym, codeLen); err != nil {
			return err
		}
		tree.Update(sym)
		if d.Trace != nil {
			d.Trace(tree)
		}
		return nil
	}

	var partial int
	node, depth := tree.Root(), 0
	for {
		if tree.IsNYT(node) {
			sym, err := readLiteral(bs, width)
			if errors.Is(err, codec.ErrEndOfStream) {
				partial = depth + bs.Leftover()
				break
			}
			if err != nil {
				return errors.Wrap(err, "")
			}
			if err := emit(sym, depth+width); err != nil {
				return errors.Wrap(err, "")
			}
			node, depth = tree.Root(), 0
			continue
		}
		if tree.IsLeaf(node) {
			if err := emit(tree.Symbol(node), depth); err != nil {
				return errors.Wrap(err, "")
			}
			node, depth = tree.Root(), 0
			continue
		}

		bit, err := bs.ReadBit()
		if errors.Is(err, codec.ErrEndOfStream) {
			partial = depth
			break
		}
		if err != nil {
			return errors.Wrap(err, "")
		}
		node = tree.Next(node, bit)
		depth++
	}

	if err := out.Finish(frame, partial, log); err != nil {
		return errors.Wrap(err, "")
	}
	log.Info("done", "read", bs.BytesRead(), "written", out.Written(), "symbols", tree.Symbols())
	return nil
}

// Encode compresses src into dst with a new Encoder.
func Encode(dst io.WriteSeeker, src io.Reader, cfg codec.Config) error {
	e, err := NewEncoder(cfg)
	if err != nil {
		return err
	}
	return e.Encode(dst, src)
}

// Decode decompresses src into dst with a new Decoder.
func Decode(dst io.Writer, src io.Reader, cfg codec.Config) error {
	d, err := NewDecoder(cfg)
	if err != nil {
		return err
	}
	return d.Decode(dst, src)
}
