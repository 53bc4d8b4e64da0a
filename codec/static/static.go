package static

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/fumin/huff/codec"
	"github.com/pkg/errors"
)

// Count returns the frequency of every symbol of src and the width of the tail
// that extends its final symbol.
func Count(src io.Reader, cfg codec.Config) (map[uint32]uint64, int, error) {
	sr := codec.NewSymbolReader(src, cfg.ProcessBits, cfg.BufferSize)
	freq := make(map[uint32]uint64)
	for {
		sym, err := sr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, errors.Wrap(err, "")
		}
		freq[sym]++
	}
	return freq, sr.Tail(), nil
}

// Encode compresses src into dst.
// src is read twice, once to count symbols and once to code them.
// dst must be seekable so the frame can be completed after the last byte is written.
func Encode(dst io.WriteSeeker, src io.ReadSeeker, cfg codec.Config) error {
	cfg, err := cfg.WithDefaults()
	if err != nil {
		return err
	}
	log := cfg.Logger
	width := cfg.ProcessBits

	log.Info("analyzing source", "processBits", width)
	freq, _, err := Count(src, cfg)
	if err != nil {
		return errors.Wrap(err, "")
	}

	log.Info("constructing huffman tree", "symbols", len(freq))
	tree := Build(freq)
	codes, err := tree.Codes(width)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if log.Enabled(context.Background(), slog.LevelDebug) {
		for sym, c := range codes {
			if c.Len > 0 {
				log.Debug("code", "symbol", sym, "code", fmt.Sprintf("%0*b", int(c.Len), c.Bits), "count", freq[uint32(sym)])
			}
		}
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "")
	}
	frame := codec.Frame{Variant: codec.Static, ProcessBits: width}
	out := codec.NewOutput(dst, frame, cfg.BufferSize)
	WriteHeader(out.Bits(), tree, width)
	log.Info("wrote huffman header", "bits", HeaderBits(tree, width))

	log.Info("encoding")
	sr := codec.NewSymbolReader(src, width, cfg.BufferSize)
	w := out.Bits()
	for {
		sym, err := sr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "")
		}
		c := codes[sym]
		if c.Len == 0 {
			return errors.Errorf("symbol %d changed between passes", sym)
		}
		w.WriteBits(c.Bits, uint(c.Len))
		if err := out.Flush(); err != nil {
			return errors.Wrap(err, "")
		}
	}

	frame.Tail = sr.Tail()
	frame, err = out.Finish(frame)
	if err != nil {
		return errors.Wrap(err, "")
	}
	log.Info("done", "read", sr.BytesRead(), "written", out.Written(), "padding", frame.Padding, "tail", frame.Tail)
	return nil
}

// Decode decompresses a stream written by Encode from src into dst.
func Decode(dst io.Writer, src io.Reader, cfg codec.Config) error {
	cfg, err := cfg.WithDefaults()
	if err != nil {
		return err
	}
	log := cfg.Logger

	bs := codec.NewBitSource(src, cfg.BufferSize)
	frame, err := codec.ReadFrame(bs)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if frame.Variant != codec.Static {
		return errors.Wrapf(codec.ErrMalformedHeader, "%s stream given to the static decoder", frame.Variant)
	}
	log.Debug("frame", "processBits", frame.ProcessBits, "padding", frame.Padding, "tail", frame.Tail)

	// A stream of an empty source is the frame and its padding.
	drained, err := bs.Drained()
	if err != nil {
		return errors.Wrap(err, "")
	}
	if drained && bs.Leftover() == frame.Padding {
		log.Info("empty stream")
		return nil
	}

	log.Info("decoding huffman tree")
	tree, err := ReadHeader(bs, frame.ProcessBits)
	if err != nil {
		return errors.Wrap(err, "")
	}
	log.Info("decoded huffman tree", "leaves", tree.Weight())

	log.Info("decoding")
	out := codec.NewDecoded(dst, frame.ProcessBits, cfg.BufferSize)
	debug := log.Enabled(context.Background(), slog.LevelDebug)
	node, depth := tree.Root, 0
	for {
		bit, err := bs.ReadBit()
		if errors.Is(err, codec.ErrEndOfStream) {
			break
		}
		if err != nil {
			return errors.Wrap(err, "")
		}
		nd := tree.Nodes[node]
		if bit == 0 {
			node = nd.Left
		} else {
			node = nd.Right
		}
		depth++
		if leaf := tree.Nodes[node]; leaf.IsLeaf() {
			if debug {
				log.Debug("decoded", "symbol", leaf.Symbol, "codeLen", depth)
			}
			if err := out.Emit(leaf.Symbol, depth); err != nil {
				return errors.Wrap(err, "")
			}
			node, depth = tree.Root, 0
		}
	}

	if err := out.Finish(frame, depth, log); err != nil {
		return errors.Wrap(err, "")
	}
	log.Info("done", "read", bs.BytesRead(), "written", out.Written())
	return nil
}
