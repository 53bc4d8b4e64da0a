// Package huff provides byte oriented Huffman compression in two flavors:
// a static two-pass coder that embeds its code tree in the stream (package codec/static),
// and an adaptive one-pass coder that rebuilds the tree as it goes (package codec/adaptive).
// Both write the same frame, so Decompress tells them apart on its own.
//
// Below is an example of using this package to compress Lincoln's Gettysburg address:
//
//	go run encode/main.go gettysburg.txt gettys.huff
//	go run decode/main.go gettys.huff gettys.dhuff
//	diff gettysburg.txt gettys.dhuff
//
// Reference:
// D.A. Huffman, A Method for the Construction of Minimum-Redundancy Codes, Proceedings of the IRE, 1952.
// J.S. Vitter, Design and Analysis of Dynamic Huffman Codes, Journal of the ACM, 1987.
package huff

import (
	"bufio"
	"io"
	"log/slog"
	"os"

	"github.com/fumin/huff/codec"
	"github.com/fumin/huff/codec/adaptive"
	"github.com/fumin/huff/codec/static"
	"github.com/pkg/errors"
)

// Compress compresses the file name into dst with the coder v.
func Compress(dst io.WriteSeeker, name string, v codec.Variant, cfg codec.Config) error {
	if _, err := cfg.WithDefaults(); err != nil {
		return err
	}
	f, err := os.Open(name)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer f.Close()

	switch v {
	case codec.Static:
		err = static.Encode(dst, f, cfg)
	case codec.Adaptive:
		err = adaptive.Encode(dst, f, cfg)
	default:
		return errors.Wrapf(codec.ErrInvalidConfiguration, "variant %d", v)
	}
	if err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Decompress decompresses a stream written by Compress with either coder.
func Decompress(dst io.Writer, src io.Reader, cfg codec.Config) error {
	v, br, err := Peek(src)
	if err != nil {
		return err
	}
	switch v {
	case codec.Static:
		err = static.Decode(dst, br, cfg)
	default:
		err = adaptive.Decode(dst, br, cfg)
	}
	if err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Peek returns the variant of the stream src without consuming it from the returned reader.
func Peek(src io.Reader) (codec.Variant, io.Reader, error) {
	br := bufio.NewReader(src)
	head, err := br.Peek(1)
	if err == io.EOF {
		return 0, nil, errors.Wrap(codec.ErrMalformedHeader, "empty stream")
	}
	if err != nil {
		return 0, nil, errors.Wrap(err, "")
	}
	return codec.PeekVariant(head[0]), br, nil
}

// NewLogger returns a text logger writing to w that shows records at level and above,
// where level 1 to 5 selects debug, info, warn, error and nothing but fatal errors.
func NewLogger(w io.Writer, level int) (*slog.Logger, error) {
	levels := []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError, slog.LevelError + 4}
	if level < 1 || level > len(levels) {
		return nil, errors.Wrapf(codec.ErrInvalidConfiguration, "log level %d not in [1, %d]", level, len(levels))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: levels[level-1]})), nil
}
