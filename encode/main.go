package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fumin/huff"
	"github.com/fumin/huff/codec"
	"github.com/pkg/errors"
)

var (
	adaptive    = flag.Bool("a", false, "use adaptive instead of static Huffman coding")
	processBits = flag.Int("p", codec.DefaultProcessBits, "symbol width in bits, 2 to 16")
	logLevel    = flag.Int("l", 2, "log level, 1 debug to 5 silent")
	bufferSize  = flag.Int("b", codec.DefaultBufferSize, "read and write buffer size in bytes")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] src out\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	src, out := flag.Arg(0), flag.Arg(1)
	if src == "" || out == "" {
		flag.Usage()
		os.Exit(1)
	}

	logger, err := huff.NewLogger(os.Stderr, *logLevel)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	cfg := codec.Config{ProcessBits: *processBits, BufferSize: *bufferSize, Logger: logger}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%+v", err)
	}
	v := codec.Static
	if *adaptive {
		v = codec.Adaptive
	}

	if err := run(src, out, v, cfg); err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(src, out string, v codec.Variant, cfg codec.Config) error {
	dst, err := os.Create(out)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer dst.Close()
	if err := huff.Compress(dst, src, v, cfg); err != nil {
		return errors.Wrap(err, "")
	}
	if err := dst.Close(); err != nil {
		return errors.Wrap(err, "")
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return errors.Wrap(err, "")
	}
	outInfo, err := os.Stat(out)
	if err != nil {
		return errors.Wrap(err, "")
	}
	ratio := 0.0
	if srcInfo.Size() > 0 {
		ratio = float64(outInfo.Size()) / float64(srcInfo.Size())
	}
	cfg.Logger.Info("compressed", "variant", v, "src", srcInfo.Size(), "out", outInfo.Size(), "ratio", ratio)
	return nil
}
