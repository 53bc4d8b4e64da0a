package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fumin/huff"
	"github.com/fumin/huff/codec"
	"github.com/pkg/errors"
)

var (
	logLevel   = flag.Int("l", 2, "log level, 1 debug to 5 silent")
	bufferSize = flag.Int("b", codec.DefaultBufferSize, "read and write buffer size in bytes")
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
	cfg := codec.Config{BufferSize: *bufferSize, Logger: logger}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%+v", err)
	}

	if err := run(src, out, cfg); err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(src, out string, cfg codec.Config) error {
	f, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer f.Close()
	dst, err := os.Create(out)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer dst.Close()

	w := bufio.NewWriter(dst)
	if err := huff.Decompress(w, f, cfg); err != nil {
		return errors.Wrap(err, "")
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "")
	}
	if err := dst.Close(); err != nil {
		return errors.Wrap(err, "")
	}

	srcInfo, err := f.Stat()
	if err != nil {
		return errors.Wrap(err, "")
	}
	outInfo, err := os.Stat(out)
	if err != nil {
		return errors.Wrap(err, "")
	}
	cfg.Logger.Info("decompressed", "src", srcInfo.Size(), "out", outInfo.Size())
	return nil
}
