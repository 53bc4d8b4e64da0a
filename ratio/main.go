// Command ratio reports how well static and adaptive Huffman coding compress a corpus,
// next to zstd as a baseline.
// With -ncd it also prints the normalized compression distance between every pair of files.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-tinylfu"
	"github.com/fumin/huff"
	"github.com/fumin/huff/codec"
	"github.com/fumin/huff/codec/adaptive"
	"github.com/fumin/huff/codec/static"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

var (
	dataDir     = flag.String("d", ".", "data directory")
	pattern     = flag.String("g", "**/*.txt", "glob of files under the data directory")
	processBits = flag.Int("p", codec.DefaultProcessBits, "symbol width in bits, 2 to 16")
	logLevel    = flag.Int("l", 2, "log level, 1 debug to 5 silent")
	ncd         = flag.Bool("ncd", false, "print the normalized compression distance matrix")
	variant     = flag.String("v", "adaptive", "coder used for distances, static or adaptive")
	cacheSize   = flag.Int("c", 1024, "number of compressed sizes to cache")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	logger, err := huff.NewLogger(os.Stderr, *logLevel)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	cfg := codec.Config{ProcessBits: *processBits}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%+v", err)
	}
	v, err := parseVariant(*variant)
	if err != nil {
		log.Fatalf("%+v", err)
	}

	c := newCorpus(os.DirFS(*dataDir), cfg, *cacheSize, logger)
	err = run(c, *pattern, v, *ncd)
	if cerr := c.close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatalf("%+v", err)
	}
	logger.Info("done", "files", len(c.files), "compressions", c.compressions)
}

func parseVariant(s string) (codec.Variant, error) {
	switch s {
	case "static":
		return codec.Static, nil
	case "adaptive":
		return codec.Adaptive, nil
	default:
		return 0, errors.Wrapf(codec.ErrInvalidConfiguration, "variant %q", s)
	}
}

func run(c *corpus, pattern string, v codec.Variant, withDistances bool) error {
	if err := c.load(pattern); err != nil {
		return errors.Wrap(err, "")
	}
	if len(c.files) == 0 {
		return errors.Errorf("no files match %q", pattern)
	}

	table, err := c.table()
	if err != nil {
		return errors.Wrap(err, "")
	}
	fmt.Print(table)

	if !withDistances || len(c.files) < 2 {
		return nil
	}
	distMat, err := c.distanceMatrix(v)
	if err != nil {
		return errors.Wrap(err, "")
	}
	fmt.Println(display(c.files, distMat))
	return nil
}

type cacheKey struct {
	name    string
	variant codec.Variant
}

func hasher(k cacheKey) uint64 {
	return xxhash.Sum64String(k.name) ^ uint64(k.variant)
}

// A corpus holds the files under study and caches their compressed sizes,
// since a distance matrix compresses every file once per pair.
type corpus struct {
	fsys  fs.FS
	cfg   codec.Config
	files []string
	data  map[string][]byte
	cache *tinylfu.T[cacheKey, int]
	zstd  *zstd.Encoder
	log   *slog.Logger

	compressions int
}

func newCorpus(fsys fs.FS, cfg codec.Config, cacheSize int, logger *slog.Logger) *corpus {
	if cacheSize < 1 {
		cacheSize = 1
	}
	return &corpus{
		fsys:  fsys,
		cfg:   cfg,
		data:  make(map[string][]byte),
		cache: tinylfu.New[cacheKey, int](cacheSize, cacheSize*10, hasher),
		log:   logger,
	}
}

func (c *corpus) load(pattern string) error {
	files, err := doublestar.Glob(c.fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return errors.Wrap(err, "")
	}
	for _, name := range files {
		b, err := fs.ReadFile(c.fsys, name)
		if err != nil {
			return errors.Wrap(err, "")
		}
		c.data[name] = b
	}
	c.files = files
	c.log.Info("loaded corpus", "pattern", pattern, "files", len(files))
	return nil
}

// size returns the compressed size of the content stored under name.
func (c *corpus) size(name string, v codec.Variant) (int, error) {
	k := cacheKey{name: name, variant: v}
	if n, ok := c.cache.Get(k); ok {
		return n, nil
	}

	var buf codec.SeekBuffer
	var err error
	switch v {
	case codec.Static:
		err = static.Encode(&buf, bytes.NewReader(c.data[name]), c.cfg)
	default:
		err = adaptive.Encode(&buf, bytes.NewReader(c.data[name]), c.cfg)
	}
	if err != nil {
		return -1, errors.Wrap(err, name)
	}
	c.compressions++
	c.log.Debug("compressed", "name", name, "variant", v, "size", buf.Len())

	c.cache.Add(k, buf.Len())
	return buf.Len(), nil
}

func (c *corpus) zstdSize(name string) (int, error) {
	if c.zstd == nil {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return -1, errors.Wrap(err, "")
		}
		c.zstd = enc
	}
	return len(c.zstd.EncodeAll(c.data[name], nil)), nil
}

// close releases the zstd encoder and its goroutines.
func (c *corpus) close() error {
	if c.zstd == nil {
		return nil
	}
	err := c.zstd.Close()
	c.zstd = nil
	return errors.Wrap(err, "")
}

// table returns one line per file with its size and the ratio of every coder.
func (c *corpus) table() (string, error) {
	buf := bytes.NewBuffer(nil)
	fmt.Fprintf(buf, "%-32s %10s %8s %8s %8s\n", "file", "bytes", "static", "adaptive", "zstd")
	for _, name := range c.files {
		n := len(c.data[name])
		s, err := c.size(name, codec.Static)
		if err != nil {
			return "", errors.Wrap(err, "")
		}
		a, err := c.size(name, codec.Adaptive)
		if err != nil {
			return "", errors.Wrap(err, "")
		}
		z, err := c.zstdSize(name)
		if err != nil {
			return "", errors.Wrap(err, "")
		}
		fmt.Fprintf(buf, "%-32s %10d %8.3f %8.3f %8.3f\n", name, n, ratio(s, n), ratio(a, n), ratio(z, n))
	}
	return buf.String(), nil
}

func ratio(compressed, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(compressed) / float64(n)
}

// distance returns the normalized compression distance of x and y,
// (C(xy) - min(C(x), C(y))) / max(C(x), C(y)).
func (c *corpus) distance(x, y string, v codec.Variant) (float64, error) {
	xy := x + "\x00" + y
	if _, ok := c.data[xy]; !ok {
		joined := make([]byte, 0, len(c.data[x])+len(c.data[y]))
		joined = append(joined, c.data[x]...)
		c.data[xy] = append(joined, c.data[y]...)
	}
	defer delete(c.data, xy)

	kxy, err := c.size(xy, v)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}
	kx, err := c.size(x, v)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}
	ky, err := c.size(y, v)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}

	minxy, maxxy := kx, ky
	if ky < kx {
		minxy, maxxy = ky, kx
	}
	return float64(kxy-minxy) / float64(maxxy), nil
}

func (c *corpus) distanceMatrix(v codec.Variant) ([]float64, error) {
	n := len(c.files)
	mat := make([]float64, 0, n*(n-1)/2)
	for i, dx := range c.files[:n-1] {
		for _, dy := range c.files[i+1:] {
			dist, err := c.distance(dx, dy, v)
			if err != nil {
				return nil, errors.Wrap(err, "")
			}
			mat = append(mat, dist)
			c.log.Debug("distance", "x", dx, "y", dy, "ncd", dist)
		}
	}
	return mat, nil
}

// display formats the file names and the distance matrix as two comma separated arrays.
func display(files []string, distMat []float64) string {
	names := make([]string, 0, len(files))
	for _, fpath := range files {
		name := filepath.Base(fpath)
		names = append(names, strconv.Quote(strings.TrimSuffix(name, filepath.Ext(name))))
	}
	dists := make([]string, 0, len(distMat))
	for _, f := range distMat {
		dists = append(dists, strconv.FormatFloat(f, 'f', -1, 64))
	}
	return fmt.Sprintf("[%s]\n[%s]", strings.Join(names, ","), strings.Join(dists, ","))
}
