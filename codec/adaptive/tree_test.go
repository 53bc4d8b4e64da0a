package adaptive

import (
	"math/rand"
	"reflect"
	"testing"
)

func update(tree *Tree, syms ...uint32) {
	for _, s := range syms {
		tree.Update(s)
	}
}

func code(tree *Tree, sym uint32) ([]uint, bool) {
	return tree.Code(sym, nil)
}

func TestTreeFirstSymbols(t *testing.T) {
	tree := NewTree(8)
	if path, seen := code(tree, 'a'); seen || len(path) != 0 {
		t.Fatalf("empty tree: %v %v", path, seen)
	}

	update(tree, 'a')
	if path, seen := code(tree, 'a'); !seen || !reflect.DeepEqual(path, []uint{1}) {
		t.Errorf("a: %v %v", path, seen)
	}
	if path, seen := code(tree, 'b'); seen || !reflect.DeepEqual(path, []uint{0}) {
		t.Errorf("nyt: %v %v", path, seen)
	}

	update(tree, 'b')
	expected := map[uint32][]uint{'a': {1}, 'b': {0, 1}, 'c': {0, 0}}
	for sym, want := range expected {
		if path, _ := code(tree, sym); !reflect.DeepEqual(path, want) {
			t.Errorf("%c: %v, want %v", sym, path, want)
		}
	}

	// b now outweighs a and takes its place next to the root.
	update(tree, 'b')
	expected = map[uint32][]uint{'b': {1}, 'a': {0, 1}, 'c': {0, 0}}
	for sym, want := range expected {
		if path, _ := code(tree, sym); !reflect.DeepEqual(path, want) {
			t.Errorf("%c: %v, want %v", sym, path, want)
		}
	}
	if tree.Weight() != 3 || tree.Symbols() != 2 {
		t.Errorf("weight %d symbols %d", tree.Weight(), tree.Symbols())
	}
	if err := tree.Check(); err != nil {
		t.Errorf("%+v", err)
	}
}

// TestTreeThirdSymbol splits the NYT node while the leaf just added outweighs it,
// which is when the order list is only monotone up to the node being incremented.
func TestTreeThirdSymbol(t *testing.T) {
	tree := NewTree(8)
	for i, sym := range []uint32{'a', 'b', 'c', 'd'} {
		tree.Update(sym)
		if err := tree.Check(); err != nil {
			t.Fatalf("after %d symbols: %+v", i+1, err)
		}
	}
	expected := map[uint32][]uint{'a': {1, 0}, 'b': {1, 1}, 'c': {0, 1}, 'd': {0, 0, 1}, 'e': {0, 0, 0}}
	for sym, want := range expected {
		if path, _ := code(tree, sym); !reflect.DeepEqual(path, want) {
			t.Errorf("%c: %v, want %v", sym, path, want)
		}
	}
}

// TestTreeSiblingProperty checks the tree invariants after every update of random, skewed and sorted sequences.
func TestTreeSiblingProperty(t *testing.T) {
	rnd := rand.New(rand.NewSource(0))
	sequences := map[string]func(i, width int) uint32{
		"uniform": func(i, width int) uint32 { return uint32(rnd.Intn(1 << width)) },
		"skewed":  func(i, width int) uint32 { return uint32(rnd.Intn(1 + rnd.Intn(1<<width))) },
		"sorted":  func(i, width int) uint32 { return uint32(i/7) % (1 << width) },
		"repeat":  func(i, width int) uint32 { return 1 },
	}
	for name, next := range sequences {
		for _, width := range []int{2, 3, 8, 12} {
			tree := NewTree(width)
			seen := make(map[uint32]bool)
			for i := 0; i < 3000; i++ {
				sym := next(i, width)
				tree.Update(sym)
				seen[sym] = true
				if err := tree.Check(); err != nil {
					t.Fatalf("%s width=%d after %d symbols: %+v", name, width, i+1, err)
				}
			}
			if tree.Weight() != 3000 || tree.Symbols() != len(seen) {
				t.Errorf("%s width=%d: weight %d symbols %d, want %d", name, width, tree.Weight(), tree.Symbols(), len(seen))
			}
		}
	}
}

// TestTreeWalk checks that walking the code of every symbol from the root ends at its leaf,
// and that the code of an unseen symbol ends at the NYT node.
func TestTreeWalk(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	const width = 6
	tree := NewTree(width)
	for i := 0; i < 500; i++ {
		tree.Update(uint32(rnd.Intn(40)))
	}
	for sym := uint32(0); sym < 1<<width; sym++ {
		path, seen := code(tree, sym)
		if seen != tree.Seen(sym) {
			t.Fatalf("%d: seen %v", sym, seen)
		}
		n := tree.Root()
		for _, b := range path {
			if tree.IsLeaf(n) {
				t.Fatalf("%d: leaf before end of %v", sym, path)
			}
			n = tree.Next(n, b)
		}
		switch {
		case !tree.IsLeaf(n):
			t.Errorf("%d: %v ends at an internal node", sym, path)
		case seen && (tree.IsNYT(n) || tree.Symbol(n) != sym):
			t.Errorf("%d: %v ends at %d", sym, path, tree.Symbol(n))
		case !seen && !tree.IsNYT(n):
			t.Errorf("%d: unseen symbol does not reach the NYT node", sym)
		}
	}
}

func TestTreeFingerprint(t *testing.T) {
	a, b := NewTree(8), NewTree(8)
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("empty trees differ")
	}
	update(a, 'x', 'y', 'x')
	update(b, 'x', 'y', 'x')
	if a.Fingerprint() != b.Fingerprint() {
		t.Errorf("equal updates give different fingerprints")
	}

	c, d := NewTree(8), NewTree(8)
	update(c, 'x', 'y')
	update(d, 'y', 'x')
	if c.Fingerprint() == d.Fingerprint() {
		t.Errorf("mirrored trees share a fingerprint")
	}
}
