// Package adaptive implements one-pass adaptive Huffman coding (algorithm FGK).
//
// Encoder and decoder start from a tree holding only the NYT (not yet transmitted) node
// and update it identically after every symbol, so no code table is transmitted.
// A symbol seen for the first time is sent as the code of the NYT node followed by its raw bits.
package adaptive

import (
	"encoding/binary"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

const none = -1

type node struct {
	weight uint64
	symbol uint32
	parent int
	left   int // 0 bit
	right  int // 1 bit
	order  int // index in Tree.order
}

// A Tree is an adaptive Huffman tree stored as an arena of nodes.
//
// Nodes are also kept in an order list with the root first and the NYT node last.
// Weights never increase along the list, and the two children of a node sit next to
// each other with the right child first. This is the sibling property; a run of nodes
// with equal weight is a block, and the first node of a block is its leader.
type Tree struct {
	nodes []node
	order []int
	leaf  []int // symbol to leaf, none if not yet seen
	root  int
	nyt   int
}

// NewTree returns a tree for symbols of width bits that holds only the NYT node.
func NewTree(width int) *Tree {
	t := &Tree{leaf: make([]int, 1<<width)}
	for i := range t.leaf {
		t.leaf[i] = none
	}
	t.root = t.add(node{parent: none, left: none, right: none})
	t.nyt = t.root
	return t
}

func (t *Tree) add(n node) int {
	n.order = len(t.order)
	t.nodes = append(t.nodes, n)
	h := len(t.nodes) - 1
	t.order = append(t.order, h)
	return h
}

// Root returns the root node.
func (t *Tree) Root() int {
	return t.root
}

// Next returns the child of n along bit.
func (t *Tree) Next(n int, bit uint) int {
	if bit == 0 {
		return t.nodes[n].left
	}
	return t.nodes[n].right
}

// IsLeaf reports whether n has no children. The NYT node is a leaf.
func (t *Tree) IsLeaf(n int) bool {
	return t.nodes[n].left == none
}

// IsNYT reports whether n is the NYT node.
func (t *Tree) IsNYT(n int) bool {
	return n == t.nyt
}

// Symbol returns the symbol of leaf n.
func (t *Tree) Symbol(n int) uint32 {
	return t.nodes[n].symbol
}

// Weight returns the number of symbols the tree has been updated with.
func (t *Tree) Weight() uint64 {
	return t.nodes[t.root].weight
}

// Symbols returns the number of distinct symbols in the tree.
func (t *Tree) Symbols() int {
	return (len(t.nodes) - 1) / 2
}

// Seen reports whether sym has a leaf.
func (t *Tree) Seen(sym uint32) bool {
	return t.leaf[sym] != none
}

// Code appends to dst the root-to-leaf path of sym, or of the NYT node if sym has not been seen,
// and reports whether sym has been seen. The path of a new symbol must be followed by its raw bits.
func (t *Tree) Code(sym uint32, dst []uint) ([]uint, bool) {
	n, seen := t.leaf[sym], true
	if n == none {
		n, seen = t.nyt, false
	}
	start := len(dst)
	for n != t.root {
		p := t.nodes[n].parent
		if t.nodes[p].right == n {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
		n = p
	}
	path := dst[start:]
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return dst, seen
}

// Update records an occurrence of sym.
func (t *Tree) Update(sym uint32) {
	q := t.leaf[sym]
	if q == none {
		q = t.split(sym)
	}
	for q != t.root {
		q = t.increment(q)
	}
	t.nodes[t.root].weight++
}

// split turns the NYT node into an internal node whose left child is a new NYT node
// and whose right child is a new leaf for sym, and returns the leaf.
func (t *Tree) split(sym uint32) int {
	p := t.nyt
	leaf := t.add(node{symbol: sym, parent: p, left: none, right: none})
	nyt := t.add(node{parent: p, left: none, right: none})
	t.nodes[p].left = nyt
	t.nodes[p].right = leaf
	t.nyt = nyt
	t.leaf[sym] = leaf
	return leaf
}

// leader returns the first node of the block of weight w among order[:end].
// Only that prefix is searched: while a path is being incremented, the nodes already
// incremented after end may outweigh their predecessors, and a leader never follows its node.
func (t *Tree) leader(w uint64, end int) int {
	i := sort.Search(end, func(i int) bool {
		return t.nodes[t.order[i]].weight <= w
	})
	return t.order[i]
}

// increment moves q to the front of its block, adds one to its weight and returns its parent.
func (t *Tree) increment(q int) int {
	ld := t.leader(t.nodes[q].weight, t.nodes[q].order+1)
	if p := t.nodes[q].parent; ld == p {
		// Only the sibling of the NYT node shares its parent's weight.
		// The parent cannot be swapped with its own child, so let the node after it
		// in the block take its place first; both weigh the same and neither contains the other.
		next := t.order[t.nodes[p].order+1]
		ld = q
		if next != q {
			t.swap(p, next)
			ld = next
		}
	}
	if ld != q {
		t.swap(q, ld)
	}
	t.nodes[q].weight++
	return t.nodes[q].parent
}

func (t *Tree) replaceChild(p, old, n int) {
	if t.nodes[p].left == old {
		t.nodes[p].left = n
	} else {
		t.nodes[p].right = n
	}
}

// swap exchanges the positions of a and b in the tree and in the order list.
// Neither may be an ancestor of the other.
func (t *Tree) swap(a, b int) {
	pa, pb := t.nodes[a].parent, t.nodes[b].parent
	if pa == pb {
		p := &t.nodes[pa]
		p.left, p.right = p.right, p.left
	} else {
		t.replaceChild(pa, a, b)
		t.replaceChild(pb, b, a)
		t.nodes[a].parent, t.nodes[b].parent = pb, pa
	}
	oa, ob := t.nodes[a].order, t.nodes[b].order
	t.order[oa], t.order[ob] = b, a
	t.nodes[a].order, t.nodes[b].order = ob, oa
}

// Fingerprint returns a hash of the shape, symbols and weights of the tree.
// Two trees with equal fingerprints code every symbol identically.
func (t *Tree) Fingerprint() uint64 {
	buf := make([]byte, 0, 13*len(t.nodes))
	stack := []int{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nd := t.nodes[n]
		switch {
		case n == t.nyt:
			buf = append(buf, 2)
		case nd.left == none:
			buf = append(buf, 1)
			buf = binary.BigEndian.AppendUint32(buf, nd.symbol)
		default:
			buf = append(buf, 0)
			stack = append(stack, nd.right, nd.left)
		}
		buf = binary.BigEndian.AppendUint64(buf, nd.weight)
	}
	return xxhash.Sum64(buf)
}

// Check verifies the structural invariants of the tree: parent links, weight sums,
// the sibling property of the order list, and the position of the NYT node.
func (t *Tree) Check() error {
	if t.order[0] != t.root || t.nodes[t.root].parent != none {
		return errors.Errorf("root %d is not first in order", t.root)
	}
	if last := len(t.order) - 1; t.order[last] != t.nyt || t.nodes[t.nyt].weight != 0 {
		return errors.Errorf("nyt %d is not last with weight 0", t.nyt)
	}
	for i, n := range t.order {
		nd := t.nodes[n]
		if nd.order != i {
			return errors.Errorf("node %d at order %d records order %d", n, i, nd.order)
		}
		if i > 0 && t.nodes[t.order[i-1]].weight < nd.weight {
			return errors.Errorf("order %d weight %d follows weight %d", i, nd.weight, t.nodes[t.order[i-1]].weight)
		}
		if nd.left == none {
			if n != t.nyt && t.leaf[nd.symbol] != n {
				return errors.Errorf("leaf %d not registered for symbol %d", n, nd.symbol)
			}
			continue
		}
		l, r := t.nodes[nd.left], t.nodes[nd.right]
		if l.parent != n || r.parent != n {
			return errors.Errorf("children of %d do not point back", n)
		}
		if nd.weight != l.weight+r.weight {
			return errors.Errorf("node %d weight %d != %d + %d", n, nd.weight, l.weight, r.weight)
		}
		if r.order%2 != 1 || l.order != r.order+1 {
			return errors.Errorf("children of %d at orders %d, %d are not adjacent siblings", n, r.order, l.order)
		}
	}
	return nil
}
