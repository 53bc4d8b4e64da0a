// Package static implements two-pass Huffman coding with the code tree embedded in the stream.
//
// The encoder counts symbol frequencies in a first pass, builds a Huffman tree,
// writes the tree as a pre-order header and then the code of every symbol in a second pass.
// The decoder rebuilds the tree from the header and walks it bit by bit.
package static

import (
	"container/heap"
	"sort"

	"github.com/pkg/errors"
)

const none = -1

// A Node is a node of a Tree. Leaves have no children.
type Node struct {
	Weight uint64
	Symbol uint32
	Left   int
	Right  int
	Parent int
}

// IsLeaf reports whether n has no children.
func (n Node) IsLeaf() bool {
	return n.Left == none && n.Right == none
}

// A Tree is a Huffman code tree stored as an arena of nodes.
// Left edges are 0 bits, right edges are 1 bits.
type Tree struct {
	Nodes []Node
	Root  int
}

func (t *Tree) add(n Node) int {
	t.Nodes = append(t.Nodes, n)
	return len(t.Nodes) - 1
}

func (t *Tree) join(left, right int) int {
	p := t.add(Node{
		Weight: t.Nodes[left].Weight + t.Nodes[right].Weight,
		Left:   left,
		Right:  right,
		Parent: none,
	})
	t.Nodes[left].Parent = p
	t.Nodes[right].Parent = p
	return p
}

// Leaves returns the number of leaves.
func (t *Tree) Leaves() int {
	n := 0
	for _, nd := range t.Nodes {
		if nd.IsLeaf() {
			n++
		}
	}
	return n
}

// Weight returns the weight of the root.
func (t *Tree) Weight() uint64 {
	if t.Root == none {
		return 0
	}
	return t.Nodes[t.Root].Weight
}

type entry struct {
	node   int
	weight uint64
	seq    int
}

// worklist is a min-heap of subtrees ordered by weight, then by creation order.
type worklist []entry

func (w worklist) Len() int { return len(w) }
func (w worklist) Less(i, j int) bool {
	if w[i].weight != w[j].weight {
		return w[i].weight < w[j].weight
	}
	return w[i].seq < w[j].seq
}
func (w worklist) Swap(i, j int)       { w[i], w[j] = w[j], w[i] }
func (w *worklist) Push(x interface{}) { *w = append(*w, x.(entry)) }
func (w *worklist) Pop() interface{} {
	old := *w
	e := old[len(old)-1]
	*w = old[:len(old)-1]
	return e
}

// Build builds a Huffman tree from symbol frequencies.
//
// The two lightest subtrees are merged repeatedly, the lighter one becoming the left child.
// Ties are broken by creation order with leaves created in ascending symbol order,
// so the same frequencies always give the same tree.
// A single symbol gives a tree whose root is its leaf. No symbols give an empty tree.
func Build(freq map[uint32]uint64) *Tree {
	symbols := make([]uint32, 0, len(freq))
	for s, f := range freq {
		if f > 0 {
			symbols = append(symbols, s)
		}
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })

	t := &Tree{Root: none, Nodes: make([]Node, 0, 2*len(symbols))}
	wl := make(worklist, 0, len(symbols))
	for _, s := range symbols {
		n := t.add(Node{Weight: freq[s], Symbol: s, Left: none, Right: none, Parent: none})
		wl = append(wl, entry{node: n, weight: freq[s], seq: n})
	}
	if len(wl) == 0 {
		return t
	}
	heap.Init(&wl)
	for wl.Len() > 1 {
		left := heap.Pop(&wl).(entry)
		right := heap.Pop(&wl).(entry)
		p := t.join(left.node, right.node)
		heap.Push(&wl, entry{node: p, weight: t.Nodes[p].Weight, seq: p})
	}
	t.Root = wl[0].node
	return t
}

// A Code is a symbol's path from the root, Len bits stored in the low bits of Bits.
type Code struct {
	Bits uint64
	Len  uint8
}

// MaxCodeLen is the longest code a Code can hold.
const MaxCodeLen = 64

// Codes returns the code of every symbol, indexed by symbol, for symbols of width bits.
// A tree whose root is a leaf gives that symbol the 1-bit code 0.
func (t *Tree) Codes(width int) ([]Code, error) {
	table := make([]Code, 1<<width)
	if t.Root == none {
		return table, nil
	}
	if root := t.Nodes[t.Root]; root.IsLeaf() {
		table[root.Symbol] = Code{Bits: 0, Len: 1}
		return table, nil
	}

	type frame struct {
		node int
		code Code
	}
	stack := []frame{{node: t.Root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nd := t.Nodes[f.node]
		if nd.IsLeaf() {
			if int(nd.Symbol) >= len(table) {
				return nil, errors.Errorf("symbol %d does not fit in %d bits", nd.Symbol, width)
			}
			table[nd.Symbol] = f.code
			continue
		}
		if f.code.Len == MaxCodeLen {
			return nil, errors.Errorf("code longer than %d bits", MaxCodeLen)
		}
		next := f.code.Len + 1
		stack = append(stack,
			frame{node: nd.Right, code: Code{Bits: f.code.Bits<<1 | 1, Len: next}},
			frame{node: nd.Left, code: Code{Bits: f.code.Bits << 1, Len: next}},
		)
	}
	return table, nil
}
