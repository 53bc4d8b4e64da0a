package static

import (
	"github.com/fumin/huff/bitstream"
	"github.com/fumin/huff/codec"
	"github.com/pkg/errors"
)

// WriteHeader writes t as a pre-order traversal:
// a 0 bit on entering every internal node except the root, and a 1 bit followed by
// the width bit symbol for every leaf, left subtree before right.
//
// A tree whose root is a leaf is written as a root with two copies of that leaf,
// so the header always describes a full binary tree.
func WriteHeader(w *bitstream.Writer, t *Tree, width int) {
	if t.Root == none {
		return
	}
	root := t.Nodes[t.Root]
	if root.IsLeaf() {
		for i := 0; i < 2; i++ {
			w.WriteBit(1)
			w.WriteBits(uint64(root.Symbol), uint(width))
		}
		return
	}

	stack := []int{root.Right, root.Left}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nd := t.Nodes[n]
		if nd.IsLeaf() {
			w.WriteBit(1)
			w.WriteBits(uint64(nd.Symbol), uint(width))
			continue
		}
		w.WriteBit(0)
		stack = append(stack, nd.Right, nd.Left)
	}
}

// HeaderBits returns the size of the header of t in bits.
func HeaderBits(t *Tree, width int) int {
	if t.Root == none {
		return 0
	}
	if t.Nodes[t.Root].IsLeaf() {
		return 2 * (1 + width)
	}
	leaves := t.Leaves()
	return (leaves - 2) + leaves*(1+width)
}

func readSymbol(src *codec.BitSource, width int) (uint32, error) {
	if width == 8 {
		b, err := src.ReadByte()
		return uint32(b), err
	}
	return src.ReadBits(uint(width))
}

// ReadHeader rebuilds a tree written by WriteHeader.
//
// Leaves get weight 1 and internal nodes the sum of their children,
// so the root weight is the number of leaves.
func ReadHeader(src *codec.BitSource, width int) (*Tree, error) {
	maxLeaves := 1 << width
	t := &Tree{}
	t.Root = t.add(Node{Left: none, Right: none, Parent: none})

	attach := func(parent int, nd Node) int {
		nd.Parent = parent
		c := t.add(nd)
		if t.Nodes[parent].Left == none {
			t.Nodes[parent].Left = c
		} else {
			t.Nodes[parent].Right = c
		}
		return c
	}

	cur := t.Root
	leaves := 0
	for {
		bit, err := src.ReadBit()
		if err != nil {
			return nil, errors.Wrapf(codec.ErrMalformedHeader, "tree after %d leaves: %v", leaves, err)
		}
		if bit == 0 {
			if len(t.Nodes)+1 >= 2*maxLeaves {
				return nil, errors.Wrapf(codec.ErrMalformedHeader, "more than %d internal nodes", maxLeaves-1)
			}
			cur = attach(cur, Node{Left: none, Right: none})
			continue
		}

		sym, err := readSymbol(src, width)
		if err != nil {
			return nil, errors.Wrapf(codec.ErrMalformedHeader, "leaf symbol: %v", err)
		}
		leaves++
		if leaves > maxLeaves {
			return nil, errors.Wrapf(codec.ErrMalformedHeader, "more than %d leaves", maxLeaves)
		}
		attach(cur, Node{Weight: 1, Symbol: sym, Left: none, Right: none})

		// Climb out of every node whose two children are complete.
		for t.Nodes[cur].Right != none {
			nd := &t.Nodes[cur]
			nd.Weight = t.Nodes[nd.Left].Weight + t.Nodes[nd.Right].Weight
			if cur == t.Root {
				return t, nil
			}
			cur = nd.Parent
		}
	}
}
