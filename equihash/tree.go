// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package equihash

// TreeNode is a node of the XOR reduction tree of a solution.  Leaves carry
// the expanded leaf hash of a single index and have no children.  Every other
// node carries the XOR of the hashes of its two children and covers the
// indices of both.
type TreeNode struct {
	// Hash is owned by the node.
	Hash []byte

	// Left and Right are the ids of the children or -1 for leaves.
	Left  int32
	Right int32

	// First and Count describe the range of the solution covered by the
	// node.
	First int
	Count int
}

// IsLeaf returns whether the node is a leaf.
func (n *TreeNode) IsLeaf() bool {
	return n.Left < 0
}

// Tree is the XOR reduction tree of a solution stored as an arena of nodes
// that reference each other by id.  The leaves occupy the first 2^k ids in
// solution order followed by each higher level in turn, so the root is the
// final node.
type Tree struct {
	Nodes   []TreeNode
	indices []uint32
}

// buildTree constructs the reduction tree for the provided solution and the
// expanded leaf hashes of its indices.  The number of leaves must be a power
// of two.
func buildTree(soln []uint32, leaves [][]byte) *Tree {
	t := &Tree{
		Nodes:   make([]TreeNode, 0, 2*len(leaves)-1),
		indices: soln,
	}
	for i, hash := range leaves {
		t.Nodes = append(t.Nodes, TreeNode{
			Hash:  hash,
			Left:  -1,
			Right: -1,
			First: i,
			Count: 1,
		})
	}

	// Pair nodes 2i and 2i+1 of each level until a single root remains.
	levelStart, levelLen := 0, len(leaves)
	for levelLen > 1 {
		for i := 0; i < levelLen; i += 2 {
			left := int32(levelStart + i)
			right := left + 1
			l, r := &t.Nodes[left], &t.Nodes[right]
			t.Nodes = append(t.Nodes, TreeNode{
				Hash:  xorHashes(l.Hash, r.Hash),
				Left:  left,
				Right: right,
				First: l.First,
				Count: l.Count + r.Count,
			})
		}
		levelStart += levelLen
		levelLen /= 2
	}
	return t
}

// Root returns the id of the root node.
func (t *Tree) Root() int32 {
	return int32(len(t.Nodes) - 1)
}

// Node returns the node with the provided id.
func (t *Tree) Node(id int32) *TreeNode {
	return &t.Nodes[id]
}

// Indices returns the solution indices covered by the node with the provided
// id.  The returned slice must not be modified.
func (t *Tree) Indices(id int32) []uint32 {
	n := &t.Nodes[id]
	return t.indices[n.First : n.First+n.Count]
}

// Children returns the ids of the children of the node with the provided id.
// The final return value is false for leaves.
func (t *Tree) Children(id int32) (left, right int32, ok bool) {
	n := &t.Nodes[id]
	if n.IsLeaf() {
		return -1, -1, false
	}
	return n.Left, n.Right, true
}
