// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package equihash

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/jrick/bitset"
)

// Verification is the outcome of independently checking a solution.
type Verification struct {
	// Params are the parameters the solution was checked against.
	Params Params

	// Indices are the solution indices that were checked.
	Indices []uint32

	// Tree is the XOR reduction tree of the solution.  It is provided for
	// inspection and is not consulted to determine validity.
	Tree *Tree

	// Err is nil when the solution is valid and otherwise a RuleError with
	// the ErrNonZeroRoot or ErrDuplicateIndex kind.
	Err error
}

// OK returns whether the solution is valid.
func (v *Verification) OK() bool {
	return v.Err == nil
}

// RootHash returns the XOR of all leaf hashes of the solution.
func (v *Verification) RootHash() []byte {
	return v.Tree.Node(v.Tree.Root()).Hash
}

// checkSolutionShape ensures the solution has 2^k indices that are all within
// the index space.
func checkSolutionShape(p Params, soln []uint32) error {
	if len(soln) != p.SolutionSize() {
		str := fmt.Sprintf("solution has %d indices instead of %d",
			len(soln), p.SolutionSize())
		return ruleError(ErrSolutionSize, str)
	}
	numIndices := p.NumIndices()
	for i, index := range soln {
		if index >= numIndices {
			str := fmt.Sprintf("solution index %d at position %d is not "+
				"less than %d", index, i, numIndices)
			return ruleError(ErrIndexRange, str)
		}
	}
	return nil
}

// firstDuplicate returns the position of the first index that repeats an
// earlier one or -1 when all indices are distinct.  The work and memory are
// proportional to the length of the solution rather than the index space.
func firstDuplicate(soln []uint32) int {
	// Order the positions by index.  The sort is stable, so the positions of
	// equal indices remain ascending and every one after the first of its
	// group is a repeat.
	order := make([]int, len(soln))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(soln[a], soln[b])
	})

	repeats := bitset.NewBytes(len(soln))
	for i := 1; i < len(order); i++ {
		if soln[order[i]] == soln[order[i-1]] {
			repeats.Set(order[i])
		}
	}
	for i := range soln {
		if repeats.Get(i) {
			return i
		}
	}
	return -1
}

// VerifySolution independently checks the solution against the leaf hashes of
// the provided seeded state.  Every leaf hash is derived anew and combined by
// XORing positions 2i and 2i+1 of each level until a single root remains.  The
// solution is valid when the root is all zero and no index repeats.
//
// A solution that does not have 2^k indices or references an index outside of
// the index space is rejected with an error.  Otherwise the returned
// verification reports the outcome.
func VerifySolution(state *HashState, soln []uint32) (*Verification, error) {
	p := state.Params()
	if err := checkSolutionShape(p, soln); err != nil {
		return nil, err
	}

	leaves := make([][]byte, len(soln))
	for i, index := range soln {
		leaves[i] = state.Digest(index)
	}

	v := &Verification{
		Params:  p,
		Indices: soln,
		Tree:    buildTree(soln, leaves),
	}
	if root := v.RootHash(); !isZero(root) {
		str := fmt.Sprintf("solution leaf hashes XOR to %x instead of zero",
			root)
		v.Err = ruleError(ErrNonZeroRoot, str)
		return v, nil
	}
	if dup := firstDuplicate(soln); dup >= 0 {
		str := fmt.Sprintf("solution index %d at position %d is repeated",
			soln[dup], dup)
		v.Err = ruleError(ErrDuplicateIndex, str)
		return v, nil
	}
	return v, nil
}

// VerifyHeader parses the serialized header, seeds a hash state with its
// fixed prefix, and checks the embedded solution.  See ParseHeader and
// VerifySolution for details.
func VerifyHeader(p Params, header []byte) (*Verification, error) {
	prefix, soln, err := ParseHeader(p, header)
	if err != nil {
		return nil, err
	}
	return VerifySolution(NewOracle(p).Seed(prefix), soln)
}
