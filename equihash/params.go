// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package equihash

import "fmt"

const (
	// blake2bOutputBits is the maximum output size of a single BLAKE2b
	// invocation in bits.
	blake2bOutputBits = 512

	// maxIndexBits is the exclusive upper bound on the number of bits an
	// index may require so that every index fits in a uint32 with room to
	// spare.
	maxIndexBits = 32
)

// Params houses the Equihash parameters n and k along with the values derived
// from them.  It is an immutable value type that may only be created with
// NewParams which ensures the parameters describe a usable instance of the
// algorithm.
type Params struct {
	n uint32
	k uint32
}

// NewParams returns the parameter set for the provided n and k after ensuring
// they are usable.  An error with the ErrInvalidParameters kind is returned
// when:
//
//   - k is zero or k >= n
//   - n is not a multiple of 8 or exceeds the 512-bit BLAKE2b output
//   - n is not a multiple of k+1
//   - the resulting indices would require 32 bits or more
//   - a solution of 2^k distinct indices does not fit in the index space or
//     does not pack into whole bytes
func NewParams(n, k uint32) (Params, error) {
	switch {
	case k >= n:
		str := fmt.Sprintf("k (%d) must be less than n (%d)", k, n)
		return Params{}, ruleError(ErrInvalidParameters, str)

	case k == 0:
		str := "k must be at least 1"
		return Params{}, ruleError(ErrInvalidParameters, str)

	case n%8 != 0:
		str := fmt.Sprintf("n (%d) must be a multiple of 8", n)
		return Params{}, ruleError(ErrInvalidParameters, str)

	case n > blake2bOutputBits:
		str := fmt.Sprintf("n (%d) must not exceed %d", n, blake2bOutputBits)
		return Params{}, ruleError(ErrInvalidParameters, str)

	case n%(k+1) != 0:
		str := fmt.Sprintf("n (%d) must be a multiple of k+1 (%d)", n, k+1)
		return Params{}, ruleError(ErrInvalidParameters, str)
	}

	p := Params{n: n, k: k}
	if p.IndexBitLength() >= maxIndexBits {
		str := fmt.Sprintf("indices of %d bits for n=%d, k=%d do not fit "+
			"the %d-bit index space", p.IndexBitLength(), n, k, maxIndexBits)
		return Params{}, ruleError(ErrInvalidParameters, str)
	}
	if k > p.IndexBitLength() {
		str := fmt.Sprintf("a solution of 2^%d distinct indices does not fit "+
			"in the index space of 2^%d", k, p.IndexBitLength())
		return Params{}, ruleError(ErrInvalidParameters, str)
	}
	if (uint64(p.IndexBitLength())<<k)%8 != 0 {
		str := fmt.Sprintf("a solution of 2^%d indices of %d bits does not "+
			"pack into whole bytes", k, p.IndexBitLength())
		return Params{}, ruleError(ErrInvalidParameters, str)
	}
	return p, nil
}

// N returns the bit length of the hash outputs that are XORed together.
func (p Params) N() uint32 {
	return p.n
}

// K returns the number of collision rounds.
func (p Params) K() uint32 {
	return p.k
}

// CollisionLength returns the number of bits that must collide in each round.
func (p Params) CollisionLength() uint32 {
	return p.n / (p.k + 1)
}

// CollisionBytes returns the number of bytes a single collision element
// occupies once expanded.
func (p Params) CollisionBytes() int {
	return int(p.CollisionLength()+7) / 8
}

// HashLength returns the length of an expanded leaf hash in bytes.
func (p Params) HashLength() int {
	return int(p.k+1) * p.CollisionBytes()
}

// IndexBitLength returns the number of bits required to represent an index.
func (p Params) IndexBitLength() uint32 {
	return p.CollisionLength() + 1
}

// NumIndices returns the size of the index space.
func (p Params) NumIndices() uint32 {
	return 1 << p.IndexBitLength()
}

// SolutionSize returns the number of indices in a solution.
func (p Params) SolutionSize() int {
	return 1 << p.k
}

// IndicesPerHashOutput returns how many n-bit leaf hashes are carved out of a
// single BLAKE2b output.
func (p Params) IndicesPerHashOutput() uint32 {
	return blake2bOutputBits / p.n
}

// HashOutputSize returns the BLAKE2b output size in bytes.
func (p Params) HashOutputSize() int {
	return int(p.IndicesPerHashOutput() * p.n / 8)
}

// SolutionBytes returns the size of a bit-packed solution in bytes.
func (p Params) SolutionBytes() int {
	return int(p.IndexBitLength()) * p.SolutionSize() / 8
}

// String returns the parameters in the conventional n,k form.
func (p Params) String() string {
	return fmt.Sprintf("(%d,%d)", p.n, p.k)
}
