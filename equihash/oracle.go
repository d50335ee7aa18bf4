// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package equihash

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/container/lru"
	"github.com/decred/dcrd/math/uint256"
	"github.com/decred/eqminer/bitpack"
	blake2b "github.com/minio/blake2b-simd"
)

const (
	// personalizationPrefix is the domain separation string that prefixes the
	// BLAKE2b personalization.
	personalizationPrefix = "ZcashPoW"

	// NonceSize is the size of a serialized nonce in bytes.
	NonceSize = 32

	// outputCacheSize is the maximum number of raw BLAKE2b outputs retained
	// by a hash state.  A solution touches at most 2^k of them.
	outputCacheSize = 512
)

// Personalization returns the 16-byte BLAKE2b personalization for the given
// parameters which is the ASCII string "ZcashPoW" followed by n and k encoded
// as little-endian uint32s.
func Personalization(p Params) [16]byte {
	var person [16]byte
	copy(person[:], personalizationPrefix)
	binary.LittleEndian.PutUint32(person[8:], p.n)
	binary.LittleEndian.PutUint32(person[12:], p.k)
	return person
}

// Oracle derives the leaf hashes for a parameter set.  It is safe for
// concurrent access.
type Oracle struct {
	params Params
	person [16]byte
}

// NewOracle returns an oracle that derives leaf hashes for the provided
// parameters with a BLAKE2b instance whose output size is
// params.HashOutputSize() bytes.
func NewOracle(params Params) *Oracle {
	return &Oracle{
		params: params,
		person: Personalization(params),
	}
}

// Params returns the parameters the oracle derives hashes for.
func (o *Oracle) Params() Params {
	return o.params
}

// newHash returns a fresh personalized BLAKE2b instance.
func (o *Oracle) newHash() hash.Hash {
	h, err := blake2b.New(&blake2b.Config{
		Size:   uint8(o.params.HashOutputSize()),
		Person: o.person[:],
	})
	if err != nil {
		// Only reachable with an output size or personalization that
		// NewParams rules out.
		panic(fmt.Sprintf("unable to create blake2b instance for %v: %v",
			o.params, err))
	}
	return h
}

// Seed returns a hash state that has absorbed the concatenation of the
// provided prefixes.  Mining seeds with the previous block hash followed by
// the serialized nonce while header verification seeds with the fixed
// 140-byte header prefix.
func (o *Oracle) Seed(prefix ...[]byte) *HashState {
	var size int
	for _, b := range prefix {
		size += len(b)
	}
	seed := make([]byte, 0, size)
	for _, b := range prefix {
		seed = append(seed, b...)
	}
	return &HashState{
		oracle: o,
		seed:   seed,
		cache:  lru.NewMap[uint32, []byte](outputCacheSize),
	}
}

// HashState is a seeded oracle.  Every digest is derived from a fresh BLAKE2b
// instance over the seed, so no mutable hashing state is shared between
// calls.  It is safe for concurrent access.
type HashState struct {
	oracle *Oracle
	seed   []byte
	cache  *lru.Map[uint32, []byte]
}

// Params returns the parameters of the underlying oracle.
func (s *HashState) Params() Params {
	return s.oracle.params
}

// hashOutput computes the raw BLAKE2b output with the provided output block
// number.
func (s *HashState) hashOutput(block uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], block)

	h := s.oracle.newHash()
	h.Write(s.seed)
	h.Write(b[:])
	return h.Sum(nil)
}

// cachedOutput returns the raw BLAKE2b output with the provided output block
// number, consulting the cache first.
func (s *HashState) cachedOutput(block uint32) []byte {
	if out, ok := s.cache.Get(block); ok {
		return out
	}
	out := s.hashOutput(block)
	s.cache.Put(block, out)
	return out
}

// expandLeaf writes the expanded form of the n-bit sub-block with position r
// in the raw output into dst.  The destination must be HashLength bytes.
func (s *HashState) expandLeaf(dst, output []byte, r uint32) {
	p := s.oracle.params
	width := p.n / 8
	leaf := output[r*width : (r+1)*width]
	err := bitpack.ExpandInto(dst, leaf, int(p.CollisionLength()), 0)
	if err != nil {
		// Only reachable with a leaf and collision length that NewParams
		// rules out.
		panic(fmt.Sprintf("unable to expand leaf for %v: %v", p, err))
	}
}

// Digest returns the expanded leaf hash for the provided index.  The index
// selects output block index/IndicesPerHashOutput and, within it, the n-bit
// sub-block index%IndicesPerHashOutput, which is then expanded to
// HashLength bytes with CollisionLength bits per element.
//
// The index is not checked against the index space.
func (s *HashState) Digest(index uint32) []byte {
	p := s.oracle.params
	ipo := p.IndicesPerHashOutput()
	dst := make([]byte, p.HashLength())
	s.expandLeaf(dst, s.cachedOutput(index/ipo), index%ipo)
	return dst
}

// NonceBytes returns the serialized form of the nonce which is its 256-bit
// value as eight little-endian uint32 words ordered from least to most
// significant.
func NonceBytes(nonce *uint256.Uint256) [NonceSize]byte {
	var b [NonceSize]byte
	nonce.PutBytesLE(&b)
	return b
}

// BlockHash returns the double SHA-256 of the previous block hash, the
// serialized nonce, and every solution index as a little-endian uint32.
func BlockHash(prevHash *chainhash.Hash, nonce *uint256.Uint256, soln []uint32) chainhash.Hash {
	nonceBytes := NonceBytes(nonce)
	var idx [4]byte

	h := sha256.New()
	h.Write(prevHash[:])
	h.Write(nonceBytes[:])
	for _, index := range soln {
		binary.LittleEndian.PutUint32(idx[:], index)
		h.Write(idx[:])
	}
	first := h.Sum(nil)
	return chainhash.Hash(sha256.Sum256(first))
}
