// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package equihash

import (
	"encoding/hex"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/math/uint256"
)

// hexToBytes converts the passed hex string into bytes and will panic if there
// is an error.  This is only provided for the hard-coded constants so errors in
// the source code can be detected. It will only (and must only) be called with
// hard-coded values.
func hexToBytes(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic("invalid hex in source file: " + s)
	}
	return b
}

// hexToHash converts the passed hex string into a hash in the same byte order
// and will panic if there is an error.  It will only (and must only) be called
// with hard-coded values.
func hexToHash(s string) chainhash.Hash {
	b := hexToBytes(s)
	if len(b) != chainhash.HashSize {
		panic("invalid hash length in source file: " + s)
	}
	var hash chainhash.Hash
	copy(hash[:], b)
	return hash
}

// mustParams returns the parameters for n and k and will panic if they are
// invalid.  It will only (and must only) be called with hard-coded values.
func mustParams(n, k uint32) Params {
	p, err := NewParams(n, k)
	if err != nil {
		panic(err)
	}
	return p
}

// testGenesis is the SHA-256 of the empty string which the miner uses as the
// initial previous block hash.
var testGenesis = hexToHash("e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855")

// miningState returns the hash state seeded the way the miner seeds it with
// the previous block hash and nonce.
func miningState(p Params, prevHash *chainhash.Hash, nonce uint64) *HashState {
	nonceBytes := NonceBytes(new(uint256.Uint256).SetUint64(nonce))
	return NewOracle(p).Seed(prevHash[:], nonceBytes[:])
}

// testHeaderHex is a serialized n=96, k=5 header with a valid solution.  The
// prefix is a version 4 header with zero hashes, zero time, bits 0x1f07ffff,
// and a zero nonce.
const testHeaderHex = "0400000000000000000000000000000000000000000000000000000000000000" +
	"0000000000000000000000000000000000000000000000000000000000000000" +
	"0000000000000000000000000000000000000000000000000000000000000000" +
	"0000000000000000ffff071f0000000000000000000000000000000000000000" +
	"00000000000000000000000044097cf93085171890427052b166c435a98b203e" +
	"2734e8d19f0e16b104b3fdc4c924b41ba1ab129b530f68c1e0c30389036931ee" +
	"2299b32e9339cee6e7517567df72ebcc87"

// testHeaderSolution is the solution embedded in testHeaderHex.
var testHeaderSolution = []uint32{
	4857, 124098, 10424, 100612, 19978, 44121, 90650, 108939, 16508, 40147,
	83596, 127201, 54816, 77055, 57956, 74932, 14147, 44106, 55960, 63116,
	15384, 49378, 33204, 78318, 17715, 52410, 39374, 61038, 59950, 88567,
	113013, 117895,
}

// isCanonicalOrder returns whether the first index of every left subtree of
// the solution is less than the first index of its sibling.
func isCanonicalOrder(soln []uint32) bool {
	for size := 1; size < len(soln); size *= 2 {
		for i := 0; i+size < len(soln); i += 2 * size {
			if soln[i] >= soln[i+size] {
				return false
			}
		}
	}
	return true
}
