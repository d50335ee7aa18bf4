// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package equihash

import (
	"math/bits"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/math/uint256"
)

// LeadingZeroBits returns the number of leading zero bits of the hash in
// big-endian bit order.
func LeadingZeroBits(h []byte) uint32 {
	var zeros uint32
	for _, b := range h {
		if b != 0 {
			return zeros + uint32(bits.LeadingZeros8(b))
		}
		zeros += 8
	}
	return zeros
}

// MeetsDifficulty returns whether the block hash committing to the previous
// block hash, nonce, and solution has at least target leading zero bits.
func MeetsDifficulty(prevHash *chainhash.Hash, nonce *uint256.Uint256, soln []uint32, target uint32) bool {
	hash := BlockHash(prevHash, nonce, soln)
	return LeadingZeroBits(hash[:]) >= target
}
