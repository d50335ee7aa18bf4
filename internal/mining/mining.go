// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/math/uint256"
	"github.com/decred/eqminer/equihash"
)

// MaxNonceBits is the maximum number of bits a nonce may have.  Nonces are
// tried in increasing order starting from zero and the nonce space is
// exhausted once a nonce would require more bits.
const MaxNonceBits = 161

// GenesisHash is the previous block hash of the first mined block which is
// the SHA-256 of the empty string.
var GenesisHash = chainhash.Hash(sha256.Sum256(nil))

// Block is a mined block.  The hash commits to the previous block hash, the
// nonce, and the solution.
type Block struct {
	// PrevHash is the hash of the block this block builds on.
	PrevHash chainhash.Hash

	// Hash is the double SHA-256 of the previous block hash, nonce, and
	// solution.
	Hash chainhash.Hash

	// Nonce is the nonce that was mixed into the leaf hashes.
	Nonce uint256.Uint256

	// Solution holds the solution indices.
	Solution []uint32

	// Params are the Equihash parameters the block was mined with.
	Params equihash.Params

	// Difficulty is the number of leading zero bits the hash was required to
	// have.
	Difficulty uint32

	// Height is the number of blocks between the block and the genesis hash.
	// The first mined block has height 1.
	Height uint64

	// SolveTime is how long it took to find the block.
	SolveTime time.Duration
}

// Seed returns the hash state used to derive the leaf hashes of a block with
// the provided previous block hash and nonce.
func Seed(oracle *equihash.Oracle, prevHash *chainhash.Hash, nonce *uint256.Uint256) *equihash.HashState {
	nonceBytes := equihash.NonceBytes(nonce)
	return oracle.Seed(prevHash[:], nonceBytes[:])
}

// Verify independently checks that the solution of the block is valid for its
// previous block hash and nonce and that the block hash commits to them and
// satisfies the difficulty target.
func (b *Block) Verify() error {
	oracle := equihash.NewOracle(b.Params)
	v, err := equihash.VerifySolution(Seed(oracle, &b.PrevHash, &b.Nonce),
		b.Solution)
	if err != nil {
		return err
	}
	if !v.OK() {
		return v.Err
	}
	hash := equihash.BlockHash(&b.PrevHash, &b.Nonce, b.Solution)
	if hash != b.Hash {
		return fmt.Errorf("block hash %x does not commit to the block "+
			"contents (expected %x)", b.Hash[:], hash[:])
	}
	if !equihash.MeetsDifficulty(&b.PrevHash, &b.Nonce, b.Solution,
		b.Difficulty) {

		return fmt.Errorf("block hash %x has fewer than %d leading zero bits",
			b.Hash[:], b.Difficulty)
	}
	return nil
}

// Attempt is the outcome of searching a single nonce.
type Attempt struct {
	// Solutions holds every solution found for the nonce.
	Solutions [][]uint32

	// Rejected is the number of solutions whose block hash did not satisfy
	// the difficulty target.
	Rejected int

	// Block is the block formed by the first solution that satisfied the
	// difficulty target or nil when there is none.
	Block *Block
}

// SearchNonce runs the solver over the leaf hashes for the previous block hash
// and nonce and checks the solutions in discovery order against the
// difficulty target.  The returned attempt holds the first block that
// satisfies it, if any.
//
// An error with the ErrExhaustedNonceSpace kind is returned when the nonce
// exceeds MaxNonceBits bits.
func SearchNonce(ctx context.Context, oracle *equihash.Oracle, prevHash *chainhash.Hash, nonce *uint256.Uint256, difficulty uint32, cfg equihash.SolverConfig) (*Attempt, error) {
	if nonce.BitLen() > MaxNonceBits {
		str := fmt.Sprintf("nonce %s exceeds the maximum of %d bits", nonce,
			MaxNonceBits)
		return nil, makeError(ErrExhaustedNonceSpace, str)
	}

	start := time.Now()
	solns, err := equihash.Solve(ctx, Seed(oracle, prevHash, nonce), cfg)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	attempt := &Attempt{Solutions: solns}
	for _, soln := range solns {
		hash := equihash.BlockHash(prevHash, nonce, soln)
		if equihash.LeadingZeroBits(hash[:]) < difficulty {
			attempt.Rejected++
			continue
		}

		attempt.Block = &Block{
			PrevHash:   *prevHash,
			Hash:       hash,
			Nonce:      *nonce,
			Solution:   soln,
			Params:     oracle.Params(),
			Difficulty: difficulty,
			SolveTime:  elapsed,
		}
		break
	}
	log.Tracef("Nonce %s: %d solutions, %d rejected by difficulty %d", nonce,
		len(solns), attempt.Rejected, difficulty)
	return attempt, nil
}

// SolveNonce runs the solver for the previous block hash and nonce and returns
// the block formed by the first solution that satisfies the difficulty target.
// It is the single nonce entry point for callers that drive their own nonce
// loop.  Use SearchNonce to also obtain the solution and rejection counts
// reported by progress logging.
//
// An error with the ErrNoSolution kind is returned when there is no such
// solution and one with the ErrExhaustedNonceSpace kind when the nonce exceeds
// MaxNonceBits bits.
func SolveNonce(ctx context.Context, oracle *equihash.Oracle, prevHash *chainhash.Hash, nonce *uint256.Uint256, difficulty uint32, cfg equihash.SolverConfig) (*Block, error) {
	attempt, err := SearchNonce(ctx, oracle, prevHash, nonce, difficulty, cfg)
	if err != nil {
		return nil, err
	}
	if attempt.Block == nil {
		str := fmt.Sprintf("nonce %s yielded %d solutions and none have %d "+
			"leading zero bits", nonce, len(attempt.Solutions), difficulty)
		return nil, makeError(ErrNoSolution, str)
	}
	return attempt.Block, nil
}
