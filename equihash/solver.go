// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package equihash

import (
	"bytes"
	"context"
	"slices"

	"golang.org/x/sync/errgroup"
)

// ctxCheckInterval is the number of candidates processed between checks for
// cancellation of the context.
const ctxCheckInterval = 1 << 12

// maxVerboseDump is the number of the highest sorted candidates logged per
// round when verbose output is enabled.
const maxVerboseDump = 32

// Stage identifies which part of a round a progress report refers to.
type Stage uint8

// These constants define the solver stages.
const (
	// StageSeed is the generation of the initial list of leaf hashes.
	StageSeed Stage = iota

	// StageSort is the sort of the list that precedes a collision scan.
	StageSort

	// StageCollide is the collision scan that merges colliding candidates.
	StageCollide

	// StageDone indicates the search finished.
	StageDone
)

// stageStrings is a map of stages back to their constant names for pretty
// printing.
var stageStrings = map[Stage]string{
	StageSeed:    "seed",
	StageSort:    "sort",
	StageCollide: "collide",
	StageDone:    "done",
}

// String returns the Stage as a human-readable name.
func (s Stage) String() string {
	if str, ok := stageStrings[s]; ok {
		return str
	}
	return "unknown"
}

// Progress describes how far a search has advanced.  Round is zero while the
// initial list is generated and otherwise the collision round in [1, k].
// Processed and Total count candidates, except for StageDone where both are
// the number of solutions found.
type Progress struct {
	Round     int
	Stage     Stage
	Processed int
	Total     int
}

// SolverConfig houses the options that control a search.
type SolverConfig struct {
	// Verbose logs the highest sorted candidates of every round at the debug
	// level.
	Verbose bool

	// Workers is the number of goroutines used to generate the initial list
	// of leaf hashes.  Values less than 2 generate it on the calling
	// goroutine.  The result does not depend on the number of workers.
	Workers int

	// Progress, when set, is invoked on the calling goroutine as the search
	// advances.
	Progress func(Progress)
}

// report invokes the progress callback when one is configured.
func (cfg *SolverConfig) report(round int, stage Stage, processed, total int) {
	if cfg.Progress != nil {
		cfg.Progress(Progress{
			Round:     round,
			Stage:     stage,
			Processed: processed,
			Total:     total,
		})
	}
}

// candidate is a working element of the solver.  The hash is HashLength bytes
// and the indices hold every leaf that was XORed into it in canonical order.
type candidate struct {
	hash    []byte
	indices []uint32
}

// distinctIndices returns whether the two index sets share no index.
func distinctIndices(a, b []uint32) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return false
			}
		}
	}
	return true
}

// joinIndices returns the concatenation of the two index sets with the set
// that has the smaller first index first.
func joinIndices(a, b []uint32) []uint32 {
	if b[0] < a[0] {
		a, b = b, a
	}
	joined := make([]uint32, 0, len(a)+len(b))
	joined = append(joined, a...)
	return append(joined, b...)
}

// xorHashes returns a new buffer holding a XOR b.
func xorHashes(a, b []byte) []byte {
	res := make([]byte, len(a))
	for i := range a {
		res[i] = a[i] ^ b[i]
	}
	return res
}

// isZero returns whether every byte of b is zero.
func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// generateSeeds returns the initial list of candidates which holds the leaf
// hash of every index in the index space in index order.
func generateSeeds(ctx context.Context, state *HashState, cfg *SolverConfig) ([]candidate, error) {
	p := state.Params()
	numIndices := p.NumIndices()
	ipo := p.IndicesPerHashOutput()
	numOutputs := (numIndices + ipo - 1) / ipo
	hashLen := p.HashLength()

	// Share a single backing array for all leaf hashes and indices.
	list := make([]candidate, numIndices)
	hashes := make([]byte, int(numIndices)*hashLen)
	indices := make([]uint32, numIndices)

	fill := func(ctx context.Context, first, last uint32) error {
		for block := first; block < last; block++ {
			if (block-first)%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			output := state.hashOutput(block)
			for r := uint32(0); r < ipo; r++ {
				i := block*ipo + r
				if i >= numIndices {
					break
				}
				hash := hashes[int(i)*hashLen : int(i+1)*hashLen]
				state.expandLeaf(hash, output, r)
				indices[i] = i
				list[i] = candidate{hash: hash, indices: indices[i : i+1]}
			}
		}
		return nil
	}

	cfg.report(0, StageSeed, 0, int(numIndices))
	workers := uint32(1)
	if cfg.Workers > 1 {
		workers = min(uint32(cfg.Workers), numOutputs)
	}
	if workers == 1 {
		if err := fill(ctx, 0, numOutputs); err != nil {
			return nil, err
		}
	} else {
		// Each worker fills a disjoint range of output blocks, and therefore
		// a disjoint range of the list.
		g, gctx := errgroup.WithContext(ctx)
		per := (numOutputs + workers - 1) / workers
		for first := uint32(0); first < numOutputs; first += per {
			first, last := first, min(first+per, numOutputs)
			g.Go(func() error {
				return fill(gctx, first, last)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	cfg.report(0, StageSeed, int(numIndices), int(numIndices))
	return list, nil
}

// sortCandidates sorts the list by hash in ascending byte-wise order while
// keeping candidates with equal hashes in their existing order.
func sortCandidates(list []candidate) {
	slices.SortStableFunc(list, func(a, b candidate) int {
		return bytes.Compare(a.hash, b.hash)
	})
}

// dumpCandidates logs the highest sorted candidates of the list.
func dumpCandidates(round int, list []candidate) {
	log.Debugf("Round %d: highest %d of %d sorted candidates", round,
		min(maxVerboseDump, len(list)), len(list))
	for i := len(list) - 1; i >= 0 && i >= len(list)-maxVerboseDump; i-- {
		log.Debugf("  %x %v", list[i].hash, list[i].indices)
	}
}

// scanCollisions walks the sorted list from the high end and partitions it
// into runs of consecutive candidates that agree on the bytes [lo, hi) of
// their hashes.  The provided function is invoked for every pair within a
// run with a taken from the top of the run and b below it.  Each run is
// consumed exactly once.
func scanCollisions(ctx context.Context, list []candidate, lo, hi int,
	round int, cfg *SolverConfig, pair func(a, b *candidate)) error {

	total := len(list)
	cfg.report(round, StageCollide, 0, total)

	var sinceCheck int
	end := len(list)
	for end > 0 {
		start := end - 1
		window := list[end-1].hash[lo:hi]
		for start > 0 && bytes.Equal(window, list[start-1].hash[lo:hi]) {
			start--
		}

		runLen := end - start
		for l := 0; l < runLen-1; l++ {
			for m := l + 1; m < runLen; m++ {
				pair(&list[end-1-l], &list[end-1-m])
			}
		}

		sinceCheck += runLen
		if sinceCheck >= ctxCheckInterval {
			sinceCheck = 0
			if err := ctx.Err(); err != nil {
				return err
			}
			cfg.report(round, StageCollide, total-start, total)
		}
		end = start
	}

	cfg.report(round, StageCollide, total, total)
	return nil
}

// Solve runs Wagner's algorithm for the generalized birthday problem over the
// leaf hashes of the provided seeded state and returns every solution found in
// discovery order.  Each solution holds 2^k pairwise distinct indices whose
// leaf hashes XOR to zero, ordered such that the first index of every
// subtree is less than the first index of its sibling.
//
// Round i compares whole expanded collision elements, which are the bytes
// [(i-1)*CollisionBytes, i*CollisionBytes) of every hash.  When the collision
// length is a multiple of 8 this is the same window as
// [(i-1)*CollisionLength/8, i*CollisionLength/8).  Otherwise, such as for
// n=200, k=9, that byte offset formula selects windows that are misaligned
// with the expanded elements or empty, and the solutions found here differ
// from those of a search that uses it.
//
// Finding no solutions is not an error.  The context is checked at every round
// boundary and periodically within rounds, and its error is returned when it
// is canceled.
func Solve(ctx context.Context, state *HashState, cfg SolverConfig) ([][]uint32, error) {
	p := state.Params()
	k := int(p.k)
	cb := p.CollisionBytes()

	log.Debugf("Generating %d leaf hashes for %v", p.NumIndices(), p)
	list, err := generateSeeds(ctx, state, &cfg)
	if err != nil {
		return nil, err
	}

	// Rounds 1 through k-1 merge candidates that collide on the collision
	// element of the round.
	for round := 1; round < k; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cfg.report(round, StageSort, 0, len(list))
		sortCandidates(list)
		if cfg.Verbose {
			dumpCandidates(round, list)
		}

		var merged []candidate
		lo, hi := (round-1)*cb, round*cb
		err := scanCollisions(ctx, list, lo, hi, round, &cfg, func(a, b *candidate) {
			if !distinctIndices(a.indices, b.indices) {
				return
			}
			merged = append(merged, candidate{
				hash:    xorHashes(a.hash, b.hash),
				indices: joinIndices(a.indices, b.indices),
			})
		})
		if err != nil {
			return nil, err
		}

		log.Debugf("Round %d: %d candidates merged into %d", round, len(list),
			len(merged))
		list = merged
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The final round requires the last two collision elements to collide,
	// which means the entire XOR is zero.
	cfg.report(k, StageSort, 0, len(list))
	sortCandidates(list)
	if cfg.Verbose {
		dumpCandidates(k, list)
	}

	var solutions [][]uint32
	scratch := make([]byte, p.HashLength())
	lo, hi := (k-1)*cb, (k+1)*cb
	err = scanCollisions(ctx, list, lo, hi, k, &cfg, func(a, b *candidate) {
		for i := range scratch {
			scratch[i] = a.hash[i] ^ b.hash[i]
		}
		if !isZero(scratch) || !distinctIndices(a.indices, b.indices) {
			return
		}
		solutions = append(solutions, joinIndices(a.indices, b.indices))
	})
	if err != nil {
		return nil, err
	}

	log.Debugf("Round %d: %d candidates yielded %d solutions", k, len(list),
		len(solutions))
	cfg.report(k, StageDone, len(solutions), len(solutions))
	return solutions, nil
}
