// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package equihash

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

// TestSolve ensures the solver finds exactly the known solutions for several
// seeds and that every solution verifies and is in canonical order.
func TestSolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		p     Params
		nonce uint64
		want  [][]uint32 // nil to only check the count
		count int
	}{{
		name:  "n=48, k=5 nonce 0 has no solutions",
		p:     mustParams(48, 5),
		nonce: 0,
		count: 0,
	}, {
		name:  "n=48, k=5 nonce 1",
		p:     mustParams(48, 5),
		nonce: 1,
		want: [][]uint32{{4, 96, 82, 100, 68, 439, 193, 202, 19, 427, 27, 80,
			78, 93, 247, 378, 21, 28, 297, 508, 115, 175, 121, 137, 169, 322,
			172, 300, 275, 356, 430, 435}},
		count: 1,
	}, {
		name:  "n=48, k=5 nonce 2",
		p:     mustParams(48, 5),
		nonce: 2,
		want: [][]uint32{{7, 280, 137, 339, 26, 92, 109, 392, 119, 140, 194,
			474, 302, 398, 322, 325, 21, 229, 36, 187, 85, 151, 88, 306, 30,
			391, 203, 495, 53, 96, 239, 454}, {0, 398, 174, 371, 116, 218, 307,
			321, 24, 122, 105, 148, 149, 456, 244, 484, 9, 317, 62, 453, 98,
			502, 222, 428, 67, 214, 260, 496, 247, 346, 262, 266}, {2, 324, 116,
			218, 90, 312, 396, 494, 31, 302, 55, 103, 67, 214, 260, 496, 46,
			105, 135, 445, 282, 294, 357, 422, 129, 407, 373, 399, 216, 479,
			263, 414}},
		count: 3,
	}, {
		name:  "n=48, k=5 nonce 3",
		p:     mustParams(48, 5),
		nonce: 3,
		count: 2,
	}, {
		name:  "n=48, k=5 nonce 4",
		p:     mustParams(48, 5),
		nonce: 4,
		count: 1,
	}, {
		name:  "n=48, k=5 nonce 5 has no solutions",
		p:     mustParams(48, 5),
		nonce: 5,
		count: 0,
	}}

	for _, test := range tests {
		state := miningState(test.p, &testGenesis, test.nonce)
		solns, err := Solve(context.Background(), state, SolverConfig{})
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.name, err)
			continue
		}
		if len(solns) != test.count {
			t.Errorf("%s: unexpected number of solutions -- got %d, want %d",
				test.name, len(solns), test.count)
			continue
		}
		if test.want != nil && !reflect.DeepEqual(solns, test.want) {
			t.Errorf("%s: mismatched solutions -- got %s, want %s", test.name,
				spew.Sdump(solns), spew.Sdump(test.want))
			continue
		}

		for i, soln := range solns {
			if len(soln) != test.p.SolutionSize() {
				t.Errorf("%s: solution %d has %d indices", test.name, i,
					len(soln))
				continue
			}
			if !isCanonicalOrder(soln) {
				t.Errorf("%s: solution %d is not in canonical order: %v",
					test.name, i, soln)
			}
			v, err := VerifySolution(state, soln)
			if err != nil {
				t.Errorf("%s: solution %d: unexpected error: %v", test.name,
					i, err)
				continue
			}
			if !v.OK() {
				t.Errorf("%s: solution %d failed verification: %v",
					test.name, i, v.Err)
			}
		}
	}
}

// TestSolveToy ensures the solver works with collision elements smaller than
// a byte and is deterministic.
func TestSolveToy(t *testing.T) {
	t.Parallel()

	p := mustParams(8, 3)
	var zeroHash [32]byte
	for nonce := uint64(0); nonce < 20; nonce++ {
		state := NewOracle(p).Seed(zeroHash[:], nonceBytes(nonce))
		solns, err := Solve(context.Background(), state, SolverConfig{})
		if err != nil {
			t.Fatalf("nonce %d: unexpected error: %v", nonce, err)
		}
		if len(solns) != 0 {
			t.Fatalf("nonce %d: unexpected solutions: %v", nonce, solns)
		}
	}

	want := [][]uint32{{0, 1, 3, 6, 2, 7, 4, 5}, {0, 7, 3, 6, 1, 2, 4, 5}}
	for i := 0; i < 2; i++ {
		state := NewOracle(p).Seed(zeroHash[:], nonceBytes(70))
		solns, err := Solve(context.Background(), state, SolverConfig{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(solns, want) {
			t.Fatalf("mismatched solutions -- got %v, want %v", solns, want)
		}
		for _, soln := range solns {
			v, err := VerifySolution(state, soln)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !v.OK() {
				t.Fatalf("solution %v failed verification: %v", soln, v.Err)
			}
		}
	}
}

// nonceBytes returns the serialized form of a nonce that fits in a uint64.
func nonceBytes(nonce uint64) []byte {
	var b [NonceSize]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(nonce >> (8 * i))
	}
	return b[:]
}

// TestSolveWorkers ensures the number of seed workers does not change the
// result.
func TestSolveWorkers(t *testing.T) {
	t.Parallel()

	p := mustParams(48, 5)
	state := miningState(p, &testGenesis, 2)
	want, err := Solve(context.Background(), state, SolverConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, workers := range []int{2, 3, 7, 64, 1000} {
		state := miningState(p, &testGenesis, 2)
		cfg := SolverConfig{Workers: workers}
		got, err := Solve(context.Background(), state, cfg)
		if err != nil {
			t.Errorf("%d workers: unexpected error: %v", workers, err)
			continue
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%d workers: mismatched solutions -- got %v, want %v",
				workers, got, want)
		}
	}
}

// TestSolveHeader ensures solving the leaf hashes of the test header prefix
// finds the solution embedded in the header first.
func TestSolveHeader(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping n=96, k=5 solve in short mode")
	}
	t.Parallel()

	p := mustParams(96, 5)
	prefix := hexToBytes(testHeaderHex)[:HeaderPrefixSize]
	state := NewOracle(p).Seed(prefix)
	solns, err := Solve(context.Background(), state, SolverConfig{Workers: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(solns) != 2 {
		t.Fatalf("unexpected number of solutions -- got %d, want 2",
			len(solns))
	}
	if !reflect.DeepEqual(solns[0], testHeaderSolution) {
		t.Fatalf("mismatched first solution -- got %v, want %v", solns[0],
			testHeaderSolution)
	}
	if solns[1][0] != 2592 {
		t.Fatalf("unexpected second solution %v", solns[1])
	}
}

// TestSolveCanceled ensures a canceled context aborts the search.
func TestSolveCanceled(t *testing.T) {
	t.Parallel()

	p := mustParams(48, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		state := miningState(p, &testGenesis, 2)
		solns, err := Solve(ctx, state, SolverConfig{Workers: workers})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("%d workers: unexpected error -- got %v, want %v",
				workers, err, context.Canceled)
		}
		if solns != nil {
			t.Errorf("%d workers: unexpected solutions %v", workers, solns)
		}
	}

	// Cancel once the first collision round begins.
	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	cfg := SolverConfig{Progress: func(prog Progress) {
		if prog.Round == 1 && prog.Stage == StageCollide {
			cancel()
		}
	}}
	state := miningState(p, &testGenesis, 2)
	if _, err := Solve(ctx, state, cfg); !errors.Is(err, context.Canceled) {
		t.Errorf("mid-round cancel: unexpected error -- got %v, want %v",
			err, context.Canceled)
	}
}

// TestSolveProgress ensures progress is reported for every round and stage in
// order.
func TestSolveProgress(t *testing.T) {
	t.Parallel()

	p := mustParams(48, 5)
	var events []Progress
	cfg := SolverConfig{
		Verbose:  true,
		Progress: func(prog Progress) { events = append(events, prog) },
	}
	state := miningState(p, &testGenesis, 2)
	solns, err := Solve(context.Background(), state, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(events) < 2 {
		t.Fatalf("too few progress events: %d", len(events))
	}
	first := events[0]
	if first.Round != 0 || first.Stage != StageSeed || first.Total != 512 {
		t.Fatalf("unexpected first event %+v", first)
	}
	last := events[len(events)-1]
	if last.Round != 5 || last.Stage != StageDone ||
		last.Processed != len(solns) {
		t.Fatalf("unexpected last event %+v", last)
	}

	// Rounds never go backwards and every round sorts before colliding.
	sorted := make(map[int]bool)
	prevRound := 0
	for _, prog := range events {
		if prog.Round < prevRound {
			t.Fatalf("round went backwards: %+v after round %d", prog,
				prevRound)
		}
		prevRound = prog.Round
		switch prog.Stage {
		case StageSort:
			sorted[prog.Round] = true
		case StageCollide:
			if !sorted[prog.Round] {
				t.Fatalf("round %d collided before sorting", prog.Round)
			}
		}
		if prog.Processed > prog.Total {
			t.Fatalf("processed exceeds total: %+v", prog)
		}
	}
	for round := 1; round <= 5; round++ {
		if !sorted[round] {
			t.Fatalf("round %d never reported", round)
		}
	}
}

// TestStageStringer tests the stringized output for the Stage type.
func TestStageStringer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   Stage
		want string
	}{
		{StageSeed, "seed"},
		{StageSort, "sort"},
		{StageCollide, "collide"},
		{StageDone, "done"},
		{0xff, "unknown"},
	}

	for i, test := range tests {
		result := test.in.String()
		if result != test.want {
			t.Errorf("String #%d\n got: %s want: %s", i, result, test.want)
			continue
		}
	}
}

// BenchmarkSolve benchmarks a complete search with n=48, k=5.
func BenchmarkSolve(b *testing.B) {
	p := mustParams(48, 5)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		state := miningState(p, &testGenesis, uint64(i))
		if _, err := Solve(context.Background(), state, SolverConfig{}); err != nil {
			b.Fatal(err)
		}
	}
}
