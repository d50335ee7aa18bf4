// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package equihash

import (
	"bytes"
	"encoding/hex"
	"sync"
	"testing"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/math/uint256"
)

// TestPersonalization ensures the BLAKE2b personalization is the domain
// separation string followed by n and k.
func TestPersonalization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n, k uint32
		want string
	}{
		{96, 5, "5a63617368506f576000000005000000"},
		{200, 9, "5a63617368506f57c800000009000000"},
		{8, 3, "5a63617368506f570800000003000000"},
	}

	for _, test := range tests {
		p := mustParams(test.n, test.k)
		person := Personalization(p)
		if got := hex.EncodeToString(person[:]); got != test.want {
			t.Errorf("%v: mismatched personalization -- got %s, want %s", p,
				got, test.want)
			continue
		}
	}
}

// TestDigest ensures leaf hashes derived from known seeds match known good
// values.
func TestDigest(t *testing.T) {
	t.Parallel()

	toyNonce := NonceBytes(new(uint256.Uint256).SetUint64(70))
	tests := []struct {
		name  string
		p     Params
		seed  [][]byte
		index uint32
		want  string
	}{{
		name:  "n=96, k=5 header prefix, first index",
		p:     mustParams(96, 5),
		seed:  [][]byte{hexToBytes(testHeaderHex)[:HeaderPrefixSize]},
		index: 0,
		want:  "9c4ec9c8034d7c7ff43836ad",
	}, {
		name:  "n=96, k=5 header prefix, second leaf of first output",
		p:     mustParams(96, 5),
		seed:  [][]byte{hexToBytes(testHeaderHex)[:HeaderPrefixSize]},
		index: 1,
		want:  "c19d5ca1fc5973dfadbea8e9",
	}, {
		name:  "n=96, k=5 header prefix, last leaf of first output",
		p:     mustParams(96, 5),
		seed:  [][]byte{hexToBytes(testHeaderHex)[:HeaderPrefixSize]},
		index: 4,
		want:  "8cdcd54e3f1a6d0e59a68870",
	}, {
		name:  "n=96, k=5 header prefix, first leaf of second output",
		p:     mustParams(96, 5),
		seed:  [][]byte{hexToBytes(testHeaderHex)[:HeaderPrefixSize]},
		index: 5,
		want:  "aa0b0153b65bcde914402ba9",
	}, {
		name:  "n=96, k=5 header prefix, solution index",
		p:     mustParams(96, 5),
		seed:  [][]byte{hexToBytes(testHeaderHex)[:HeaderPrefixSize]},
		index: 4857,
		want:  "14fe0f477844ec75e9d6d04f",
	}, {
		name:  "n=96, k=5 header prefix, last index",
		p:     mustParams(96, 5),
		seed:  [][]byte{hexToBytes(testHeaderHex)[:HeaderPrefixSize]},
		index: 131071,
		want:  "b5e26a5bd9452d01a6c22e00",
	}, {
		name:  "n=48, k=5 genesis nonce 1, first index",
		p:     mustParams(48, 5),
		seed:  [][]byte{testGenesis[:], hexToBytes("01" + zeros(31))},
		index: 0,
		want:  "9c0f32a6f59e",
	}, {
		name:  "n=48, k=5 genesis nonce 1, last leaf of first output",
		p:     mustParams(48, 5),
		seed:  [][]byte{testGenesis[:], hexToBytes("01" + zeros(31))},
		index: 9,
		want:  "ba156ea6f8e2",
	}, {
		name:  "n=48, k=5 genesis nonce 1, first leaf of second output",
		p:     mustParams(48, 5),
		seed:  [][]byte{testGenesis[:], hexToBytes("01" + zeros(31))},
		index: 10,
		want:  "1e76e0ceb1ec",
	}, {
		name:  "n=48, k=5 genesis nonce 1, last index",
		p:     mustParams(48, 5),
		seed:  [][]byte{testGenesis[:], hexToBytes("01" + zeros(31))},
		index: 511,
		want:  "240a930c29bb",
	}, {
		name:  "n=8, k=3 two-bit collision elements",
		p:     mustParams(8, 3),
		seed:  [][]byte{make([]byte, 32), toyNonce[:]},
		index: 0,
		want:  "02010302",
	}, {
		name:  "n=8, k=3 last index",
		p:     mustParams(8, 3),
		seed:  [][]byte{make([]byte, 32), toyNonce[:]},
		index: 7,
		want:  "02030101",
	}}

	for _, test := range tests {
		state := NewOracle(test.p).Seed(test.seed...)
		got := state.Digest(test.index)
		if len(got) != test.p.HashLength() {
			t.Errorf("%s: unexpected digest length -- got %d, want %d",
				test.name, len(got), test.p.HashLength())
			continue
		}
		if hex.EncodeToString(got) != test.want {
			t.Errorf("%s: mismatched digest -- got %x, want %s", test.name,
				got, test.want)
			continue
		}

		// A second derivation must match and must not alias the first.
		again := state.Digest(test.index)
		if !bytes.Equal(got, again) {
			t.Errorf("%s: digest is not deterministic -- got %x, want %x",
				test.name, again, got)
			continue
		}
		again[0] ^= 0xff
		if hex.EncodeToString(state.Digest(test.index)) != test.want {
			t.Errorf("%s: digest shares its buffer across calls", test.name)
			continue
		}
	}
}

// zeros returns a hex string of n zero bytes.
func zeros(n int) string {
	return hex.EncodeToString(make([]byte, n))
}

// TestDigestConcurrent ensures concurrent derivations from the same state
// agree with sequential ones.
func TestDigestConcurrent(t *testing.T) {
	t.Parallel()

	p := mustParams(48, 5)
	want := make([][]byte, 64)
	for i := range want {
		want[i] = miningState(p, &testGenesis, 3).Digest(uint32(i))
	}

	state := miningState(p, &testGenesis, 3)
	got := make([][]byte, len(want))
	var wg sync.WaitGroup
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = state.Digest(uint32(i))
		}(i)
	}
	wg.Wait()

	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Fatalf("mismatched digest for index %d -- got %x, want %x", i,
				got[i], want[i])
		}
	}
}

// TestNonceBytes ensures nonces serialize as little-endian uint32 words from
// least to most significant.
func TestNonceBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		nonce *uint256.Uint256
		want  string
	}{{
		name:  "zero",
		nonce: new(uint256.Uint256),
		want:  zeros(32),
	}, {
		name:  "one",
		nonce: new(uint256.Uint256).SetUint64(1),
		want:  "01" + zeros(31),
	}, {
		name:  "crosses first word",
		nonce: new(uint256.Uint256).SetUint64(1<<32 + 5),
		want:  "0500000001000000" + zeros(24),
	}, {
		name:  "high bit",
		nonce: new(uint256.Uint256).SetByteSlice(hexToBytes("80" + zeros(31))),
		want:  zeros(31) + "80",
	}}

	for _, test := range tests {
		got := NonceBytes(test.nonce)
		if hex.EncodeToString(got[:]) != test.want {
			t.Errorf("%s: mismatched nonce bytes -- got %x, want %s",
				test.name, got, test.want)
			continue
		}
	}
}

// TestBlockHash ensures the block hash commits to the previous block hash,
// nonce, and solution as expected.
func TestBlockHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		prevHash chainhash.Hash
		nonce    uint64
		soln     []uint32
		want     string
	}{{
		name:     "zero previous hash and nonce with empty solution",
		prevHash: chainhash.Hash{},
		nonce:    0,
		soln:     nil,
		want:     "e2f61c3f71d1defd3fa999dfa36953755c690689799962b48bebd836974e8cf9",
	}, {
		name:     "n=48, k=5 first block after genesis",
		prevHash: testGenesis,
		nonce:    2,
		soln: []uint32{2, 324, 116, 218, 90, 312, 396, 494, 31, 302, 55, 103,
			67, 214, 260, 496, 46, 105, 135, 445, 282, 294, 357, 422, 129,
			407, 373, 399, 216, 479, 263, 414},
		want: "25704110c22a881ba5958037a9da9e138d6b13c09bfa34243b3ead8743ac4ac2",
	}}

	for _, test := range tests {
		nonce := new(uint256.Uint256).SetUint64(test.nonce)
		got := BlockHash(&test.prevHash, nonce, test.soln)
		if hex.EncodeToString(got[:]) != test.want {
			t.Errorf("%s: mismatched block hash -- got %x, want %s",
				test.name, got[:], test.want)
			continue
		}
	}
}
