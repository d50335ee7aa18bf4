// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining_test

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/decred/dcrd/math/uint256"
	"github.com/decred/eqminer/equihash"
	"github.com/decred/eqminer/internal/mining"
)

// This example demonstrates searching nonces in increasing order for the first
// block on top of the genesis hash.
func ExampleSolveNonce() {
	params, err := equihash.NewParams(48, 5)
	if err != nil {
		fmt.Println(err)
		return
	}
	oracle := equihash.NewOracle(params)

	const difficulty = 2
	var nonce uint256.Uint256
	for {
		block, err := mining.SolveNonce(context.Background(), oracle,
			&mining.GenesisHash, &nonce, difficulty, equihash.SolverConfig{})
		if errors.Is(err, mining.ErrNoSolution) {
			nonce.AddUint64(1)
			continue
		}
		if err != nil {
			fmt.Println(err)
			return
		}

		fmt.Println("nonce:", &block.Nonce)
		fmt.Println("hash:", hex.EncodeToString(block.Hash[:]))
		fmt.Println("first indices:", block.Solution[:4])
		return
	}

	// Output:
	// nonce: 2
	// hash: 25704110c22a881ba5958037a9da9e138d6b13c09bfa34243b3ead8743ac4ac2
	// first indices: [2 324 116 218]
}
