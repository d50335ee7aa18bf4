// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bitpack_test

import (
	"fmt"

	"github.com/decred/eqminer/bitpack"
)

// This example demonstrates packing 17-bit solution indices stored in 4-byte
// big-endian slots into a minimal bit stream and expanding them again.
func Example_roundTrip() {
	slots := []byte{
		0x00, 0x00, 0x00, 0x01,
		0x00, 0x01, 0xff, 0xff,
		0x00, 0x00, 0x12, 0x34,
		0x00, 0x01, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x07,
		0x00, 0x00, 0xab, 0xcd,
		0x00, 0x01, 0x80, 0x00,
	}

	// Each index uses 17 bits, so one byte of each slot is padding.
	packed, err := bitpack.Compress(slots, 17, 1)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("packed: %x\n", packed)

	expanded, err := bitpack.Expand(packed, 17, 1)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("expanded: %x\n", expanded)

	// Output:
	// packed: 0000ffffc2469000000000001d579b8000
	// expanded: 000000010001ffff000012340001000000000000000000070000abcd00018000
}
