// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package equihash

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/decred/dcrd/wire"
	"github.com/decred/eqminer/bitpack"
)

// HeaderPrefixSize is the size of the fixed header prefix that is hashed as-is
// to seed the leaf hashes when verifying a header.
const HeaderPrefixSize = 140

// indexSlotSize is the size of the big-endian slot each index occupies before
// it is packed.
const indexSlotSize = 4

// slotPadding returns the number of leading zero bytes in each 4-byte index
// slot.
func slotPadding(p Params) int {
	return indexSlotSize - int(p.IndexBitLength()+7)/8
}

// EncodeSolution returns the minimal encoding of the solution which packs each
// index into IndexBitLength bits in big-endian bit order.
func EncodeSolution(p Params, soln []uint32) ([]byte, error) {
	if err := checkSolutionShape(p, soln); err != nil {
		return nil, err
	}

	slots := make([]byte, indexSlotSize*len(soln))
	for i, index := range soln {
		binary.BigEndian.PutUint32(slots[i*indexSlotSize:], index)
	}
	return bitpack.Compress(slots, int(p.IndexBitLength()), slotPadding(p))
}

// DecodeSolution returns the indices of the minimal encoding of a solution.
// An error with the ErrHeaderMismatch kind is returned when the encoding is
// not SolutionBytes long.
func DecodeSolution(p Params, minimal []byte) ([]uint32, error) {
	if len(minimal) != p.SolutionBytes() {
		str := fmt.Sprintf("encoded solution is %d bytes instead of the %d "+
			"bytes required by %v", len(minimal), p.SolutionBytes(), p)
		return nil, ruleError(ErrHeaderMismatch, str)
	}

	slots, err := bitpack.Expand(minimal, int(p.IndexBitLength()),
		slotPadding(p))
	if err != nil {
		return nil, err
	}
	soln := make([]uint32, len(slots)/indexSlotSize)
	for i := range soln {
		soln[i] = binary.BigEndian.Uint32(slots[i*indexSlotSize:])
	}
	return soln, nil
}

// SerializeHeader returns the header formed by the fixed prefix, the
// CompactSize length of the encoded solution, and the encoded solution.
func SerializeHeader(p Params, prefix []byte, soln []uint32) ([]byte, error) {
	if len(prefix) != HeaderPrefixSize {
		str := fmt.Sprintf("header prefix is %d bytes instead of %d",
			len(prefix), HeaderPrefixSize)
		return nil, ruleError(ErrHeaderMismatch, str)
	}
	minimal, err := EncodeSolution(p, soln)
	if err != nil {
		return nil, err
	}

	size := HeaderPrefixSize + wire.VarIntSerializeSize(uint64(len(minimal))) +
		len(minimal)
	buf := bytes.NewBuffer(make([]byte, 0, size))
	buf.Write(prefix)
	if err := wire.WriteVarInt(buf, 0, uint64(len(minimal))); err != nil {
		return nil, err
	}
	buf.Write(minimal)
	return buf.Bytes(), nil
}

// ParseHeader splits the serialized header into its fixed prefix and the
// decoded solution indices.  The header may be followed by further block data
// which is ignored, so a full serialized block is accepted as well.
//
// An error with the ErrHeaderMismatch kind is returned when the header is
// shorter than the prefix, the length of the solution is not canonically
// encoded, the declared length is not SolutionBytes, or fewer bytes than
// declared follow it.
func ParseHeader(p Params, header []byte) ([]byte, []uint32, error) {
	if len(header) < HeaderPrefixSize {
		str := fmt.Sprintf("header is %d bytes which is shorter than the "+
			"%d-byte prefix", len(header), HeaderPrefixSize)
		return nil, nil, ruleError(ErrHeaderMismatch, str)
	}

	r := bytes.NewReader(header[HeaderPrefixSize:])
	solnLen, err := wire.ReadVarInt(r, 0)
	if err != nil {
		str := fmt.Sprintf("malformed solution length: %v", err)
		return nil, nil, ruleError(ErrHeaderMismatch, str)
	}
	if solnLen != uint64(p.SolutionBytes()) {
		str := fmt.Sprintf("header declares a %d-byte solution instead of "+
			"the %d bytes required by %v", solnLen, p.SolutionBytes(), p)
		return nil, nil, ruleError(ErrHeaderMismatch, str)
	}
	if uint64(r.Len()) < solnLen {
		str := fmt.Sprintf("header carries %d solution bytes instead of "+
			"the declared %d", r.Len(), solnLen)
		return nil, nil, ruleError(ErrHeaderMismatch, str)
	}

	// Any data after the solution, such as the transactions of a full
	// block, is ignored.
	off := len(header) - r.Len()
	minimal := header[off : off+int(solnLen)]
	soln, err := DecodeSolution(p, minimal)
	if err != nil {
		return nil, nil, err
	}
	return header[:HeaderPrefixSize], soln, nil
}
