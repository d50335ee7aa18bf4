// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package bitpack converts between tightly packed big-endian bit streams of
fixed-width unsigned integers and byte-aligned representations of the same
integers.

Equihash relies on this conversion in two places.  Hash outputs are expanded
so that every n/(k+1)-bit collision element lands in its own byte-aligned
slot, which allows collisions to be detected with plain byte comparisons.
Solution indices are compressed from 4-byte slots down to n/(k+1)+1 bits
each when they are serialized into a block header, and expanded again when a
header is verified.

# Layout

Elements are read from and written to the packed stream most significant bit
first.  In the expanded form each element occupies

	ceil(bitLen/8) + bytePad

bytes, where the leading bytePad bytes are always zero and the element value
is right-aligned in big-endian order in the remaining bytes.  For example,
expanding the two bytes 0xb4 0xc1 with a bit length of 8 and a byte padding
of 2 produces 0x00 0x00 0xb4 0x00 0x00 0xc1.

# Errors

All size relations are exact.  A buffer whose length does not correspond to
a whole number of elements yields an error with the ErrSizeMismatch kind,
while bit lengths the 64-bit accumulator can not handle yield ErrBitLength.
*/
package bitpack
