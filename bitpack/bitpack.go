// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bitpack

import "fmt"

// accumulatorBits is the width of the accumulator used to move bits between
// the packed and expanded representations.  An element plus a partially
// consumed byte must fit, so bit lengths are limited to accumulatorBits-7.
const accumulatorBits = 64

// MaxBitLength is the largest element bit length supported.
const MaxBitLength = accumulatorBits - 7

// checkParams ensures the bit length and padding can be handled by the
// accumulator.
func checkParams(bitLen, bytePad int) error {
	if bitLen < 1 || bitLen > MaxBitLength {
		str := fmt.Sprintf("element bit length %d is outside of the "+
			"supported range [1, %d]", bitLen, MaxBitLength)
		return makeError(ErrBitLength, str)
	}
	if bytePad < 0 {
		str := fmt.Sprintf("byte padding %d is negative", bytePad)
		return makeError(ErrBitLength, str)
	}
	return nil
}

// SlotWidth returns the number of bytes a single element occupies in the
// expanded representation for the given bit length and byte padding.
func SlotWidth(bitLen, bytePad int) int {
	return (bitLen+7)/8 + bytePad
}

// ExpandedLen returns the exact length of the expanded representation of a
// packed buffer of packedLen bytes.  The packed buffer must hold a whole
// number of elements.
func ExpandedLen(packedLen, bitLen, bytePad int) (int, error) {
	if err := checkParams(bitLen, bytePad); err != nil {
		return 0, err
	}
	totalBits := 8 * packedLen
	if totalBits%bitLen != 0 {
		str := fmt.Sprintf("packed buffer of %d bytes does not hold a whole "+
			"number of %d-bit elements", packedLen, bitLen)
		return 0, makeError(ErrSizeMismatch, str)
	}
	return totalBits / bitLen * SlotWidth(bitLen, bytePad), nil
}

// CompressedLen returns the exact length of the packed representation of an
// expanded buffer of expandedLen bytes.  The expanded buffer must hold a whole
// number of slots whose combined bit length is a multiple of 8.
func CompressedLen(expandedLen, bitLen, bytePad int) (int, error) {
	if err := checkParams(bitLen, bytePad); err != nil {
		return 0, err
	}
	width := SlotWidth(bitLen, bytePad)
	if expandedLen%width != 0 {
		str := fmt.Sprintf("expanded buffer of %d bytes is not a multiple of "+
			"the %d-byte slot width", expandedLen, width)
		return 0, makeError(ErrSizeMismatch, str)
	}
	totalBits := expandedLen / width * bitLen
	if totalBits%8 != 0 {
		str := fmt.Sprintf("%d elements of %d bits do not pack into whole "+
			"bytes", expandedLen/width, bitLen)
		return 0, makeError(ErrSizeMismatch, str)
	}
	return totalBits / 8, nil
}

// ExpandInto unpacks the big-endian bit stream in src, which holds elements of
// bitLen bits each, into dst where every element is written to its own
// byte-aligned slot preceded by bytePad zero bytes.
//
// The length of dst must be exactly the value reported by ExpandedLen for the
// length of src.  An error with the ErrSizeMismatch kind is returned
// otherwise.
func ExpandInto(dst, src []byte, bitLen, bytePad int) error {
	want, err := ExpandedLen(len(src), bitLen, bytePad)
	if err != nil {
		return err
	}
	if len(dst) != want {
		str := fmt.Sprintf("expanded buffer is %d bytes instead of the "+
			"required %d bytes", len(dst), want)
		return makeError(ErrSizeMismatch, str)
	}

	width := SlotWidth(bitLen, bytePad)
	mask := uint64(1)<<uint(bitLen) - 1

	// The accBits least significant bits of acc are the not yet consumed part
	// of the stream in big-endian order.  Bits above accBits are stale and
	// are removed by the per-byte masks.
	var acc uint64
	var accBits, j int
	for _, b := range src {
		acc = acc<<8 | uint64(b)
		accBits += 8

		for accBits >= bitLen {
			accBits -= bitLen
			for x := 0; x < bytePad; x++ {
				dst[j+x] = 0
			}
			for x := bytePad; x < width; x++ {
				shift := uint(8 * (width - x - 1))
				dst[j+x] = byte(acc>>(uint(accBits)+shift)) & byte(mask>>shift)
			}
			j += width
		}
	}

	return nil
}

// Expand returns the expanded representation of the packed buffer src.  See
// ExpandInto for details.
func Expand(src []byte, bitLen, bytePad int) ([]byte, error) {
	n, err := ExpandedLen(len(src), bitLen, bytePad)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, n)
	if err := ExpandInto(dst, src, bitLen, bytePad); err != nil {
		return nil, err
	}
	return dst, nil
}

// CompressInto packs the byte-aligned slots in src into dst as a tight
// big-endian bit stream of bitLen bits per element.  Only the low bitLen bits
// of every slot are read, so padding bytes and any excess high bits are
// ignored.
//
// The length of dst must be exactly the value reported by CompressedLen for
// the length of src.  An error with the ErrSizeMismatch kind is returned
// otherwise.
func CompressInto(dst, src []byte, bitLen, bytePad int) error {
	want, err := CompressedLen(len(src), bitLen, bytePad)
	if err != nil {
		return err
	}
	if len(dst) != want {
		str := fmt.Sprintf("packed buffer is %d bytes instead of the "+
			"required %d bytes", len(dst), want)
		return makeError(ErrSizeMismatch, str)
	}

	width := SlotWidth(bitLen, bytePad)
	mask := uint64(1)<<uint(bitLen) - 1

	var acc uint64
	var accBits, j int
	for i := range dst {
		// Pull in whole elements until at least one output byte is ready.
		for accBits < 8 {
			acc <<= uint(bitLen)
			for x := bytePad; x < width; x++ {
				shift := uint(8 * (width - x - 1))
				acc |= uint64(src[j+x]&byte(mask>>shift)) << shift
			}
			j += width
			accBits += bitLen
		}

		accBits -= 8
		dst[i] = byte(acc >> uint(accBits))
	}

	return nil
}

// Compress returns the packed representation of the expanded buffer src.  See
// CompressInto for details.
func Compress(src []byte, bitLen, bytePad int) ([]byte, error) {
	n, err := CompressedLen(len(src), bitLen, bytePad)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, n)
	if err := CompressInto(dst, src, bitLen, bytePad); err != nil {
		return nil, err
	}
	return dst, nil
}
