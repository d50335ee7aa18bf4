// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bitpack

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind
// when determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific Error.
const (
	// ErrSizeMismatch indicates the length of an input or output buffer does
	// not satisfy the exact size relation required for the requested element
	// bit length and padding.
	ErrSizeMismatch = ErrorKind("ErrSizeMismatch")

	// ErrBitLength indicates the requested element bit length or byte
	// padding can't be handled by the packing accumulator.
	ErrBitLength = ErrorKind("ErrBitLength")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies a packing error.  It has full support for errors.Is and
// errors.As, so the caller can ascertain the specific reason for the error by
// checking the underlying error.
type Error struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// makeError creates an Error given a set of arguments.
func makeError(kind ErrorKind, desc string) Error {
	return Error{Err: kind, Description: desc}
}
