// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind
// when determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific Error.
const (
	// ErrNoSolution indicates the search for a nonce found no solution that
	// satisfies the difficulty target.  It is an expected outcome and the
	// caller moves on to the next nonce.
	ErrNoSolution = ErrorKind("ErrNoSolution")

	// ErrExhaustedNonceSpace indicates every nonce below 2^MaxNonceBits was
	// tried without finding a block.
	ErrExhaustedNonceSpace = ErrorKind("ErrExhaustedNonceSpace")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies a mining error.  It has full support for errors.Is and
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
