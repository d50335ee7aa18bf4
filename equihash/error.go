// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package equihash

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind
// when determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific RuleError.
const (
	// ErrInvalidParameters indicates the Equihash parameters n and k do not
	// describe a usable instance of the algorithm.
	ErrInvalidParameters = ErrorKind("ErrInvalidParameters")

	// ErrHeaderMismatch indicates a serialized header is too short, carries
	// a malformed solution length prefix, or declares a solution length that
	// does not match the Equihash parameters.
	ErrHeaderMismatch = ErrorKind("ErrHeaderMismatch")

	// ErrSolutionSize indicates a solution does not contain exactly 2^k
	// indices.
	ErrSolutionSize = ErrorKind("ErrSolutionSize")

	// ErrIndexRange indicates an index is outside of the index space
	// [0, 2^(n/(k+1)+1)).
	ErrIndexRange = ErrorKind("ErrIndexRange")

	// ErrDuplicateIndex indicates a solution references the same index more
	// than once.
	ErrDuplicateIndex = ErrorKind("ErrDuplicateIndex")

	// ErrNonZeroRoot indicates the XOR of all leaf hashes referenced by a
	// solution is not zero.
	ErrNonZeroRoot = ErrorKind("ErrNonZeroRoot")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// RuleError identifies a rule violation.  It has full support for errors.Is
// and errors.As, so the caller can ascertain the specific reason for the
// error by checking the underlying error.
type RuleError struct {
	Description string
	Err         error
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e RuleError) Unwrap() error {
	return e.Err
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(kind ErrorKind, desc string) RuleError {
	return RuleError{Err: kind, Description: desc}
}
