// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package equihash implements the Equihash memory-hard proof-of-work scheme.

Equihash is based on Wagner's algorithm for the generalized birthday problem.
A proof for the parameters n and k is a set of 2^k distinct indices whose
n-bit leaf hashes XOR to zero, where the leaf hashes are derived from a seed
with a personalized BLAKE2b instance.  Finding a proof requires holding
2^(n/(k+1)+1) leaf hashes in memory while verifying one only requires
deriving the 2^k leaf hashes it references.

# Parameters

Parameters are created with NewParams which rejects any n and k that do not
describe a usable instance.  All other values, such as the collision length
n/(k+1) and the expanded leaf hash length, are derived from them.

# Leaf Hashes

An Oracle configures BLAKE2b with the personalization "ZcashPoW" || n || k
and an output size holding 512/n leaf hashes.  Seeding the oracle with the
previous block hash and nonce, or with a header prefix, yields a HashState
from which the leaf hash of any index is derived.  Each leaf hash is expanded
so that every n/(k+1)-bit collision element occupies whole bytes.

# Solving

Solve sorts the leaf hashes and repeatedly merges pairs that collide on the
next collision element, for k rounds, and returns every solution found.  The
indices of a solution are ordered so that, at every level, the subtree with
the smaller first index precedes its sibling.

# Verification

VerifySolution recomputes the leaf hashes of a solution and reduces them with
XOR as a balanced binary tree.  VerifyHeader does the same for a serialized
header made of a 140-byte prefix, a CompactSize length, and the solution
packed at n/(k+1)+1 bits per index.

# Difficulty

BlockHash commits to the previous block hash, the nonce, and the solution
with double SHA-256.  MeetsDifficulty compares the number of leading zero bits
of that hash against a target.

# Errors

Errors returned by this package are of type RuleError and carry an
ErrorKind that can be checked with errors.Is.
*/
package equihash
