// Copyright (c) 2017-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sampleconfig

import (
	_ "embed"
)

// sampleEqminerConf is a string containing the commented example config for
// eqminer.
//
//go:embed sample-eqminer.conf
var sampleEqminerConf string

// Eqminer returns a string containing the commented example config for
// eqminer.
func Eqminer() string {
	return sampleEqminerConf
}
