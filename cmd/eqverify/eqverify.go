// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/decred/eqminer/equihash"
	"github.com/decred/eqminer/internal/version"
	flags "github.com/jessevdk/go-flags"
)

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

func usage(parser *flags.Parser) {
	parser.WriteHelp(os.Stderr)
	os.Exit(2)
}

type config struct {
	ShowVersion bool `short:"V" long:"version" description:"Display version information and exit"`
	Quiet       bool `short:"q" long:"quiet" description:"Only report whether the solution is valid"`
}

// formatIndices returns the solution indices as a bracketed comma separated
// list.
func formatIndices(soln []uint32) string {
	strs := make([]string, len(soln))
	for i, index := range soln {
		strs[i] = strconv.FormatUint(uint64(index), 10)
	}
	return "[" + strings.Join(strs, ", ") + "]"
}

// writeTree writes the subtree rooted at the node with the provided id one node
// per line.  Every line is indented by one tab per level with a vertical bar
// marking the levels whose branch continues below the node.  Leaves are
// followed by their index in parentheses.
func writeTree(w io.Writer, tree *equihash.Tree, id int32, branches []bool) {
	var b strings.Builder
	if len(branches) > 0 {
		b.WriteByte('\t')
		for _, more := range branches[:len(branches)-1] {
			if more {
				b.WriteString("|\t")
			} else {
				b.WriteByte('\t')
			}
		}
	}
	node := tree.Node(id)
	b.WriteString(hex.EncodeToString(node.Hash))
	if node.IsLeaf() {
		fmt.Fprintf(&b, " (%d)", tree.Indices(id)[0])
	}
	fmt.Fprintln(w, b.String())

	left, right, ok := tree.Children(id)
	if !ok {
		return
	}
	writeTree(w, tree, left, append(branches[:len(branches):len(branches)], true))
	writeTree(w, tree, right, append(branches[:len(branches):len(branches)], false))
}

// verify checks the solution in the hex encoded header or full block for the
// provided parameters and writes the indices and reduction tree to w unless
// quiet is set.
func verify(w io.Writer, n, k uint32, headerHex string, quiet bool) (*equihash.Verification, error) {
	params, err := equihash.NewParams(n, k)
	if err != nil {
		return nil, err
	}
	header, err := hex.DecodeString(headerHex)
	if err != nil {
		return nil, fmt.Errorf("malformed header: %w", err)
	}
	v, err := equihash.VerifyHeader(params, header)
	if err != nil {
		return nil, err
	}

	if !quiet {
		fmt.Fprintln(w, formatIndices(v.Indices))
		writeTree(w, v.Tree, v.Tree.Root(), nil)
	}
	return v, nil
}

// parseParam parses an Equihash parameter given on the command line.
func parseParam(name, s string) uint32 {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		fatalf("invalid %s %q: %v\n", name, s, err)
	}
	return uint32(v)
}

func main() {
	var cfg config
	parser := flags.NewParser(&cfg, flags.Default)
	parser.Usage = "[OPTIONS] n k header-or-block"
	args, err := parser.Parse()
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) {
			if e.Type != flags.ErrHelp {
				os.Exit(1)
			}
			os.Exit(0)
		}
		os.Exit(1)
	}
	if cfg.ShowVersion {
		fmt.Printf("eqverify version %s\n", version.String())
		os.Exit(0)
	}

	if len(args) != 3 {
		usage(parser)
	}
	n := parseParam("n", args[0])
	k := parseParam("k", args[1])

	v, err := verify(os.Stdout, n, k, args[2], cfg.Quiet)
	if err != nil {
		fatalf("%v\n", err)
	}
	if !v.OK() {
		fatalf("invalid solution: %v\n", v.Err)
	}
	if cfg.Quiet {
		fmt.Println("valid solution")
	}
}
