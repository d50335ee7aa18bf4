// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/decred/eqminer/equihash"
	"golang.org/x/term"
)

const (
	// defaultTermWidth is the width assumed when the size of the terminal is
	// unknown.
	defaultTermWidth = 80

	// minBarWidth is the narrowest bar that is drawn.
	minBarWidth = 10
)

// activeProgress is the progress bar drawn on standard output, if any.  Log
// lines clear it before they are written.
var activeProgress *progressBar

// progressBar draws the progress of the solver in place on an interactive
// terminal.  All methods are safe to call on a nil bar and do nothing in that
// case.
type progressBar struct {
	mtx    sync.Mutex
	w      io.Writer
	width  int
	rounds int
	drawn  bool
}

// newProgressBar returns a progress bar that draws to the provided file for a
// solver with k collision rounds.  Nil is returned when the file is not an
// interactive terminal.
func newProgressBar(f *os.File, k uint32) *progressBar {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		width = defaultTermWidth
	}
	return &progressBar{w: f, width: width, rounds: int(k)}
}

// renderProgress returns the single line describing the provided solver
// progress that fits in width columns.
func renderProgress(p equihash.Progress, rounds, width int) string {
	label := fmt.Sprintf("round %d/%d %-7s", p.Round, rounds, p.Stage)
	pct := 100
	if p.Total > 0 {
		pct = p.Processed * 100 / p.Total
	}

	// The line is the label, a space, the bracketed bar, and a space
	// followed by the percentage.
	barWidth := width - len(label) - len(" [] 100%") - 1
	if barWidth < minBarWidth {
		barWidth = minBarWidth
	}
	filled := barWidth * pct / 100
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)
	return fmt.Sprintf("%s [%s] %3d%%", label, bar, pct)
}

// Update redraws the bar for the provided solver progress.
func (b *progressBar) Update(p equihash.Progress) {
	if b == nil {
		return
	}
	b.mtx.Lock()
	defer b.mtx.Unlock()

	fmt.Fprintf(b.w, "\r%s", renderProgress(p, b.rounds, b.width))
	b.drawn = true
}

// Clear erases the bar from the terminal when it is drawn.
func (b *progressBar) Clear() {
	if b == nil {
		return
	}
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if !b.drawn {
		return
	}
	fmt.Fprintf(b.w, "\r%s\r", strings.Repeat(" ", b.width-1))
	b.drawn = false
}
