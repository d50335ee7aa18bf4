// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package progresslog

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/decred/eqminer/internal/mining"
	"github.com/decred/slog"
)

// logInterval is the minimum amount of time between unforced progress
// messages.
const logInterval = time.Second * 10

// pickNoun returns the singular or plural form of a noun depending on the
// provided count.
func pickNoun(n uint64, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

// Logger provides periodic logging of mining progress.
type Logger struct {
	sync.Mutex
	subsystemLogger slog.Logger
	progressAction  string

	// lastLogTime tracks the last time a log statement was shown.
	lastLogTime time.Time

	// These fields accumulate information about nonces between log
	// statements.
	triedNonces       uint64
	foundSolutions    uint64
	rejectedSolutions uint64
}

// New returns a new mining progress logger.
func New(progressAction string, logger slog.Logger) *Logger {
	return &Logger{
		lastLogTime:     time.Now(),
		progressAction:  progressAction,
		subsystemLogger: logger,
	}
}

// LogAttempt accumulates the details of a searched nonce and periodically
// (every 10 seconds) logs an information message to show progress to the user
// along with duration and totals included.
//
// The force flag may be used to force a log message to be shown regardless of
// the time the last one was shown.
//
// The progress message is templated as follows:
//
//	{progressAction} {numTried} {nonces|nonce} in the last {timePeriod}
//	({numSolutions} {solutions|solution}, {numRejected} rejected by difficulty)
func (l *Logger) LogAttempt(attempt *mining.Attempt, forceLog bool) {
	l.Lock()
	defer l.Unlock()

	l.triedNonces++
	l.foundSolutions += uint64(len(attempt.Solutions))
	l.rejectedSolutions += uint64(attempt.Rejected)
	l.logProgress(forceLog)
}

// logProgress logs the accumulated totals when forced or when enough time has
// passed since the last message.
//
// This function MUST be called with the embedded mutex held (for writes).
func (l *Logger) logProgress(forceLog bool) {
	now := time.Now()
	duration := now.Sub(l.lastLogTime)
	if !forceLog && duration < logInterval {
		return
	}

	// Nothing to report.
	if l.triedNonces == 0 {
		l.lastLogTime = now
		return
	}

	l.subsystemLogger.Infof("%s %d %s in the last %0.2fs (%d %s, %d rejected "+
		"by difficulty)", l.progressAction, l.triedNonces,
		pickNoun(l.triedNonces, "nonce", "nonces"), duration.Seconds(),
		l.foundSolutions, pickNoun(l.foundSolutions, "solution", "solutions"),
		l.rejectedSolutions)

	l.triedNonces = 0
	l.foundSolutions = 0
	l.rejectedSolutions = 0
	l.lastLogTime = now
}

// LogBlock forces any outstanding progress to be logged and then logs the
// details of the provided mined block.
func (l *Logger) LogBlock(block *mining.Block) {
	l.Lock()
	defer l.Unlock()

	l.logProgress(true)
	l.subsystemLogger.Infof("Mined block at height %d (previous hash %s, "+
		"current hash %s, nonce %s, time to find %v)", block.Height,
		hex.EncodeToString(block.PrevHash[:]),
		hex.EncodeToString(block.Hash[:]), &block.Nonce,
		block.SolveTime.Round(time.Millisecond))
}

// SetLastLogTime updates the last time data was logged to the provided time.
func (l *Logger) SetLastLogTime(time time.Time) {
	l.Lock()
	l.lastLogTime = time
	l.Unlock()
}
