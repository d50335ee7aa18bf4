// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package progresslog

import (
	"bytes"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/decred/eqminer/internal/mining"
	"github.com/decred/slog"
)

var (
	backendLog = slog.NewBackend(io.Discard)
	testLog    = backendLog.Logger("TEST")
)

// TestLogAttempt ensures the logging functionality works as expected via a
// test logger.
func TestLogAttempt(t *testing.T) {
	testAttempts := []mining.Attempt{{
		Solutions: nil,
	}, {
		Solutions: make([][]uint32, 3),
		Rejected:  2,
	}, {
		Solutions: make([][]uint32, 1),
		Rejected:  1,
	}}

	tests := []struct {
		name             string
		reset            bool
		inputAttempt     *mining.Attempt
		forceLog         bool
		inputLastLogTime time.Time
		wantTried        uint64
		wantFound        uint64
		wantRejected     uint64
	}{{
		name:             "round 1, attempt 0, last log time < 10 secs ago, not forced",
		inputAttempt:     &testAttempts[0],
		forceLog:         false,
		inputLastLogTime: time.Now(),
		wantTried:        1,
		wantFound:        0,
		wantRejected:     0,
	}, {
		name:             "round 1, attempt 1, last log time < 10 secs ago, not forced",
		inputAttempt:     &testAttempts[1],
		forceLog:         false,
		inputLastLogTime: time.Now(),
		wantTried:        2,
		wantFound:        3,
		wantRejected:     2,
	}, {
		name:             "round 1, attempt 2, last log time < 10 secs ago, forced",
		inputAttempt:     &testAttempts[2],
		forceLog:         true,
		inputLastLogTime: time.Now(),
		wantTried:        0,
		wantFound:        0,
		wantRejected:     0,
	}, {
		name:             "round 2, attempt 1, last log time < 10 secs ago, not forced",
		reset:            true,
		inputAttempt:     &testAttempts[1],
		forceLog:         false,
		inputLastLogTime: time.Now(),
		wantTried:        1,
		wantFound:        3,
		wantRejected:     2,
	}, {
		name:             "round 2, attempt 2, last log time > 10 secs ago, not forced",
		inputAttempt:     &testAttempts[2],
		forceLog:         false,
		inputLastLogTime: time.Now().Add(-11 * time.Second),
		wantTried:        0,
		wantFound:        0,
		wantRejected:     0,
	}}

	progressLogger := New("Tried", testLog)
	for _, test := range tests {
		if test.reset {
			progressLogger = New("Tried", testLog)
		}
		progressLogger.SetLastLogTime(test.inputLastLogTime)
		progressLogger.LogAttempt(test.inputAttempt, test.forceLog)
		want := &Logger{
			triedNonces:       test.wantTried,
			foundSolutions:    test.wantFound,
			rejectedSolutions: test.wantRejected,
			lastLogTime:       progressLogger.lastLogTime,
			progressAction:    progressLogger.progressAction,
			subsystemLogger:   progressLogger.subsystemLogger,
		}
		if !reflect.DeepEqual(progressLogger, want) {
			t.Errorf("%s:\nwant: %+v\ngot: %+v\n", test.name, want,
				progressLogger)
		}
	}
}

// TestLogBlock ensures mined blocks flush the outstanding totals and are
// logged with their details.
func TestLogBlock(t *testing.T) {
	var buf bytes.Buffer
	backend := slog.NewBackend(&buf)
	logger := New("Tried", backend.Logger("TEST"))
	logger.LogAttempt(&mining.Attempt{Solutions: make([][]uint32, 2),
		Rejected: 1}, false)

	block := &mining.Block{
		PrevHash:  mining.GenesisHash,
		Height:    1,
		SolveTime: 1500 * time.Millisecond,
	}
	block.Hash[0] = 0x25
	block.Nonce.SetUint64(2)
	logger.LogBlock(block)

	if logger.triedNonces != 0 || logger.foundSolutions != 0 ||
		logger.rejectedSolutions != 0 {

		t.Fatalf("totals not reset: %+v", logger)
	}

	out := buf.String()
	wantLines := []string{
		"Tried 1 nonce in the last",
		"(2 solutions, 1 rejected by difficulty)",
		"Mined block at height 1 (previous hash e3b0c44298fc1c149afbf4c8996" +
			"fb92427ae41e4649b934ca495991b7852b855, current hash 25000000",
		"nonce 2, time to find 1.5s)",
	}
	for _, want := range wantLines {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
