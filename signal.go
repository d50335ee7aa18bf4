// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"os"
	"os/signal"
)

// interruptSignals defines the default signals to catch in order to do a proper
// shutdown.  This may be modified during init depending on the platform.
var interruptSignals = []os.Signal{os.Interrupt}

// shutdownListener listens for OS Signals such as SIGINT (Ctrl+C).  It returns
// a context that is canceled when a signal is received.
func shutdownListener() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		interruptChannel := make(chan os.Signal, 1)
		signal.Notify(interruptChannel, interruptSignals...)

		// Listen for initial shutdown signal and cancel the returned context.
		sig := <-interruptChannel
		eqmnLog.Infof("Received signal (%s).  Shutting down...", sig)
		cancel()

		// Listen for repeated signals and display a message so the user
		// knows the shutdown is in progress and the process is not hung.
		for sig := range interruptChannel {
			eqmnLog.Infof("Received signal (%s).  Already shutting down...",
				sig)
		}
	}()

	return ctx
}

// shutdownRequested returns true when the context returned by shutdownListener
// was canceled.  This simplifies early shutdown slightly since the caller can
// just use an if statement instead of a select.
func shutdownRequested(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
	}

	return false
}
