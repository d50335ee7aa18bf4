// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"sync"

	"github.com/decred/eqminer/equihash"
	"github.com/decred/eqminer/internal/mining"
	"github.com/decred/eqminer/internal/mining/cpuminer"
	"github.com/decred/eqminer/internal/progresslog"
	"github.com/decred/eqminer/internal/version"
)

var cfg *config

// solverThreads returns the number of goroutines each solver run uses to
// generate its initial list so that all mining workers together roughly use
// every processor.
func solverThreads(workers int32) int {
	return max(runtime.NumCPU()/int(workers), 1)
}

// newMiner returns a CPU miner for the loaded configuration.
func newMiner(cfg *config) *cpuminer.CPUMiner {
	// Only draw the progress bar when a single nonce is solved at a time
	// since concurrent solvers would fight over the line.
	var progress func(equihash.Progress)
	if !cfg.NoProgress && cfg.Workers == 1 {
		activeProgress = newProgressBar(os.Stdout, cfg.params.K())
		if activeProgress != nil {
			progress = activeProgress.Update
		}
	}

	return cpuminer.New(&cpuminer.Config{
		Params:     cfg.params,
		Difficulty: cfg.Difficulty,
		PrevHash:   cfg.prevHash,
		Solver: equihash.SolverConfig{
			Verbose:  cfg.verbosity > 1,
			Workers:  solverThreads(cfg.Workers),
			Progress: progress,
		},
		NumDiscreteWorkers: uint32(cfg.Workers),
		ProcessBlock: func(block *mining.Block) error {
			activeProgress.Clear()
			return nil
		},
		ProgressLogger: progresslog.New("Tried", progLog),
	})
}

// mine runs the miner until the configured number of blocks are mined or the
// context is cancelled.
func mine(ctx context.Context, cfg *config, miner *cpuminer.CPUMiner) error {
	// Mine a discrete number of blocks when requested.
	if cfg.MaxBlocks > 0 {
		blocks, err := miner.GenerateNBlocks(ctx, cfg.MaxBlocks)
		activeProgress.Clear()
		eqmnLog.Infof("Mined %d of %d requested blocks", len(blocks),
			cfg.MaxBlocks)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	// Otherwise mine until shutdown is requested.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		miner.Run(ctx)
		wg.Done()
	}()
	miner.SetNumWorkers(cfg.Workers)
	<-ctx.Done()
	wg.Wait()
	activeProgress.Clear()

	_, height := miner.BestTip()
	eqmnLog.Infof("Mined %d blocks", height)
	return nil
}

// eqminerMain is the real main function for eqminer.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is called.
func eqminerMain() error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	tcfg, _, err := loadConfig(appName, os.Args[1:])
	if err != nil {
		usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
		fmt.Fprintln(os.Stderr, err)
		var e errSuppressUsage
		if !errors.As(err, &e) {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return err
	}
	cfg = tcfg
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	// Get a context that will be canceled when a shutdown signal has been
	// triggered from an OS signal such as SIGINT (Ctrl+C).
	ctx := shutdownListener()
	defer eqmnLog.Info("Shutdown complete")

	// Show version and home dir at startup.
	eqmnLog.Infof("Version %s (Go version %s %s/%s)", version.String(),
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
	eqmnLog.Infof("Home dir: %s", cfg.HomeDir)
	if cfg.NoFileLogging {
		eqmnLog.Info("File logging disabled")
	}

	// Enable http profile server if requested.
	var profiler profileServer
	defer profiler.Stop()
	if cfg.Profile != "" {
		if err := profiler.Start(cfg.Profile); err != nil {
			eqmnLog.Warnf("unable to start profile server: %v", err)
			return err
		}
	}

	// Write cpu profile if requested.
	if cfg.CPUProfile != "" {
		f, err := os.Create(cfg.CPUProfile)
		if err != nil {
			eqmnLog.Errorf("Unable to create cpu profile: %v", err)
			return err
		}
		pprof.StartCPUProfile(f)
		defer f.Close()
		defer pprof.StopCPUProfile()
	}

	// Return now if a shutdown signal was triggered.
	if shutdownRequested(ctx) {
		return nil
	}

	eqmnLog.Infof("Mining with Equihash %v (%d indices per solution, %d "+
		"byte solutions) at difficulty %d with %d %s", cfg.params,
		cfg.params.SolutionSize(), cfg.params.SolutionBytes(), cfg.Difficulty,
		cfg.Workers, pickNoun(uint64(cfg.Workers), "worker", "workers"))
	eqmnLog.Infof("Genesis hash: %x", cfg.prevHash[:])

	if err := mine(ctx, cfg, newMiner(cfg)); err != nil {
		eqmnLog.Errorf("Mining stopped: %v", err)
		return err
	}
	return nil
}

// pickNoun returns the singular or plural form of a noun depending on the
// count n.
func pickNoun(n uint64, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

func main() {
	// Work around defer not working after os.Exit()
	if err := eqminerMain(); err != nil {
		os.Exit(1)
	}
}
