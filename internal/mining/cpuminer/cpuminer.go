// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cpuminer

import (
	"context"
	"encoding/hex"
	"errors"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/math/uint256"
	"github.com/decred/eqminer/equihash"
	"github.com/decred/eqminer/internal/mining"
	"github.com/decred/eqminer/internal/progresslog"
	"golang.org/x/sync/errgroup"
)

const (
	// spsUpdateSecs is the number of seconds to wait in between each
	// update to the solves per second monitor.
	spsUpdateSecs = 10
)

var (
	// MaxNumWorkers is the maximum number of workers that will be allowed for
	// mining and is based on the number of processor cores.  This helps ensure
	// system stays reasonably responsive under heavy load.
	MaxNumWorkers = uint32(runtime.NumCPU() * 2)

	// defaultNumWorkers is the default number of workers to use for mining.
	defaultNumWorkers = uint32(1)

	// errStaleTip is returned internally when another block extended the tip
	// a worker was solving for.
	errStaleTip = errors.New("tip changed")
)

// speedStats houses tracking information used to monitor the solving speed of
// the CPU miner.
type speedStats struct {
	totalNonces   atomic.Uint64
	elapsedMicros atomic.Uint64
}

// Config is a descriptor containing the CPU miner configuration.
type Config struct {
	// Params are the Equihash parameters blocks are mined with.
	Params equihash.Params

	// Difficulty is the number of leading zero bits the hash of a mined block
	// must have.
	Difficulty uint32

	// PrevHash is the hash the first mined block builds on.
	PrevHash chainhash.Hash

	// Solver configures every run of the solver.
	Solver equihash.SolverConfig

	// NumDiscreteWorkers is the number of goroutines GenerateNBlocks uses to
	// search nonces concurrently.  Values less than one use a single
	// goroutine.
	NumDiscreteWorkers uint32

	// ProcessBlock defines the function to call with any solved blocks.  The
	// tip only advances to blocks it accepts.  It may be nil in which case
	// every verified block is accepted.
	ProcessBlock func(*mining.Block) error

	// ProgressLogger, when set, is notified about every searched nonce and
	// every accepted block.
	ProgressLogger *progresslog.Logger
}

// chainTip is the block new blocks are mined on along with the nonces that
// have been handed out for it.
type chainTip struct {
	prevHash  chainhash.Hash
	height    uint64
	nextNonce uint256.Uint256
	started   time.Time

	// changed is closed once a block extending this tip is accepted.
	changed chan struct{}
}

// CPUMiner provides facilities for solving blocks (mining) using the CPU in a
// concurrency-safe manner.  It consists of two main modes -- a normal mining
// mode that tries to solve blocks continuously and a discrete mining mode,
// which is accessible via GenerateNBlocks, that generates a specific number of
// blocks that extend the tip.
//
// The normal mining mode consists of two main goroutines -- a speed monitor and
// a controller for additional worker goroutines that solve blocks.
//
// All workers draw nonces from a counter shared for the current tip, so the
// nonces of a tip are handed out in increasing order starting from zero
// regardless of the number of workers.
//
// When the CPU miner is first started via the Run method, it will not have any
// workers which means it will be idle.  The number of worker goroutines for the
// normal mining mode can be set via the SetNumWorkers method.
type CPUMiner struct {
	numWorkers atomic.Uint32

	sync.Mutex
	cfg               *Config
	oracle            *equihash.Oracle
	normalMining      bool
	discreteMining    bool
	submitBlockLock   sync.Mutex
	wg                sync.WaitGroup
	workerWg          sync.WaitGroup
	updateNumWorkers  chan struct{}
	querySolvesPerSec chan float64
	speedStats        map[uint64]*speedStats
	quit              chan struct{}

	// tip is the block workers currently extend.  It is protected by tipMtx.
	tipMtx sync.Mutex
	tip    *chainTip
}

// speedMonitor handles tracking the number of nonces per second the mining
// process is searching.  It must be run as a goroutine.
func (m *CPUMiner) speedMonitor(ctx context.Context) {
	log.Trace("CPU miner speed monitor started")

	var solvesPerSec float64
	ticker := time.NewTicker(time.Second * spsUpdateSecs)
	defer ticker.Stop()

out:
	for {
		select {
		// Time to update the solves per second.
		case <-ticker.C:
			// Update the total overall solves per second to the sum of the
			// solves per second of each individual worker.
			solvesPerSec = 0
			m.Lock()
			for _, stats := range m.speedStats {
				totalNonces := stats.totalNonces.Swap(0)
				elapsedMicros := stats.elapsedMicros.Swap(0)
				if totalNonces == 0 || elapsedMicros == 0 {
					continue
				}
				elapsedSecs := float64(elapsedMicros) / 1e6
				solvesPerSec += float64(totalNonces) / elapsedSecs
			}
			m.Unlock()
			if solvesPerSec != 0 && !math.IsNaN(solvesPerSec) {
				log.Debugf("Solve speed: %0.2f nonces/s", solvesPerSec)
			}

		// Request for the number of solves per second.
		case m.querySolvesPerSec <- solvesPerSec:
			// Nothing to do.

		case <-ctx.Done():
			break out
		}
	}

	m.wg.Done()
	log.Trace("CPU miner speed monitor done")
}

// currentTip returns the tip blocks are currently mined on.
func (m *CPUMiner) currentTip() *chainTip {
	m.tipMtx.Lock()
	defer m.tipMtx.Unlock()
	return m.tip
}

// nextNonce hands out the next unused nonce for the provided tip.  It returns
// false when the tip is no longer current.
func (m *CPUMiner) nextNonce(tip *chainTip) (uint256.Uint256, bool) {
	m.tipMtx.Lock()
	defer m.tipMtx.Unlock()

	if tip != m.tip {
		return uint256.Uint256{}, false
	}
	nonce := tip.nextNonce
	tip.nextNonce.AddUint64(1)
	return nonce, true
}

// resetProgress starts a new progress logging interval at the current time.
func (m *CPUMiner) resetProgress() {
	if m.cfg.ProgressLogger != nil {
		m.cfg.ProgressLogger.SetLastLogTime(time.Now())
	}
}

// BestTip returns the hash and height of the block new blocks build on.  The
// height of the initial previous block hash is zero.
//
// This function is safe for concurrent access.
func (m *CPUMiner) BestTip() (chainhash.Hash, uint64) {
	tip := m.currentTip()
	return tip.prevHash, tip.height
}

// submitBlock checks the passed block independently and submits it via the
// configured ProcessBlock callback.  The tip is advanced to the block when it
// is accepted.
func (m *CPUMiner) submitBlock(block *mining.Block) bool {
	m.submitBlockLock.Lock()
	defer m.submitBlockLock.Unlock()

	// Never report a block that does not pass verification.
	if err := block.Verify(); err != nil {
		log.Errorf("Block solved via CPU miner failed verification: %v", err)
		return false
	}

	// Another worker may have extended the tip in the meantime.
	m.tipMtx.Lock()
	tip := m.tip
	m.tipMtx.Unlock()
	if block.PrevHash != tip.prevHash {
		log.Debugf("Discarding stale block %x building on %x", block.Hash[:],
			block.PrevHash[:])
		return false
	}

	if m.cfg.ProcessBlock != nil {
		if err := m.cfg.ProcessBlock(block); err != nil {
			log.Errorf("Block submitted via CPU miner rejected: %v", err)
			return false
		}
	}

	// The block was accepted, so move on to the next tip and stop everyone
	// still working on the old one.
	m.tipMtx.Lock()
	m.tip = &chainTip{
		prevHash: block.Hash,
		height:   block.Height,
		started:  time.Now(),
		changed:  make(chan struct{}),
	}
	m.tipMtx.Unlock()
	close(tip.changed)

	if m.cfg.ProgressLogger != nil {
		m.cfg.ProgressLogger.LogBlock(block)
	}
	log.Infof("Block submitted via CPU miner accepted (hash %s, height %d, "+
		"nonce %s)", hex.EncodeToString(block.Hash[:]), block.Height,
		&block.Nonce)
	return true
}

// solveBlock searches the nonces of the provided tip in the order they are
// handed out until one of them yields a solution that satisfies the difficulty
// target.  The returned block is ready for submission.
//
// errStaleTip is returned once another block extended the tip and the error of
// the provided context once it is cancelled.
func (m *CPUMiner) solveBlock(ctx context.Context, tip *chainTip, stats *speedStats) (*mining.Block, error) {
	// Stop the solver as soon as the tip changes.
	solveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-tip.changed:
			cancel()
		case <-solveCtx.Done():
		}
	}()

	for {
		nonce, ok := m.nextNonce(tip)
		if !ok {
			return nil, errStaleTip
		}

		start := time.Now()
		attempt, err := mining.SearchNonce(solveCtx, m.oracle, &tip.prevHash,
			&nonce, m.cfg.Difficulty, m.cfg.Solver)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return nil, ctx.Err()
			case solveCtx.Err() != nil:
				return nil, errStaleTip
			}
			return nil, err
		}
		stats.totalNonces.Add(1)
		stats.elapsedMicros.Add(uint64(time.Since(start).Microseconds()))

		if m.cfg.ProgressLogger != nil {
			m.cfg.ProgressLogger.LogAttempt(attempt, false)
		}
		if attempt.Block == nil {
			continue
		}

		block := attempt.Block
		block.Height = tip.height + 1
		block.SolveTime = time.Since(tip.started)
		return block, nil
	}
}

// generateBlocks is a worker that is controlled by the miningWorkerController.
//
// It repeatedly solves blocks extending the current tip and submits them while
// automatically switching to the new tip whenever a block is accepted.
//
// It must be run as a goroutine.
func (m *CPUMiner) generateBlocks(ctx context.Context, workerID uint64) {
	log.Trace("Starting generate blocks worker")
	defer func() {
		m.workerWg.Done()
		log.Trace("Generate blocks worker done")
	}()

	// Create a new state for tracking speed stats and add it to the global
	// map that the speed monitor periodically polls.
	var speedStats speedStats
	m.Lock()
	m.speedStats[workerID] = &speedStats
	m.Unlock()
	defer func() {
		m.Lock()
		delete(m.speedStats, workerID)
		m.Unlock()
	}()

	for ctx.Err() == nil {
		tip := m.currentTip()
		block, err := m.solveBlock(ctx, tip, &speedStats)
		switch {
		case errors.Is(err, errStaleTip):
			continue

		case errors.Is(err, mining.ErrExhaustedNonceSpace):
			// Nothing left to try until another worker extends the tip.
			log.Errorf("Worker %d stopped solving: %v", workerID, err)
			select {
			case <-tip.changed:
			case <-ctx.Done():
			}
			continue

		case err != nil:
			if ctx.Err() == nil {
				log.Errorf("Unexpected error while solving block: %v", err)
			}
			return
		}

		// Avoid submitting any solutions that might have been found in
		// between the time the worker was signalled to stop and it actually
		// stopping.
		if ctx.Err() != nil {
			return
		}
		m.submitBlock(block)
	}
}

// miningWorkerController launches the worker goroutines that are used to
// solve blocks.  It also provides the ability to dynamically adjust the number
// of running worker goroutines.
//
// It must be run as a goroutine.
func (m *CPUMiner) miningWorkerController(ctx context.Context) {
	// launchWorker groups common code to launch a worker for solving blocks.
	type workerState struct {
		cancel context.CancelFunc
	}
	var curWorkerID uint64
	var runningWorkers []workerState
	launchWorker := func() {
		wCtx, wCancel := context.WithCancel(ctx)
		runningWorkers = append(runningWorkers, workerState{
			cancel: wCancel,
		})

		m.workerWg.Add(1)
		go m.generateBlocks(wCtx, curWorkerID)
		curWorkerID++
	}

out:
	for {
		select {
		// Update the number of running workers.
		case <-m.updateNumWorkers:
			numRunning := uint32(len(runningWorkers))
			numWorkers := m.numWorkers.Load()

			// No change.
			if numWorkers == numRunning {
				continue
			}

			// Add new workers.
			if numWorkers > numRunning {
				numToLaunch := numWorkers - numRunning
				for i := uint32(0); i < numToLaunch; i++ {
					launchWorker()
				}
				log.Debugf("Launched %d %s (%d total running)", numToLaunch,
					pickNoun(uint64(numToLaunch), "worker", "workers"),
					numWorkers)
				continue
			}

			// Signal the most recently created goroutines to exit.
			numToStop := numRunning - numWorkers
			for i := uint32(0); i < numToStop; i++ {
				finalWorkerIdx := numRunning - 1 - i
				runningWorkers[finalWorkerIdx].cancel()
				runningWorkers[finalWorkerIdx].cancel = nil
				runningWorkers = runningWorkers[:finalWorkerIdx]
			}
			log.Debugf("Stopped %d %s (%d total running)", numToStop,
				pickNoun(uint64(numToStop), "worker", "workers"), numWorkers)

		case <-ctx.Done():
			// Signal all of the workers to shut down.
			for _, state := range runningWorkers {
				state.cancel()
			}
			break out
		}
	}

	// Wait until all workers shut down.
	m.workerWg.Wait()
	m.wg.Done()
}

// Run starts the CPU miner with zero workers which means it will be idle. It
// blocks until the provided context is cancelled.
//
// Use the SetNumWorkers method to start solving blocks in the normal mining
// mode.
func (m *CPUMiner) Run(ctx context.Context) {
	log.Trace("Starting CPU miner in idle state")

	m.wg.Add(3)
	go m.speedMonitor(ctx)
	go m.miningWorkerController(ctx)
	go func(ctx context.Context) {
		<-ctx.Done()
		close(m.quit)
		m.wg.Done()
	}(ctx)

	m.wg.Wait()
	log.Trace("CPU miner stopped")
}

// IsMining returns whether or not the CPU miner is currently mining in either
// the normal or discrete mining modes.
//
// This function is safe for concurrent access.
func (m *CPUMiner) IsMining() bool {
	m.Lock()
	defer m.Unlock()

	return m.normalMining || m.discreteMining
}

// SolvesPerSecond returns the number of nonces per second the normal mode
// mining process is running the solver for.  0 is returned if the miner is not
// currently mining anything in normal mining mode.
//
// This function is safe for concurrent access.
func (m *CPUMiner) SolvesPerSecond() float64 {
	m.Lock()
	defer m.Unlock()

	// Nothing to do if the miner is not currently mining anything.
	if !m.normalMining {
		return 0
	}

	var solvesPerSec float64
	select {
	case sps := <-m.querySolvesPerSec:
		solvesPerSec = sps
	case <-m.quit:
	}

	return solvesPerSec
}

// SetNumWorkers sets the number of workers to create for solving blocks in the
// normal mining mode.  Negative values cause the default number of workers to
// be used, values larger than the max allowed are limited to the max, and a
// value of 0 causes all normal mode CPU mining to be stopped.
//
// NOTE: This will have no effect if discrete mining mode is currently active
// via GenerateNBlocks.
//
// This function is safe for concurrent access.
func (m *CPUMiner) SetNumWorkers(numWorkers int32) {
	m.Lock()
	defer m.Unlock()

	// Ignore when the miner is in discrete mode
	if m.discreteMining {
		return
	}

	// Use default number of workers if the provided value is negative or limit
	// it to the maximum allowed if needed.
	targetNumWorkers := uint32(numWorkers)
	if numWorkers < 0 {
		targetNumWorkers = defaultNumWorkers
	} else if targetNumWorkers > MaxNumWorkers {
		targetNumWorkers = MaxNumWorkers
	}
	m.numWorkers.Store(targetNumWorkers)

	// Set the normal mining state accordingly.  Progress is measured from the
	// moment mining starts.
	if !m.normalMining && targetNumWorkers != 0 {
		m.resetProgress()
	}
	m.normalMining = targetNumWorkers != 0

	// Notify the controller about the change.
	select {
	case m.updateNumWorkers <- struct{}{}:
	case <-m.quit:
	}
}

// NumWorkers returns the number of workers which are running to solve blocks
// in the normal mining mode.
//
// This function is safe for concurrent access.
func (m *CPUMiner) NumWorkers() int32 {
	return int32(m.numWorkers.Load())
}

// mineTip runs the configured number of discrete workers on the current tip
// until one of them has a block accepted.
func (m *CPUMiner) mineTip(ctx context.Context, stats *speedStats) (*mining.Block, error) {
	numWorkers := max(m.cfg.NumDiscreteWorkers, 1)
	tip := m.currentTip()

	var mtx sync.Mutex
	var accepted *mining.Block
	g, gctx := errgroup.WithContext(ctx)
	for i := uint32(0); i < numWorkers; i++ {
		g.Go(func() error {
			for {
				block, err := m.solveBlock(gctx, tip, stats)
				switch {
				case errors.Is(err, errStaleTip):
					return nil
				case gctx.Err() != nil:
					return nil
				case err != nil:
					return err
				}

				if m.submitBlock(block) {
					mtx.Lock()
					accepted = block
					mtx.Unlock()
					return nil
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if accepted == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, errStaleTip
	}
	return accepted, nil
}

// GenerateNBlocks generates the requested number of blocks in the discrete
// mining mode and returns the generated blocks in the order they extend the
// tip.
//
// Only blocks accepted by the configured ProcessBlock callback count towards
// the requested number, so it is possible for more blocks than requested to
// be solved.
//
// An error with the mining.ErrExhaustedNonceSpace kind is returned when every
// nonce for a tip has been tried.  The blocks generated before that are
// returned along with it, as they are when the context is cancelled.
func (m *CPUMiner) GenerateNBlocks(ctx context.Context, n uint32) ([]*mining.Block, error) {
	// Nothing to do.
	if n == 0 {
		return nil, nil
	}

	// Respond with an error if the miner is already mining.
	m.Lock()
	if m.normalMining {
		m.Unlock()
		return nil, errors.New("miner is already CPU mining -- please set " +
			"the number of workers to 0 before generating discrete blocks")
	}
	if m.discreteMining {
		m.Unlock()
		return nil, errors.New("miner is already discrete mining -- please " +
			"wait until the existing call completes or cancel it")
	}

	m.discreteMining = true
	m.resetProgress()
	m.Unlock()
	defer func() {
		m.Lock()
		m.discreteMining = false
		m.Unlock()
	}()

	log.Tracef("Generating %d blocks", n)

	blocks := make([]*mining.Block, 0, n)
	var stats speedStats
	for uint32(len(blocks)) < n {
		block, err := m.mineTip(ctx, &stats)
		if errors.Is(err, errStaleTip) {
			continue
		}
		if err != nil {
			log.Tracef("Generated %d blocks", len(blocks))
			return blocks, err
		}
		blocks = append(blocks, block)
	}

	log.Tracef("Generated %d blocks", len(blocks))
	return blocks, nil
}

// New returns a new instance of a CPU miner for the provided configuration
// options.
//
// Use Run to initialize the CPU miner and then either use SetNumWorkers with a
// non-zero value to start the normal continuous mining mode or use
// GenerateNBlocks to mine a discrete number of blocks.
//
// See the documentation for CPUMiner type for more details.
func New(cfg *Config) *CPUMiner {
	miner := &CPUMiner{
		cfg:               cfg,
		oracle:            equihash.NewOracle(cfg.Params),
		updateNumWorkers:  make(chan struct{}),
		querySolvesPerSec: make(chan float64),
		speedStats:        make(map[uint64]*speedStats),
		quit:              make(chan struct{}),
		tip: &chainTip{
			prevHash: cfg.PrevHash,
			started:  time.Now(),
			changed:  make(chan struct{}),
		},
	}
	miner.numWorkers.Store(defaultNumWorkers)
	return miner
}
