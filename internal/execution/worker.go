package execution

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"testme/internal/domain"
	"testme/internal/logging"
)

// TestFunc runs one iteration of a test
type TestFunc func(ctx context.Context, file domain.TestFile, iteration int) domain.TestResult

// Progress receives pass/fail counts as tests finish
type Progress interface {
	Update(passed, failed int)
	Finish()
}

// PoolOptions controls how a group's tests are dispatched
type PoolOptions struct {
	Workers       int
	Iterations    int
	StopOnFailure bool
	// Sequential runs one test at a time regardless of Workers
	Sequential bool
}

// WorkerPool runs tests one at a time or in fixed-size batches
type WorkerPool struct {
	scheduler Scheduler
	progress  Progress
	logger    *zap.Logger

	mu     sync.Mutex
	passed int
	failed int
}

// NewWorkerPool creates a new WorkerPool
func NewWorkerPool(scheduler Scheduler, logger *zap.Logger) *WorkerPool {
	if scheduler == nil {
		scheduler = NewBatchScheduler()
	}
	return &WorkerPool{scheduler: scheduler, logger: logging.OrNop(logger)}
}

// SetProgress sets the progress indicator for the worker pool
func (wp *WorkerPool) SetProgress(progress Progress) {
	wp.progress = progress
}

// Execute runs every test opts.Iterations times and returns the results in
// test order. ctx is checked before each sequential test and each batch;
// tests already running are never interrupted. It reports whether ctx
// stopped the run early.
func (wp *WorkerPool) Execute(ctx context.Context, tests []domain.TestFile, opts PoolOptions, run TestFunc) ([]domain.TestResult, bool) {
	if len(tests) == 0 {
		return nil, false
	}
	if opts.Iterations <= 0 {
		opts.Iterations = 1
	}

	var stop atomic.Bool
	if opts.Sequential || opts.Workers <= 1 {
		var results []domain.TestResult
		for _, test := range tests {
			if ctx.Err() != nil {
				return results, true
			}
			if stop.Load() {
				break
			}
			results = append(results, wp.iterate(ctx, test, opts, run, &stop)...)
		}
		return results, false
	}

	var results []domain.TestResult
	for i, batch := range wp.scheduler.Schedule(tests, opts.Workers) {
		if ctx.Err() != nil {
			return results, true
		}
		if stop.Load() {
			break
		}
		wp.logger.Debug("dispatching batch", zap.Int("batch", i+1), zap.Int("size", len(batch)))

		slots := make([][]domain.TestResult, len(batch))
		var g errgroup.Group
		for j, test := range batch {
			g.Go(func() error {
				slots[j] = wp.iterate(ctx, test, opts, run, &stop)
				return nil
			})
		}
		_ = g.Wait()
		for _, slot := range slots {
			results = append(results, slot...)
		}
	}
	return results, false
}

// iterate runs one test up to opts.Iterations times. Iterations of the same
// test never overlap since they share an artifact directory.
func (wp *WorkerPool) iterate(ctx context.Context, test domain.TestFile, opts PoolOptions, run TestFunc, stop *atomic.Bool) []domain.TestResult {
	var results []domain.TestResult
	for it := 1; it <= opts.Iterations; it++ {
		if ctx.Err() != nil || (opts.StopOnFailure && stop.Load()) {
			break
		}
		result := run(ctx, test, it)
		results = append(results, result)
		if !result.Success() && opts.StopOnFailure {
			stop.Store(true)
		}
		wp.record(result)
	}
	return results
}

func (wp *WorkerPool) record(result domain.TestResult) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if result.Success() {
		wp.passed++
	} else {
		wp.failed++
	}
	if wp.progress != nil {
		wp.progress.Update(wp.passed, wp.failed)
	}
}

// Finish completes the progress indicator
func (wp *WorkerPool) Finish() {
	if wp.progress != nil {
		wp.progress.Finish()
	}
}
