package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"testme/internal/domain"
	"testme/internal/logging"
	"testme/internal/parser"
)

// Runner executes a single test through the adapter for its type
type Runner struct {
	adapters map[domain.TestType]Adapter
	parser   parser.Parser
	logger   *zap.Logger
}

// NewRunner creates a new Runner. p may be nil to skip assertion counting.
func NewRunner(adapters map[domain.TestType]Adapter, p parser.Parser, logger *zap.Logger) *Runner {
	return &Runner{adapters: adapters, parser: p, logger: logging.OrNop(logger)}
}

// Run prepares, executes and cleans up one test. Artifacts are kept when the
// config asks for it or the test did not pass and the run is in debug mode.
func (r *Runner) Run(ctx context.Context, job *Job) domain.TestResult {
	start := time.Now()
	adapter, ok := r.adapters[job.File.Type]
	if !ok {
		return domain.TestResult{
			File:      job.File,
			Status:    domain.StatusError,
			Error:     fmt.Sprintf("no runner for %s tests", job.File.Type),
			Iteration: job.Iteration,
		}
	}

	log := r.logger.With(zap.String("test", job.File.RelPath), zap.Int("iteration", job.Iteration))
	var result domain.TestResult
	if err := adapter.Prepare(ctx, job); err != nil {
		result = prepareFailure(job, err)
		log.Debug("prepare failed", zap.Error(err))
	} else {
		result = adapter.Execute(ctx, job)
	}
	result.Duration = time.Since(start)

	keep := job.Config != nil && job.Config.Execution.KeepArtifacts
	if !keep && !(job.Debug && !result.Success()) {
		if err := adapter.Cleanup(job); err != nil {
			log.Warn("removing artifacts", zap.Error(err))
		}
	}

	if r.parser != nil {
		result.Passed, result.Failed = r.parser.ParseTestCounts(result)
	}
	log.Debug("test finished",
		zap.Stringer("status", result.Status),
		zap.Duration("duration", result.Duration))
	return result
}

func prepareFailure(job *Job, err error) domain.TestResult {
	result := domain.TestResult{
		File:      job.File,
		Status:    domain.StatusError,
		Error:     err.Error(),
		Iteration: job.Iteration,
	}
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		result.Status = domain.StatusFailed
		result.Output = compileErr.Output
	}
	return result
}
