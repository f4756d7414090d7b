package execution

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"testme/internal/config"
	"testme/internal/discovery"
	"testme/internal/domain"
	"testme/internal/logging"
	"testme/internal/service"
)

// Orchestrator runs discovered tests group by group, wrapping each config
// group in its service lifecycle.
type Orchestrator struct {
	options  *config.Options
	resolver *config.Resolver
	runner   *Runner
	filter   *discovery.Filter
	logger   *zap.Logger

	runID       string
	workDir     string
	stepIn      *bufio.Reader
	stepOut     io.Writer
	debugOut    io.Writer
	newProgress func(total int) Progress
}

// OrchestratorOption configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithRunID fixes the run id instead of generating one
func WithRunID(id string) OrchestratorOption {
	return func(o *Orchestrator) { o.runID = id }
}

// WithWorkDir sets the directory whose manual tests run without being named
func WithWorkDir(dir string) OrchestratorOption {
	return func(o *Orchestrator) { o.workDir = dir }
}

// WithStepIO sets where step mode reads confirmations and writes prompts
func WithStepIO(in io.Reader, out io.Writer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.stepIn = bufio.NewReader(in)
		o.stepOut = out
	}
}

// WithDebugOutput streams test output to w in debug mode
func WithDebugOutput(w io.Writer) OrchestratorOption {
	return func(o *Orchestrator) { o.debugOut = w }
}

// WithProgress creates a progress indicator for each group that runs in
// batches
func WithProgress(fn func(total int) Progress) OrchestratorOption {
	return func(o *Orchestrator) { o.newProgress = fn }
}

// NewOrchestrator creates an Orchestrator
func NewOrchestrator(opts *config.Options, resolver *config.Resolver, runner *Runner, logger *zap.Logger, options ...OrchestratorOption) *Orchestrator {
	if opts == nil {
		opts = config.New()
	}
	o := &Orchestrator{
		options:  opts,
		resolver: resolver,
		runner:   runner,
		filter:   discovery.NewFilter(),
		logger:   logging.OrNop(logger),
		stepOut:  os.Stderr,
		debugOut: os.Stdout,
	}
	if wd, err := os.Getwd(); err == nil {
		o.workDir = wd
	}
	for _, opt := range options {
		opt(o)
	}
	if o.runID == "" {
		o.runID = uuid.New().String()
	}
	if o.stepIn == nil {
		o.stepIn = bufio.NewReader(os.Stdin)
	}
	return o
}

// RunID identifies this invocation
func (o *Orchestrator) RunID() string {
	return o.runID
}

// plannedGroup is a config group and the tests it will run
type plannedGroup struct {
	dir    string
	cfg    *config.Resolved
	tests  []domain.TestFile
	err    error
	reason string
}

func (g *plannedGroup) runnable() bool {
	return g.err == nil && g.reason == "" && len(g.tests) > 0
}

// Run executes tests and returns the summary. Groups run one at a time in
// the order their first test was discovered. A group whose config fails to
// load or whose lifecycle fails is recorded and the run continues. Once ctx
// is cancelled no new group, test or batch starts, but cleanup still runs.
func (o *Orchestrator) Run(ctx context.Context, tests []domain.TestFile) (*domain.Summary, error) {
	start := time.Now()
	summary := &domain.Summary{RunID: o.runID}
	groups := o.plan(tests)

	var globalDirs []string
	for _, g := range groups {
		if g.runnable() {
			globalDirs = append(globalDirs, g.dir)
		}
	}
	var globalCfg *config.Resolved
	if dir := service.ShallowestConfigDir(globalDirs); dir != "" {
		for _, g := range groups {
			if g.runnable() && g.dir == dir {
				globalCfg = g.cfg
				break
			}
		}
	}
	globals := service.NewGlobals(globalCfg, o.runInfo(), o.logger)

	for _, g := range groups {
		if g.err == nil && len(g.tests) == 0 {
			continue
		}
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}
		result := o.runGroup(ctx, g, globals, summary)
		summary.Add(result)
	}

	success := summary.Failed == 0 && summary.Errors == 0 && summary.GroupErrors == 0
	if err := globals.Cleanup(ctx, success); err != nil {
		o.logger.Warn("global cleanup failed", zap.String("dir", globals.ConfigDir()), zap.Error(err))
	}
	summary.GlobalPhases = globals.Phases()
	if ctx.Err() != nil {
		summary.Interrupted = true
	}
	summary.Duration = time.Since(start)
	return summary, nil
}

// plan groups tests by config directory and applies enable and depth
func (o *Orchestrator) plan(tests []domain.TestFile) []*plannedGroup {
	var groups []*plannedGroup
	index := make(map[string]*plannedGroup)
	for _, test := range tests {
		dir := o.resolver.ConfigDir(test.Dir)
		g, ok := index[dir]
		if !ok {
			g = &plannedGroup{dir: dir}
			g.cfg, g.err = o.resolver.Resolve(test.Dir)
			index[dir] = g
			groups = append(groups, g)
		}
		test.ConfigDir = dir
		g.tests = append(g.tests, test)
	}

	for _, g := range groups {
		if g.err != nil {
			continue
		}
		switch g.cfg.Enable {
		case config.EnableOff:
			g.reason = "disabled by configuration"
			continue
		case config.EnableManual:
			g.tests = o.manualTests(g.tests)
		}
		if g.cfg.Depth > o.options.Depth {
			g.reason = fmt.Sprintf("requires depth %d (current %d)", g.cfg.Depth, o.options.Depth)
		}
	}
	return groups
}

// manualTests keeps the tests named explicitly or living in the working
// directory
func (o *Orchestrator) manualTests(tests []domain.TestFile) []domain.TestFile {
	var out []domain.TestFile
	for _, test := range tests {
		if o.filter.Explicit(test, o.options.Patterns) || sameDir(test.Dir, o.workDir) {
			test.IsManual = true
			out = append(out, test)
		}
	}
	return out
}

func sameDir(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return filepath.Clean(a) == filepath.Clean(b)
}

func (o *Orchestrator) runInfo() service.RunInfo {
	return service.RunInfo{
		RunID:      o.runID,
		Platform:   o.resolver.Platform(),
		Verbose:    o.options.Verbose,
		Quiet:      o.options.Quiet,
		Keep:       o.options.Keep,
		Depth:      o.options.Depth,
		Iterations: max(o.options.Iterations, 1),
		Duration:   o.options.Duration,
		Class:      o.options.Class,
	}
}

func skippedResults(tests []domain.TestFile) []domain.TestResult {
	results := make([]domain.TestResult, 0, len(tests))
	for _, test := range tests {
		results = append(results, domain.TestResult{File: test, Status: domain.StatusSkipped})
	}
	return results
}

func (o *Orchestrator) runGroup(ctx context.Context, g *plannedGroup, globals *service.Globals, summary *domain.Summary) domain.GroupResult {
	log := o.logger.With(zap.String("group", g.dir))
	result := domain.GroupResult{ConfigDir: g.dir, State: domain.StateIdle}

	switch {
	case g.err != nil:
		log.Error("loading config", zap.Error(g.err))
		result.State = domain.StateAborted
		result.Error = g.err.Error()
		return result
	case g.reason != "":
		log.Info("group skipped", zap.String("reason", g.reason))
		result.State = domain.StateSkipped
		result.SkipReason = g.reason
		result.Results = skippedResults(g.tests)
		return result
	}

	group := service.NewGroup(g.cfg, o.runInfo(), globals, o.logger)
	err := group.Start(ctx)
	if errors.Is(err, service.ErrSkipped) {
		result.State = group.State()
		result.SkipReason = service.SkipReason(err)
		result.Results = skippedResults(g.tests)
		result.Phases = group.Phases()
		return result
	}

	if err != nil {
		log.Error("group lifecycle failed", zap.Error(err))
		result.Error = err.Error()
	} else {
		result.Results = o.runTests(ctx, g, group, summary)
	}

	passed := err == nil
	for _, r := range result.Results {
		if r.Status == domain.StatusFailed || r.Status == domain.StatusError {
			passed = false
		}
	}
	// cleanup is best effort, its failure shows in the phases only
	if stopErr := group.Stop(ctx, passed); stopErr != nil {
		log.Warn("group cleanup failed", zap.Error(stopErr))
	}
	result.State = group.State()
	result.Phases = group.Phases()
	return result
}

func (o *Orchestrator) runTests(ctx context.Context, g *plannedGroup, group *service.Group, summary *domain.Summary) []domain.TestResult {
	ex := g.cfg.Execution
	debug := o.options.Debug
	opts := PoolOptions{
		Workers:       ex.Workers,
		Iterations:    ex.Iterations,
		StopOnFailure: ex.StopOnFailure,
		Sequential:    !ex.Parallel || o.options.Step || debug || ex.Workers <= 1,
	}
	summary.Workers = max(summary.Workers, ex.Workers)

	pool := NewWorkerPool(NewBatchScheduler(), o.logger)
	if o.newProgress != nil && !opts.Sequential {
		pool.SetProgress(o.newProgress(len(g.tests) * max(opts.Iterations, 1)))
	}
	defer pool.Finish()

	run := func(ctx context.Context, test domain.TestFile, iteration int) domain.TestResult {
		if o.options.Step && !o.confirmStep(test) {
			return domain.TestResult{File: test, Status: domain.StatusSkipped, Iteration: iteration}
		}
		job := &Job{
			File:      test,
			Config:    g.cfg,
			Env:       group.Env(test.Dir),
			Timeout:   ex.Timeout,
			Iteration: iteration,
			Debug:     debug,
		}
		if debug {
			job.Timeout = 0
			job.Stdout = o.debugOut
			job.Stderr = o.debugOut
		}
		// running tests are never killed by an interrupt
		return o.runner.Run(context.WithoutCancel(ctx), job)
	}

	results, interrupted := pool.Execute(ctx, g.tests, opts, run)
	pruneArtifactRoots(g.tests)
	if interrupted {
		summary.Interrupted = true
	}
	return results
}

// confirmStep waits for Enter. Typing "s" skips the test.
func (o *Orchestrator) confirmStep(test domain.TestFile) bool {
	fmt.Fprintf(o.stepOut, "%s %s %s ", color.CyanString("step"), test.RelPath, color.HiBlackString("[Enter to run, s to skip]"))
	line, err := o.stepIn.ReadString('\n')
	if err != nil && line == "" {
		return true
	}
	return line != "s\n" && line != "s\r\n"
}
