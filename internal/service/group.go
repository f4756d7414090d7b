// Package service runs the lifecycle scripts around a config group's tests:
// skip check, environment, prep, a background setup service with its health
// check, and cleanup.
package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"testme/internal/config"
	"testme/internal/domain"
	"testme/internal/logging"
	"testme/internal/process"
)

var (
	// LivenessDelay is waited after setup starts before checking it is alive
	LivenessDelay = 100 * time.Millisecond
	// LivenessWindow is how long setup must survive after LivenessDelay
	LivenessWindow = 500 * time.Millisecond
)

// Group runs the lifecycle of one config group. It exclusively owns the setup
// process and terminates it at most once.
type Group struct {
	cfg     *config.Resolved
	run     RunInfo
	globals *Globals
	logger  *zap.Logger

	mu             sync.Mutex
	state          domain.GroupState
	env            map[string]string
	phases         []domain.PhaseResult
	healthAttempts int

	setup    *process.Process
	setupAt  time.Time
	stopOnce sync.Once
	stopErr  error
}

// NewGroup creates a Group for cfg. globals may be nil when no global
// scripts apply.
func NewGroup(cfg *config.Resolved, run RunInfo, globals *Globals, logger *zap.Logger) *Group {
	return &Group{
		cfg:     cfg,
		run:     run,
		globals: globals,
		logger:  logging.OrNop(logger).With(zap.String("group", cfg.ConfigDir)),
		state:   domain.StateIdle,
		env:     maps.Clone(cfg.Environment),
	}
}

// State returns the lifecycle state reached so far
func (g *Group) State() domain.GroupState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Group) setState(s domain.GroupState) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
	g.logger.Debug("lifecycle", zap.String("state", string(s)))
}

// Phases returns the scripts run so far with their timings
func (g *Group) Phases() []domain.PhaseResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.PhaseResult(nil), g.phases...)
}

// HealthAttempts returns how many health check attempts were made
func (g *Group) HealthAttempts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.healthAttempts
}

// Env returns the environment for a test in testDir: the process
// environment, the config environment, the env file, the environment script
// output and the TESTME_* variables, in increasing precedence.
func (g *Group) Env(testDir string) []string {
	g.mu.Lock()
	dynamic := maps.Clone(g.env)
	g.mu.Unlock()
	return Environ(baseEnviron(), dynamic, g.run.Vars(g.cfg, testDir))
}

// Start runs the skip check through the health check. It returns an error
// wrapping ErrSkipped when the group should not run, or a *PhaseError when a
// phase failed. Stop must be called either way.
func (g *Group) Start(ctx context.Context) error {
	err := g.start(ctx)
	if err != nil && !errors.Is(err, ErrSkipped) {
		g.setState(domain.StateAborted)
	}
	return err
}

func (g *Group) start(ctx context.Context) error {
	services := g.cfg.Services

	g.setState(domain.StateSkipCheck)
	if services.Skip.Configured() {
		res, err := g.runScript(ctx, domain.StateSkipCheck, services.Skip, nil)
		if err != nil {
			return &PhaseError{Phase: domain.StateSkipCheck, Err: err}
		}
		if !res.Success() {
			g.setState(domain.StateSkipped)
			reason := strings.TrimSpace(res.Output)
			g.logger.Info("group skipped", zap.String("reason", reason))
			return &skipError{reason: reason}
		}
	}

	if err := g.checkStop(ctx, domain.StateEnvironment); err != nil {
		return err
	}
	g.setState(domain.StateEnvironment)
	if services.EnvFile != "" {
		vars, err := LoadEnvFile(services.EnvFile, g.cfg.ConfigDir)
		if err != nil {
			return &PhaseError{Phase: domain.StateEnvironment, Err: fmt.Errorf("env file: %w", err)}
		}
		g.mergeEnv(vars)
	}
	if services.Environment.Configured() {
		res, err := g.runScript(ctx, domain.StateEnvironment, services.Environment, nil)
		if err == nil {
			err = scriptError(res, services.Environment)
		}
		if err != nil {
			return &PhaseError{Phase: domain.StateEnvironment, Err: err}
		}
		g.mergeEnv(ParseEnvOutput(res.Output))
	}

	if g.globals != nil {
		if err := g.checkStop(ctx, domain.StateGlobalPrep); err != nil {
			return err
		}
		g.setState(domain.StateGlobalPrep)
		if err := g.globals.Prep(ctx); err != nil {
			return &PhaseError{Phase: domain.StateGlobalPrep, Err: err}
		}
	}

	if services.Prep.Configured() {
		if err := g.checkStop(ctx, domain.StatePrep); err != nil {
			return err
		}
		g.setState(domain.StatePrep)
		res, err := g.runScript(ctx, domain.StatePrep, services.Prep, nil)
		if err == nil {
			err = scriptError(res, services.Prep)
		}
		if err != nil {
			return &PhaseError{Phase: domain.StatePrep, Err: err}
		}
	}

	if services.Setup.Configured() {
		if err := g.checkStop(ctx, domain.StateSetup); err != nil {
			return err
		}
		g.setState(domain.StateSetup)
		if err := g.startSetup(ctx); err != nil {
			return &PhaseError{Phase: domain.StateSetup, Err: err}
		}
	}

	if err := g.checkStop(ctx, domain.StateHealthCheck); err != nil {
		return err
	}
	g.setState(domain.StateHealthCheck)
	if err := g.waitReady(ctx); err != nil {
		return &PhaseError{Phase: domain.StateHealthCheck, Err: err}
	}

	g.setState(domain.StateReady)
	return nil
}

func (g *Group) checkStop(ctx context.Context, phase domain.GroupState) error {
	if err := ctx.Err(); err != nil {
		return &PhaseError{Phase: phase, Err: err}
	}
	return nil
}

func (g *Group) mergeEnv(vars map[string]string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.env == nil {
		g.env = make(map[string]string, len(vars))
	}
	maps.Copy(g.env, vars)
}

// runScript runs a foreground lifecycle script in the config directory.
// Interrupts do not kill a running script; its own timeout does.
func (g *Group) runScript(ctx context.Context, phase domain.GroupState, script config.Script, extra map[string]string) (process.Result, error) {
	env := g.Env("")
	if len(extra) > 0 {
		env = Environ(env, extra)
	}
	cmd, err := BuildCommand(script.Command, g.cfg.ConfigDir, env)
	if err != nil {
		return process.Result{}, err
	}

	g.logger.Debug("running script",
		zap.String("phase", string(phase)),
		zap.String("command", cmd.String()),
		zap.Duration("timeout", script.Timeout))
	res := process.Run(context.WithoutCancel(ctx), cmd, script.Timeout)

	phaseResult := domain.PhaseResult{
		Phase:    phase,
		Success:  res.Success(),
		Output:   res.Output,
		Duration: res.Duration,
	}
	if e := scriptError(res, script); e != nil {
		phaseResult.Error = e.Error()
	}
	g.mu.Lock()
	g.phases = append(g.phases, phaseResult)
	g.mu.Unlock()

	if res.Err != nil && errors.Is(res.Err, process.ErrStart) {
		return res, res.Err
	}
	return res, nil
}

// scriptError describes why a finished script did not succeed
func scriptError(res process.Result, script config.Script) error {
	switch {
	case res.Success():
		return nil
	case res.TimedOut:
		return fmt.Errorf("%q timed out after %s", script.Command, script.Timeout)
	case res.Err != nil:
		return fmt.Errorf("%q: %w", script.Command, res.Err)
	}
	msg := fmt.Sprintf("%q exited with code %d", script.Command, res.ExitCode)
	if out := strings.TrimSpace(res.Output); out != "" {
		msg += ": " + lastLines(out, 5)
	}
	return errors.New(msg)
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func (g *Group) startSetup(ctx context.Context) error {
	cmd, err := BuildCommand(g.cfg.Services.Setup.Command, g.cfg.ConfigDir, g.Env(""))
	if err != nil {
		return err
	}
	g.logger.Debug("starting setup", zap.String("command", cmd.String()))
	proc, err := process.Start(cmd)
	if err != nil {
		return err
	}
	g.mu.Lock()
	g.setup = proc
	g.setupAt = time.Now()
	g.mu.Unlock()

	select {
	case <-time.After(LivenessDelay):
	case <-proc.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-proc.Done():
		msg := fmt.Sprintf("%q exited early with code %d", g.cfg.Services.Setup.Command, proc.ExitCode())
		if out := strings.TrimSpace(proc.Output()); out != "" {
			msg += ": " + lastLines(out, 5)
		}
		return errors.New(msg)
	case <-time.After(LivenessWindow):
	case <-ctx.Done():
		return ctx.Err()
	}
	g.logger.Debug("setup running", zap.Int("pid", proc.Pid()))
	return nil
}

// waitReady polls the health check, or sleeps the setup delay when there is
// none and a setup service was started.
func (g *Group) waitReady(ctx context.Context) error {
	services := g.cfg.Services
	hc := services.HealthCheck
	start := time.Now()

	if hc == nil {
		if g.setup == nil || services.Delay <= 0 {
			return nil
		}
		select {
		case <-time.After(services.Delay):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	checker, err := NewChecker(hc, g.cfg.ConfigDir, g.Env(""))
	if err != nil {
		return err
	}
	attempts, err := Poll(ctx, checker, hc.Interval, hc.Timeout)

	g.mu.Lock()
	g.healthAttempts = attempts
	g.phases = append(g.phases, domain.PhaseResult{
		Phase:    domain.StateHealthCheck,
		Success:  err == nil,
		Duration: time.Since(start),
	})
	g.mu.Unlock()

	if err != nil {
		if g.setup != nil {
			g.setup.Terminate(0)
		}
		return fmt.Errorf("%s health check failed after %s: %w",
			hc.Type, time.Since(start).Round(time.Millisecond), err)
	}
	g.logger.Debug("health check passed",
		zap.String("type", hc.Type),
		zap.Int("attempts", attempts),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Stop terminates the setup service and runs cleanup. It is safe to call
// more than once and from any state; only the first call acts. Cleanup runs
// even when ctx is cancelled. success is exported to cleanup as
// TESTME_SUCCESS.
func (g *Group) Stop(ctx context.Context, success bool) error {
	g.stopOnce.Do(func() {
		g.stopErr = g.stop(context.WithoutCancel(ctx), success)
	})
	return g.stopErr
}

func (g *Group) stop(ctx context.Context, success bool) error {
	state := g.State()
	if state == domain.StateIdle || state == domain.StateSkipped || state == domain.StateSkipCheck {
		return nil
	}

	var errs error
	g.setState(domain.StateCleanup)
	if g.setup != nil {
		start := time.Now()
		forced := g.setup.Terminate(g.cfg.Services.Shutdown)
		g.logger.Debug("setup terminated",
			zap.Bool("forced", forced),
			zap.Duration("elapsed", time.Since(start)))
		g.mu.Lock()
		g.phases = append(g.phases, domain.PhaseResult{
			Phase:    domain.StateSetup,
			Success:  true,
			Output:   g.setup.Output(),
			Duration: time.Since(g.setupAt),
		})
		g.mu.Unlock()
	}

	if g.cfg.Services.Cleanup.Configured() {
		extra := map[string]string{"TESTME_SUCCESS": flag(success)}
		res, err := g.runScript(ctx, domain.StateCleanup, g.cfg.Services.Cleanup, extra)
		if err == nil {
			err = scriptError(res, g.cfg.Services.Cleanup)
		}
		if err != nil {
			g.logger.Warn("cleanup failed", zap.Error(err))
			errs = multierr.Append(errs, &PhaseError{Phase: domain.StateCleanup, Err: err})
		}
	}

	if state == domain.StateAborted {
		g.setState(domain.StateAborted)
	} else {
		g.setState(domain.StateDone)
	}
	return errs
}
