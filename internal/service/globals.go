package service

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"testme/internal/config"
	"testme/internal/domain"
	"testme/internal/logging"
	"testme/internal/process"
)

// Globals runs globalPrep and globalCleanup once per invocation, using the
// config of the shallowest config directory that has tests to run.
type Globals struct {
	cfg    *config.Resolved
	run    RunInfo
	logger *zap.Logger

	mu       sync.Mutex
	prepared bool
	prepErr  error
	cleaned  bool
	phases   []domain.PhaseResult
}

// NewGlobals creates the coordinator. cfg may be nil, which makes both
// scripts no-ops.
func NewGlobals(cfg *config.Resolved, run RunInfo, logger *zap.Logger) *Globals {
	return &Globals{cfg: cfg, run: run, logger: logging.OrNop(logger)}
}

// ShallowestConfigDir returns the directory with the fewest path segments.
// Ties keep the first one given; empty entries are ignored.
func ShallowestConfigDir(dirs []string) string {
	best := ""
	bestDepth := -1
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		depth := pathDepth(dir)
		if bestDepth < 0 || depth < bestDepth {
			best, bestDepth = dir, depth
		}
	}
	return best
}

func pathDepth(dir string) int {
	clean := filepath.ToSlash(filepath.Clean(dir))
	clean = strings.Trim(clean, "/")
	if clean == "" {
		return 0
	}
	return strings.Count(clean, "/") + 1
}

// ConfigDir returns the directory whose global scripts run, "" for none
func (g *Globals) ConfigDir() string {
	if g == nil || g.cfg == nil {
		return ""
	}
	return g.cfg.ConfigDir
}

// Phases returns the global scripts run so far
func (g *Globals) Phases() []domain.PhaseResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.PhaseResult(nil), g.phases...)
}

// Prep runs globalPrep the first time it is called and returns its error on
// every call.
func (g *Globals) Prep(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.prepared {
		return g.prepErr
	}
	g.prepared = true
	if g.cfg == nil || !g.cfg.Services.GlobalPrep.Configured() {
		return nil
	}
	g.prepErr = g.runLocked(ctx, domain.StateGlobalPrep, g.cfg.Services.GlobalPrep, nil)
	return g.prepErr
}

// Cleanup runs globalCleanup once, after all groups, when Prep was reached.
// It runs even when ctx is cancelled.
func (g *Globals) Cleanup(ctx context.Context, success bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cleaned || !g.prepared {
		return nil
	}
	g.cleaned = true
	if g.cfg == nil || !g.cfg.Services.GlobalCleanup.Configured() {
		return nil
	}
	extra := map[string]string{"TESTME_SUCCESS": flag(success)}
	err := g.runLocked(context.WithoutCancel(ctx), domain.StateGlobalCleanup, g.cfg.Services.GlobalCleanup, extra)
	if err != nil {
		g.logger.Warn("global cleanup failed", zap.Error(err))
		return &PhaseError{Phase: domain.StateGlobalCleanup, Err: err}
	}
	return nil
}

func (g *Globals) runLocked(ctx context.Context, phase domain.GroupState, script config.Script, extra map[string]string) error {
	env := Environ(baseEnviron(), g.cfg.Environment, g.run.Vars(g.cfg, ""), extra)
	if g.cfg.Services.EnvFile != "" {
		if vars, err := LoadEnvFile(g.cfg.Services.EnvFile, g.cfg.ConfigDir); err == nil {
			env = Environ(baseEnviron(), g.cfg.Environment, vars, g.run.Vars(g.cfg, ""), extra)
		}
	}
	cmd, err := BuildCommand(script.Command, g.cfg.ConfigDir, env)
	if err != nil {
		return err
	}

	g.logger.Debug("running global script",
		zap.String("phase", string(phase)),
		zap.String("command", cmd.String()))
	res := process.Run(context.WithoutCancel(ctx), cmd, script.Timeout)
	err = scriptError(res, script)

	result := domain.PhaseResult{Phase: phase, Success: err == nil, Output: res.Output, Duration: res.Duration}
	if err != nil {
		result.Error = err.Error()
	}
	g.phases = append(g.phases, result)
	return err
}
