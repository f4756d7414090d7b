package config

import (
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"testme/internal/expand"
	"testme/internal/logging"
	"testme/internal/platform"
)

// Resolver turns a directory into its effective configuration
type Resolver struct {
	options  *Options
	platform platform.Platform
	expander *expand.Expander
	lookPath func(string) (string, error)
	logger   *zap.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	resolved *Resolved
	err      error
}

// ResolverOption customizes a Resolver
type ResolverOption func(*Resolver)

// WithPlatform overrides the detected platform
func WithPlatform(p platform.Platform) ResolverOption {
	return func(r *Resolver) {
		r.platform = p
	}
}

// WithLookPath overrides compiler detection
func WithLookPath(fn func(string) (string, error)) ResolverOption {
	return func(r *Resolver) {
		r.lookPath = fn
	}
}

// WithExpander replaces the variable expander (for an injected environment)
func WithExpander(exp *expand.Expander) ResolverOption {
	return func(r *Resolver) {
		r.expander = exp
	}
}

// NewResolver creates a Resolver. Results are cached per config file for the
// lifetime of the Resolver.
func NewResolver(opts *Options, logger *zap.Logger, options ...ResolverOption) *Resolver {
	if opts == nil {
		opts = New()
	}
	r := &Resolver{
		options:  opts,
		platform: platform.Current(),
		expander: expand.New(expand.WithDeferred(expand.VarCC, expand.VarProfile)),
		logger:   logging.OrNop(logger),
		cache:    make(map[string]cacheEntry),
	}
	for _, o := range options {
		o(r)
	}
	return r
}

// Platform returns the platform configs are blended for
func (r *Resolver) Platform() platform.Platform {
	return r.platform
}

// ConfigPath returns the config file that governs dir, or "" for defaults
func (r *Resolver) ConfigPath(dir string) string {
	if override := r.options.GetConfigFile(); override != "" {
		return override
	}
	return FindConfig(dir)
}

// ConfigDir returns the directory of the config that governs dir, or "" for defaults
func (r *Resolver) ConfigDir(dir string) string {
	path := r.ConfigPath(dir)
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return filepath.Dir(path)
}

// Resolve returns the effective configuration for tests in dir
func (r *Resolver) Resolve(dir string) (*Resolved, error) {
	path := r.ConfigPath(dir)

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.cache[path]; ok {
		return entry.resolved, entry.err
	}

	var file *File
	var err error
	if path != "" {
		file, err = r.loadChain(path)
	}
	var resolved *Resolved
	if err == nil {
		resolved = r.finalize(file)
	}
	r.cache[path] = cacheEntry{resolved: resolved, err: err}
	return resolved, err
}

// loadChain loads path and, when it inherits, its ancestors from the root of
// the chain downward.
func (r *Resolver) loadChain(path string) (*File, error) {
	file, err := Load(path, r.platform, r.expander)
	if err != nil {
		return nil, err
	}
	if file.RawEnv != nil {
		r.logger.Warn("config key \"env\" is deprecated, use \"environment\"", zap.String("config", file.Path))
	}

	keys := file.Inherit.List()
	if len(keys) == 0 {
		return file, nil
	}
	parentPath := FindParentConfig(file.Dir)
	if parentPath == "" {
		r.logger.Debug("inherit requested but no parent config found", zap.String("config", file.Path))
		return file, nil
	}
	parent, err := r.loadChain(parentPath)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("inheriting config",
		zap.String("config", file.Path),
		zap.String("parent", parent.Path),
		zap.Strings("keys", keys))
	return Merge(parent, file, keys), nil
}

// finalize applies defaults, command line overrides and the post-merge
// CC/PROFILE substitution. file may be nil when no config exists.
func (r *Resolver) finalize(file *File) *Resolved {
	if file == nil {
		file = &File{}
	}
	res := &Resolved{
		ConfigDir:  file.Dir,
		ConfigPath: file.Path,
		Enable:     EnableOn,
		Profile:    r.profile(file),
		Debug:      maps.Clone(file.Debug),
	}
	if file.Enable != nil {
		res.Enable = *file.Enable
	}
	if file.Depth != nil {
		res.Depth = *file.Depth
	}

	res.Compiler = r.compiler(file)
	special := map[string]string{
		expand.VarCC:      res.Compiler.C.Compiler,
		expand.VarProfile: res.Profile,
	}
	res.Compiler.C.Flags = specialOnlyAll(res.Compiler.C.Flags, special)
	res.Compiler.C.Libraries = specialOnlyAll(res.Compiler.C.Libraries, special)
	if len(file.Environment) > 0 {
		res.Environment = make(map[string]string, len(file.Environment))
		for k, v := range file.Environment {
			res.Environment[k] = expand.SpecialOnly(v, special)
		}
	}

	res.Execution = r.execution(file.Execution)
	res.Output = r.output(file.Output)
	res.Patterns = patterns(file.Patterns)
	res.Services = services(file.Services)
	return res
}

func (r *Resolver) profile(file *File) string {
	if r.options.Profile != "" {
		return r.options.Profile
	}
	if file.Profile != nil && *file.Profile != "" {
		return *file.Profile
	}
	if env := os.Getenv("PROFILE"); env != "" {
		return env
	}
	return DefaultProfile
}

func (r *Resolver) compiler(file *File) Compiler {
	var out Compiler
	var c *CCompiler
	if file.Compiler != nil {
		c = file.Compiler.C
		if file.Compiler.Es != nil {
			out.Es.Require = slices.Clone(file.Compiler.Es.Require)
		}
	}

	name := ""
	if c != nil {
		name = c.Compiler.For(r.platform)
	}
	if name == "" {
		name = platform.DetectCompiler(r.platform, r.lookPath)
	}
	out.C.Compiler = name
	if fs := c.FlagSet(name); fs != nil {
		out.C.Flags = slices.Clone(fs.Flags)
		out.C.Libraries = slices.Clone(fs.Libraries)
	}
	return out
}

func (r *Resolver) execution(s *ExecutionSection) Execution {
	out := Execution{
		Timeout:    DefaultTimeout,
		Parallel:   true,
		Workers:    runtime.NumCPU(),
		Iterations: DefaultIterations,
	}
	if s != nil {
		if s.Timeout != nil {
			out.Timeout = seconds(*s.Timeout)
		}
		if s.Parallel != nil {
			out.Parallel = *s.Parallel
		}
		if s.Workers != nil && *s.Workers > 0 {
			out.Workers = *s.Workers
		}
		if s.Iterations != nil && *s.Iterations > 0 {
			out.Iterations = *s.Iterations
		}
		if s.StopOnFailure != nil {
			out.StopOnFailure = *s.StopOnFailure
		}
		if s.KeepArtifacts != nil {
			out.KeepArtifacts = *s.KeepArtifacts
		}
	}

	o := r.options
	if o.Timeout > 0 {
		out.Timeout = o.Timeout
	}
	if o.Workers > 0 {
		out.Workers = o.Workers
	}
	if o.Iterations > 0 {
		out.Iterations = o.Iterations
	}
	if o.Stop {
		out.StopOnFailure = true
	}
	if o.Keep {
		out.KeepArtifacts = true
	}
	return out
}

func (r *Resolver) output(s *OutputSection) Output {
	out := Output{Format: DefaultFormat, Colors: true}
	if s != nil {
		if s.Verbose != nil {
			out.Verbose = *s.Verbose
		}
		if s.Format != nil && *s.Format != "" {
			out.Format = *s.Format
		}
		if s.Colors != nil {
			out.Colors = *s.Colors
		}
	}
	if r.options.Verbose {
		out.Verbose = true
	}
	if r.options.Format != "" {
		out.Format = r.options.Format
	}
	if r.options.NoColor {
		out.Colors = false
	}
	return out
}

func patterns(s *PatternSection) Patterns {
	if s == nil || len(s.Include) == 0 {
		out := Patterns{Include: slices.Clone(DefaultInclude)}
		if s != nil {
			out.Exclude = slices.Clone(s.Exclude)
		}
		return out
	}
	return Patterns{
		Include: slices.Clone(s.Include),
		Exclude: slices.Clone(s.Exclude),
	}
}

func services(s *ServiceSection) Services {
	out := Services{
		Delay:    DefaultSetupDelay,
		Shutdown: DefaultShutdownTimeout,
	}
	if s == nil {
		return out
	}
	out.Skip = script(s.Skip, s.SkipTimeout)
	out.Environment = script(s.Environment, s.EnvironmentTimeout)
	out.GlobalPrep = script(s.GlobalPrep, s.GlobalPrepTimeout)
	out.Prep = script(s.Prep, s.PrepTimeout)
	out.Setup = script(s.Setup, s.SetupTimeout)
	out.Cleanup = script(s.Cleanup, s.CleanupTimeout)
	out.GlobalCleanup = script(s.GlobalCleanup, s.GlobalCleanupTimeout)
	if s.EnvFile != nil {
		out.EnvFile = *s.EnvFile
	}
	if s.Delay != nil {
		out.Delay = seconds(*s.Delay)
	}
	if s.ShutdownTimeout != nil {
		out.Shutdown = seconds(*s.ShutdownTimeout)
	}
	if s.HealthCheck != nil && s.HealthCheck.Type != nil {
		out.HealthCheck = healthCheck(s.HealthCheck)
	}
	return out
}

func script(command *string, timeout *float64) Script {
	out := Script{Timeout: DefaultScriptTimeout}
	if command != nil {
		out.Command = *command
	}
	if timeout != nil && *timeout > 0 {
		out.Timeout = seconds(*timeout)
	}
	return out
}

func healthCheck(s *HealthCheckSection) *HealthCheck {
	out := &HealthCheck{
		Type:           *s.Type,
		ExpectedStatus: DefaultExpectedStatus,
		Host:           "localhost",
		Interval:       DefaultHealthInterval,
		Timeout:        DefaultHealthTimeout,
	}
	str := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	num := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	str(&out.URL, s.URL)
	str(&out.ExpectedBody, s.ExpectedBody)
	str(&out.Host, s.Host)
	str(&out.Command, s.Command)
	str(&out.Path, s.Path)
	str(&out.DSN, s.DSN)
	num(&out.ExpectedStatus, s.ExpectedStatus)
	num(&out.Port, s.Port)
	num(&out.ExpectedExit, s.ExpectedExit)
	if s.Interval != nil && *s.Interval > 0 {
		out.Interval = time.Duration(*s.Interval * float64(time.Millisecond))
	}
	if s.Timeout != nil && *s.Timeout > 0 {
		out.Timeout = seconds(*s.Timeout)
	}
	return out
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func specialOnlyAll(values []string, special map[string]string) []string {
	for i, v := range values {
		values[i] = expand.SpecialOnly(v, special)
	}
	return values
}
