package config

import "maps"

// Merge returns child with the listed keys inherited from parent. Objects
// merge key by key with the child winning, arrays are parent items followed by
// child items, scalars come from the child when set. Neither input is modified.
func Merge(parent, child *File, keys []string) *File {
	if child == nil {
		return nil
	}
	out := *child
	if parent == nil {
		return &out
	}

	for _, key := range keys {
		switch key {
		case KeyEnable:
			out.Enable = pick(child.Enable, parent.Enable)
		case KeyDepth:
			out.Depth = pick(child.Depth, parent.Depth)
		case KeyProfile:
			out.Profile = pick(child.Profile, parent.Profile)
		case KeyCompiler:
			out.Compiler = mergeCompiler(parent.Compiler, child.Compiler)
		case KeyDebug:
			out.Debug = mergeMap(parent.Debug, child.Debug)
		case KeyExecution:
			out.Execution = mergeExecution(parent.Execution, child.Execution)
		case KeyOutput:
			out.Output = mergeOutput(parent.Output, child.Output)
		case KeyPatterns:
			out.Patterns = mergePatterns(parent.Patterns, child.Patterns)
		case KeyServices:
			out.Services = mergeServices(parent.Services, child.Services)
		case KeyEnvironment:
			out.Environment = mergeMap(parent.Environment, child.Environment)
		}
	}
	return &out
}

func pick[T any](child, parent *T) *T {
	if child != nil {
		return child
	}
	return parent
}

func concat(parent, child []string) []string {
	if parent == nil && child == nil {
		return nil
	}
	out := make([]string, 0, len(parent)+len(child))
	out = append(out, parent...)
	return append(out, child...)
}

func mergeMap(parent, child map[string]string) map[string]string {
	if parent == nil && child == nil {
		return nil
	}
	out := maps.Clone(parent)
	if out == nil {
		out = make(map[string]string, len(child))
	}
	maps.Copy(out, child)
	return out
}

func mergeCompiler(parent, child *CompilerSection) *CompilerSection {
	if parent == nil || child == nil {
		return pick(child, parent)
	}
	return &CompilerSection{
		C:  mergeCCompiler(parent.C, child.C),
		Es: mergeEs(parent.Es, child.Es),
	}
}

func mergeCCompiler(parent, child *CCompiler) *CCompiler {
	if parent == nil || child == nil {
		return pick(child, parent)
	}
	return &CCompiler{
		Compiler: mergeChoice(parent.Compiler, child.Compiler),
		GCC:      mergeFlagSet(parent.GCC, child.GCC),
		Clang:    mergeFlagSet(parent.Clang, child.Clang),
		MSVC:     mergeFlagSet(parent.MSVC, child.MSVC),
	}
}

func mergeChoice(parent, child *CompilerChoice) *CompilerChoice {
	if parent == nil || child == nil {
		return pick(child, parent)
	}
	out := *parent
	if child.Default != "" {
		out.Default = child.Default
	}
	if child.Windows != "" {
		out.Windows = child.Windows
	}
	if child.MacOS != "" {
		out.MacOS = child.MacOS
	}
	if child.Linux != "" {
		out.Linux = child.Linux
	}
	return &out
}

func mergeFlagSet(parent, child *FlagSet) *FlagSet {
	if parent == nil || child == nil {
		return pick(child, parent)
	}
	return &FlagSet{
		Flags:     concat(parent.Flags, child.Flags),
		Libraries: concat(parent.Libraries, child.Libraries),
	}
}

func mergeEs(parent, child *EsCompiler) *EsCompiler {
	if parent == nil || child == nil {
		return pick(child, parent)
	}
	return &EsCompiler{Require: concat(parent.Require, child.Require)}
}

func mergeExecution(parent, child *ExecutionSection) *ExecutionSection {
	if parent == nil || child == nil {
		return pick(child, parent)
	}
	return &ExecutionSection{
		Timeout:       pick(child.Timeout, parent.Timeout),
		Parallel:      pick(child.Parallel, parent.Parallel),
		Workers:       pick(child.Workers, parent.Workers),
		Iterations:    pick(child.Iterations, parent.Iterations),
		StopOnFailure: pick(child.StopOnFailure, parent.StopOnFailure),
		KeepArtifacts: pick(child.KeepArtifacts, parent.KeepArtifacts),
	}
}

func mergeOutput(parent, child *OutputSection) *OutputSection {
	if parent == nil || child == nil {
		return pick(child, parent)
	}
	return &OutputSection{
		Verbose: pick(child.Verbose, parent.Verbose),
		Format:  pick(child.Format, parent.Format),
		Colors:  pick(child.Colors, parent.Colors),
	}
}

func mergePatterns(parent, child *PatternSection) *PatternSection {
	if parent == nil || child == nil {
		return pick(child, parent)
	}
	return &PatternSection{
		Include: concat(parent.Include, child.Include),
		Exclude: concat(parent.Exclude, child.Exclude),
	}
}

func mergeServices(parent, child *ServiceSection) *ServiceSection {
	if parent == nil || child == nil {
		return pick(child, parent)
	}
	return &ServiceSection{
		Skip:          pick(child.Skip, parent.Skip),
		Environment:   pick(child.Environment, parent.Environment),
		GlobalPrep:    pick(child.GlobalPrep, parent.GlobalPrep),
		Prep:          pick(child.Prep, parent.Prep),
		Setup:         pick(child.Setup, parent.Setup),
		Cleanup:       pick(child.Cleanup, parent.Cleanup),
		GlobalCleanup: pick(child.GlobalCleanup, parent.GlobalCleanup),
		EnvFile:       pick(child.EnvFile, parent.EnvFile),

		SkipTimeout:          pick(child.SkipTimeout, parent.SkipTimeout),
		EnvironmentTimeout:   pick(child.EnvironmentTimeout, parent.EnvironmentTimeout),
		GlobalPrepTimeout:    pick(child.GlobalPrepTimeout, parent.GlobalPrepTimeout),
		PrepTimeout:          pick(child.PrepTimeout, parent.PrepTimeout),
		SetupTimeout:         pick(child.SetupTimeout, parent.SetupTimeout),
		CleanupTimeout:       pick(child.CleanupTimeout, parent.CleanupTimeout),
		GlobalCleanupTimeout: pick(child.GlobalCleanupTimeout, parent.GlobalCleanupTimeout),
		Delay:                pick(child.Delay, parent.Delay),
		ShutdownTimeout:      pick(child.ShutdownTimeout, parent.ShutdownTimeout),

		HealthCheck: mergeHealthCheck(parent.HealthCheck, child.HealthCheck),
	}
}

func mergeHealthCheck(parent, child *HealthCheckSection) *HealthCheckSection {
	if parent == nil || child == nil {
		return pick(child, parent)
	}
	return &HealthCheckSection{
		Type:           pick(child.Type, parent.Type),
		URL:            pick(child.URL, parent.URL),
		ExpectedStatus: pick(child.ExpectedStatus, parent.ExpectedStatus),
		ExpectedBody:   pick(child.ExpectedBody, parent.ExpectedBody),
		Host:           pick(child.Host, parent.Host),
		Port:           pick(child.Port, parent.Port),
		Command:        pick(child.Command, parent.Command),
		ExpectedExit:   pick(child.ExpectedExit, parent.ExpectedExit),
		Path:           pick(child.Path, parent.Path),
		DSN:            pick(child.DSN, parent.DSN),
		Interval:       pick(child.Interval, parent.Interval),
		Timeout:        pick(child.Timeout, parent.Timeout),
	}
}

