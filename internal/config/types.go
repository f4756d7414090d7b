package config

import (
	"encoding/json"
	"fmt"

	"testme/internal/platform"
)

// Recognized top-level keys that can be inherited
const (
	KeyEnable      = "enable"
	KeyDepth       = "depth"
	KeyProfile     = "profile"
	KeyCompiler    = "compiler"
	KeyDebug       = "debug"
	KeyExecution   = "execution"
	KeyOutput      = "output"
	KeyPatterns    = "patterns"
	KeyServices    = "services"
	KeyEnvironment = "environment"
)

// InheritableKeys lists every key `inherit: true` pulls from the parent
var InheritableKeys = []string{
	KeyEnable, KeyDepth, KeyProfile, KeyCompiler, KeyDebug,
	KeyExecution, KeyOutput, KeyPatterns, KeyServices, KeyEnvironment,
}

// EnableMode is the `enable` key: true, false or "manual"
type EnableMode string

const (
	EnableOn     EnableMode = "true"
	EnableOff    EnableMode = "false"
	EnableManual EnableMode = "manual"
)

func (m *EnableMode) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			*m = EnableOn
		} else {
			*m = EnableOff
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("enable must be true, false or \"manual\"")
	}
	switch EnableMode(s) {
	case EnableOn, EnableOff, EnableManual:
		*m = EnableMode(s)
		return nil
	}
	return fmt.Errorf("enable must be true, false or \"manual\", got %q", s)
}

// Inherit is the `inherit` key: a boolean or a list of keys
type Inherit struct {
	All  bool
	Keys []string
}

func (i *Inherit) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		i.All = b
		return nil
	}
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return fmt.Errorf("inherit must be a boolean or a list of keys")
	}
	i.Keys = keys
	return nil
}

// List returns the keys to inherit, nil for none
func (i *Inherit) List() []string {
	if i == nil {
		return nil
	}
	if i.All {
		return InheritableKeys
	}
	return i.Keys
}

// File is one parsed config file. Pointer fields are nil when the key is absent.
type File struct {
	Enable    *EnableMode       `json:"enable,omitempty"`
	Depth     *int              `json:"depth,omitempty"`
	Profile   *string           `json:"profile,omitempty"`
	Inherit   *Inherit          `json:"inherit,omitempty"`
	Compiler  *CompilerSection  `json:"compiler,omitempty"`
	Debug     map[string]string `json:"debug,omitempty"`
	Execution *ExecutionSection `json:"execution,omitempty"`
	Output    *OutputSection    `json:"output,omitempty"`
	Patterns  *PatternSection   `json:"patterns,omitempty"`
	Services  *ServiceSection   `json:"services,omitempty"`

	RawEnvironment map[string]json.RawMessage `json:"environment,omitempty"`
	RawEnv         map[string]json.RawMessage `json:"env,omitempty"`

	// Environment is the platform-blended view of environment/env
	Environment map[string]string `json:"-"`

	Path string `json:"-"`
	Dir  string `json:"-"`
}

// CompilerSection holds per-language compiler settings
type CompilerSection struct {
	C  *CCompiler  `json:"c,omitempty"`
	Es *EsCompiler `json:"es,omitempty"`
}

// CCompiler holds the compiler choice and per-compiler flag sets
type CCompiler struct {
	Compiler *CompilerChoice `json:"compiler,omitempty"`
	GCC      *FlagSet        `json:"gcc,omitempty"`
	Clang    *FlagSet        `json:"clang,omitempty"`
	MSVC     *FlagSet        `json:"msvc,omitempty"`
}

// FlagSet returns the flags for a compiler type
func (c *CCompiler) FlagSet(compiler string) *FlagSet {
	if c == nil {
		return nil
	}
	switch compiler {
	case platform.GCC:
		return c.GCC
	case platform.Clang:
		return c.Clang
	case platform.MSVC:
		return c.MSVC
	}
	return nil
}

// CompilerChoice is a compiler name or a per-platform map of names
type CompilerChoice struct {
	Default string `json:"default,omitempty"`
	Windows string `json:"windows,omitempty"`
	MacOS   string `json:"macosx,omitempty"`
	Linux   string `json:"linux,omitempty"`
}

func (c *CompilerChoice) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Default = s
		return nil
	}
	type plain CompilerChoice
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("compiler must be a name or a per-platform object")
	}
	*c = CompilerChoice(p)
	return nil
}

// For returns the compiler chosen for p, "" for auto-detection
func (c *CompilerChoice) For(p platform.Platform) string {
	if c == nil {
		return ""
	}
	if v := platform.Select(p, c.Windows, c.MacOS, c.Linux); v != "" {
		return v
	}
	if c.Default == "default" {
		return ""
	}
	return c.Default
}

// FlagSet is the flags and libraries for one compiler type
type FlagSet struct {
	Flags     []string `json:"flags,omitempty"`
	Libraries []string `json:"libraries,omitempty"`
	Windows   *FlagSet `json:"windows,omitempty"`
	MacOS     *FlagSet `json:"macosx,omitempty"`
	Linux     *FlagSet `json:"linux,omitempty"`
}

// EsCompiler holds Ejscript settings
type EsCompiler struct {
	Require []string `json:"require,omitempty"`
}

// ExecutionSection controls how tests run. Timeout is in seconds.
type ExecutionSection struct {
	Timeout       *float64 `json:"timeout,omitempty"`
	Parallel      *bool    `json:"parallel,omitempty"`
	Workers       *int     `json:"workers,omitempty"`
	Iterations    *int     `json:"iterations,omitempty"`
	StopOnFailure *bool    `json:"stopOnFailure,omitempty"`
	KeepArtifacts *bool    `json:"keepArtifacts,omitempty"`
}

// OutputSection controls reporting
type OutputSection struct {
	Verbose *bool   `json:"verbose,omitempty"`
	Format  *string `json:"format,omitempty"`
	Colors  *bool   `json:"colors,omitempty"`
}

// PatternSection selects test files
type PatternSection struct {
	Include []string        `json:"include,omitempty"`
	Exclude []string        `json:"exclude,omitempty"`
	Windows *PatternSection `json:"windows,omitempty"`
	MacOS   *PatternSection `json:"macosx,omitempty"`
	Linux   *PatternSection `json:"linux,omitempty"`
}

// ServiceSection holds lifecycle script commands. Timeouts and delays are in seconds.
type ServiceSection struct {
	Skip          *string `json:"skip,omitempty"`
	Environment   *string `json:"environment,omitempty"`
	GlobalPrep    *string `json:"globalPrep,omitempty"`
	Prep          *string `json:"prep,omitempty"`
	Setup         *string `json:"setup,omitempty"`
	Cleanup       *string `json:"cleanup,omitempty"`
	GlobalCleanup *string `json:"globalCleanup,omitempty"`
	EnvFile       *string `json:"envFile,omitempty"`

	SkipTimeout          *float64 `json:"skipTimeout,omitempty"`
	EnvironmentTimeout   *float64 `json:"environmentTimeout,omitempty"`
	GlobalPrepTimeout    *float64 `json:"globalPrepTimeout,omitempty"`
	PrepTimeout          *float64 `json:"prepTimeout,omitempty"`
	SetupTimeout         *float64 `json:"setupTimeout,omitempty"`
	CleanupTimeout       *float64 `json:"cleanupTimeout,omitempty"`
	GlobalCleanupTimeout *float64 `json:"globalCleanupTimeout,omitempty"`
	Delay                *float64 `json:"delay,omitempty"`
	ShutdownTimeout      *float64 `json:"shutdownTimeout,omitempty"`

	HealthCheck *HealthCheckSection `json:"healthCheck,omitempty"`
}

// HealthCheckSection describes a readiness probe. Interval is in
// milliseconds, Timeout in seconds.
type HealthCheckSection struct {
	Type           *string  `json:"type,omitempty"`
	URL            *string  `json:"url,omitempty"`
	ExpectedStatus *int     `json:"expectedStatus,omitempty"`
	ExpectedBody   *string  `json:"expectedBody,omitempty"`
	Host           *string  `json:"host,omitempty"`
	Port           *int     `json:"port,omitempty"`
	Command        *string  `json:"command,omitempty"`
	ExpectedExit   *int     `json:"expectedExit,omitempty"`
	Path           *string  `json:"path,omitempty"`
	DSN            *string  `json:"dsn,omitempty"`
	Interval       *float64 `json:"interval,omitempty"`
	Timeout        *float64 `json:"timeout,omitempty"`
}
