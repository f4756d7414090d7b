package config

import "time"

// Resolved is the effective configuration for one config group
type Resolved struct {
	ConfigDir  string `yaml:"configDir"`
	ConfigPath string `yaml:"configPath"`

	Enable  EnableMode `yaml:"enable"`
	Depth   int        `yaml:"depth"`
	Profile string     `yaml:"profile"`

	Compiler    Compiler          `yaml:"compiler"`
	Debug       map[string]string `yaml:"debug,omitempty"`
	Execution   Execution         `yaml:"execution"`
	Output      Output            `yaml:"output"`
	Patterns    Patterns          `yaml:"patterns"`
	Services    Services          `yaml:"services"`
	Environment map[string]string `yaml:"environment,omitempty"`
}

// Compiler holds the selected C compiler and its final flags
type Compiler struct {
	C  CSettings  `yaml:"c"`
	Es EsSettings `yaml:"es"`
}

// CSettings is the compiler type (gcc, clang, msvc) and its flags
type CSettings struct {
	Compiler  string   `yaml:"compiler"`
	Flags     []string `yaml:"flags,omitempty"`
	Libraries []string `yaml:"libraries,omitempty"`
}

// EsSettings holds Ejscript module requirements
type EsSettings struct {
	Require []string `yaml:"require,omitempty"`
}

// Execution controls test dispatch
type Execution struct {
	Timeout       time.Duration `yaml:"timeout"`
	Parallel      bool          `yaml:"parallel"`
	Workers       int           `yaml:"workers"`
	Iterations    int           `yaml:"iterations"`
	StopOnFailure bool          `yaml:"stopOnFailure"`
	KeepArtifacts bool          `yaml:"keepArtifacts"`
}

// Output controls reporting
type Output struct {
	Verbose bool   `yaml:"verbose"`
	Format  string `yaml:"format"`
	Colors  bool   `yaml:"colors"`
}

// Patterns select test files
type Patterns struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// Script is one lifecycle command and its timeout
type Script struct {
	Command string        `yaml:"command"`
	Timeout time.Duration `yaml:"timeout"`
}

// Configured reports whether a command was given
func (s Script) Configured() bool {
	return s.Command != ""
}

// Services holds the lifecycle scripts of a group
type Services struct {
	Skip          Script        `yaml:"skip,omitempty"`
	Environment   Script        `yaml:"environment,omitempty"`
	GlobalPrep    Script        `yaml:"globalPrep,omitempty"`
	Prep          Script        `yaml:"prep,omitempty"`
	Setup         Script        `yaml:"setup,omitempty"`
	Cleanup       Script        `yaml:"cleanup,omitempty"`
	GlobalCleanup Script        `yaml:"globalCleanup,omitempty"`
	EnvFile       string        `yaml:"envFile,omitempty"`
	Delay         time.Duration `yaml:"delay"`
	Shutdown      time.Duration `yaml:"shutdownTimeout"`
	HealthCheck   *HealthCheck  `yaml:"healthCheck,omitempty"`
}

// Health check kinds
const (
	HealthHTTP   = "http"
	HealthTCP    = "tcp"
	HealthScript = "script"
	HealthFile   = "file"
	HealthMySQL  = "mysql"
)

// HealthCheck is a resolved readiness probe
type HealthCheck struct {
	Type           string        `yaml:"type"`
	URL            string        `yaml:"url,omitempty"`
	ExpectedStatus int           `yaml:"expectedStatus,omitempty"`
	ExpectedBody   string        `yaml:"expectedBody,omitempty"`
	Host           string        `yaml:"host,omitempty"`
	Port           int           `yaml:"port,omitempty"`
	Command        string        `yaml:"command,omitempty"`
	ExpectedExit   int           `yaml:"expectedExit"`
	Path           string        `yaml:"path,omitempty"`
	DSN            string        `yaml:"dsn,omitempty"`
	Interval       time.Duration `yaml:"interval"`
	Timeout        time.Duration `yaml:"timeout"`
}
