package config

import (
	"path/filepath"
	"time"
)

// Options holds the settings of one invocation. Values set here override the
// matching keys of every resolved config file.
type Options struct {
	// Directory settings
	RootPath   string
	ConfigFile string

	// Patterns given on the command line
	Patterns []string

	// Output settings
	Verbose bool
	Quiet   bool
	Format  string
	NoColor bool

	// Execution overrides, zero means "use the config file"
	Workers    int
	Timeout    time.Duration
	Iterations int
	Profile    string
	Keep       bool
	Stop       bool

	// Run modes
	Depth    int
	Debug    bool
	Step     bool
	Duration string
	Class    string
}

// New creates Options with defaults
func New() *Options {
	return &Options{
		RootPath: DefaultRootPath,
	}
}

// GetRootPath returns the absolute discovery root
func (o *Options) GetRootPath() string {
	root := o.RootPath
	if root == "" {
		root = DefaultRootPath
	}
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return root
}

// GetConfigFile returns the absolute override config path, or "" when unset
func (o *Options) GetConfigFile() string {
	if o.ConfigFile == "" {
		return ""
	}
	if filepath.IsAbs(o.ConfigFile) {
		return o.ConfigFile
	}
	return filepath.Join(o.GetRootPath(), o.ConfigFile)
}
