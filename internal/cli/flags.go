package cli

import (
	"time"

	"testme/internal/config"
)

// Flags holds command-line flags
type Flags struct {
	List    bool
	Clean   bool
	Show    bool
	Browse  bool
	Chdir   string
	Config  string
	Verbose bool
	Quiet   bool
	Format  string
	NoColor bool

	Workers    int
	Timeout    int
	Iterations int
	Depth      int
	Profile    string
	Keep       bool
	Stop       bool
	Debug      bool
	Step       bool
	Duration   string
	Class      string
}

// ToOptions converts CLI flags and positional patterns to run options
func (f *Flags) ToOptions(patterns []string) *config.Options {
	opts := config.New()
	opts.ConfigFile = f.Config
	opts.Patterns = patterns
	opts.Verbose = f.Verbose
	opts.Quiet = f.Quiet
	opts.Format = f.Format
	opts.NoColor = f.NoColor
	opts.Workers = f.Workers
	if f.Timeout > 0 {
		opts.Timeout = time.Duration(f.Timeout) * time.Second
	}
	opts.Iterations = f.Iterations
	opts.Depth = f.Depth
	opts.Profile = f.Profile
	opts.Keep = f.Keep
	opts.Stop = f.Stop
	opts.Debug = f.Debug
	opts.Step = f.Step
	opts.Duration = f.Duration
	opts.Class = f.Class
	return opts
}
