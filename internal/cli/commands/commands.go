package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"testme/internal/cli"
	"testme/internal/config"
	"testme/internal/discovery"
	"testme/internal/execution"
	"testme/internal/logging"
	"testme/internal/parser"
	"testme/internal/storage"
	"testme/internal/ui"
)

// Streams are the standard streams the commands use
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdStreams returns the process streams
func StdStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// Commands holds every mode of the root command. Dependencies are built in
// PreRunE, once flags are parsed.
type Commands struct {
	streams  Streams
	lookPath execution.LookPathFunc
	runID    string

	options   *config.Options
	logger    *zap.Logger
	resolver  *config.Resolver
	scanner   *discovery.Scanner
	filter    *discovery.Filter
	formatter *ui.Formatter
	storage   *storage.JSONStorage

	Run   *RunCommand
	List  *ListCommand
	Clean *CleanCommand
	Show  *ShowCommand
}

// Option configures Commands
type Option func(*Commands)

// WithLookPath replaces the interpreter lookup used by the adapters
func WithLookPath(fn execution.LookPathFunc) Option {
	return func(c *Commands) { c.lookPath = fn }
}

// WithRunID fixes the run id instead of generating one
func WithRunID(id string) Option {
	return func(c *Commands) { c.runID = id }
}

// NewCommands creates the commands writing to streams
func NewCommands(streams Streams, options ...Option) *Commands {
	c := &Commands{streams: streams, lookPath: exec.LookPath}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// build wires the dependencies for opts
func (c *Commands) build(opts *config.Options) {
	c.options = opts
	c.logger = logging.NewWithWriter(c.streams.Err, logging.Level(opts.Verbose, opts.Quiet))
	c.resolver = config.NewResolver(opts, c.logger)
	c.scanner = discovery.NewScanner(config.DefaultPathsToIgnore)
	c.filter = discovery.NewFilter()

	assertions := parser.NewAssertionParser()
	root := opts.GetRootPath()
	c.formatter = ui.NewFormatter(c.streams.Out, opts, assertions, discovery.NewParser())
	c.storage = storage.NewJSONStorage(root)

	runner := execution.NewRunner(execution.DefaultAdapters(c.resolver.Platform(), c.lookPath), assertions, c.logger)
	orchestratorOptions := []execution.OrchestratorOption{
		execution.WithWorkDir(root),
		execution.WithStepIO(c.streams.In, c.streams.Err),
		execution.WithDebugOutput(c.streams.Out),
	}
	if c.runID != "" {
		orchestratorOptions = append(orchestratorOptions, execution.WithRunID(c.runID))
	}
	if !opts.Quiet && ui.IsTerminal(c.streams.Err) {
		orchestratorOptions = append(orchestratorOptions, execution.WithProgress(func(total int) execution.Progress {
			return ui.NewProgressBar(c.streams.Err, total)
		}))
	}
	orchestrator := execution.NewOrchestrator(opts, c.resolver, runner, c.logger, orchestratorOptions...)
	viewer := ui.NewFailureViewer(c.storage, c.streams.Out, c.logger)

	c.Run = NewRunCommand(opts, c.resolver, c.scanner, c.filter, orchestrator, c.formatter, c.storage, viewer, c.logger)
	c.List = NewListCommand(opts, c.resolver, c.scanner, c.filter, c.formatter, c.logger)
	c.Clean = NewCleanCommand(opts, c.streams.Out)
	c.Show = NewShowCommand(opts, c.resolver, c.formatter)
}

// Register installs the flags and the mode dispatch on rootCmd
func (c *Commands) Register(rootCmd *cobra.Command, flags *cli.Flags) {
	rootCmd.Args = cobra.ArbitraryArgs
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if flags.Chdir != "" {
			if err := os.Chdir(flags.Chdir); err != nil {
				return fmt.Errorf("cannot change to %s: %w", flags.Chdir, err)
			}
		}
		if flags.NoColor || !ui.IsTerminal(c.streams.Out) {
			color.NoColor = true
		}
		c.build(flags.ToOptions(args))
		return nil
	}

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		switch {
		case flags.Clean:
			return c.Clean.Execute(ctx)
		case flags.Show:
			return c.Show.Execute(ctx)
		case flags.List:
			return c.List.Execute(ctx)
		}
		return c.Run.Execute(ctx, flags.Browse)
	}

	f := rootCmd.Flags()
	f.BoolVar(&flags.List, "list", false, "List discovered tests without running them (with -v, list test functions)")
	f.BoolVar(&flags.Clean, "clean", false, "Remove all .testme artifact directories under the current directory")
	f.BoolVar(&flags.Show, "show", false, "Print the resolved configuration for the current directory as YAML")
	f.BoolVar(&flags.Browse, "browse", false, "Open the failure viewer after a run with failures")
	f.StringVarP(&flags.Chdir, "chdir", "C", "", "Change to this directory before doing anything")
	f.StringVar(&flags.Config, "config", "", "Use this config file instead of searching for testme.json5")
	f.BoolVarP(&flags.Verbose, "verbose", "v", false, "Show test output and debug diagnostics")
	f.BoolVarP(&flags.Quiet, "quiet", "q", false, "Only report failures")
	f.StringVar(&flags.Format, "format", "", "Report format: simple, detailed, table, json or yaml")
	f.BoolVar(&flags.NoColor, "no-color", false, "Disable coloured output")
	f.IntVarP(&flags.Workers, "workers", "w", 0, "Number of tests to run in parallel (default from config, else CPU count)")
	f.IntVar(&flags.Timeout, "timeout", 0, "Per-test timeout in seconds")
	f.IntVarP(&flags.Iterations, "iterations", "i", 0, "Run every test this many times")
	f.IntVar(&flags.Depth, "depth", 0, "Run groups that require at most this depth")
	f.StringVar(&flags.Profile, "profile", "", "Build profile exposed as ${PROFILE}")
	f.BoolVarP(&flags.Keep, "keep", "k", false, "Keep artifact directories after tests")
	f.BoolVarP(&flags.Stop, "stop", "s", false, "Stop launching tests after the first failure")
	f.BoolVar(&flags.Debug, "debug", false, "Run tests one at a time with no timeout and stream their output")
	f.BoolVar(&flags.Step, "step", false, "Wait for Enter before each test")
	f.StringVar(&flags.Duration, "duration", "", "Test duration hint exported as TESTME_DURATION")
	f.StringVar(&flags.Class, "class", "", "Test class exported as TESTME_CLASS")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	rootCmd.MarkFlagsMutuallyExclusive("list", "clean", "show")
}
