package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"testme/internal/cli"
	"testme/internal/config"
	"testme/internal/discovery"
	"testme/internal/domain"
	"testme/internal/execution"
	"testme/internal/storage"
	"testme/internal/ui"
)

// RunCommand discovers and runs the tests
type RunCommand struct {
	options      *config.Options
	resolver     *config.Resolver
	scanner      *discovery.Scanner
	filter       *discovery.Filter
	orchestrator *execution.Orchestrator
	formatter    *ui.Formatter
	storage      storage.Storage
	viewer       ui.Viewer
	logger       *zap.Logger
}

// NewRunCommand creates a new RunCommand
func NewRunCommand(
	opts *config.Options,
	resolver *config.Resolver,
	scanner *discovery.Scanner,
	filter *discovery.Filter,
	orchestrator *execution.Orchestrator,
	formatter *ui.Formatter,
	st storage.Storage,
	viewer ui.Viewer,
	logger *zap.Logger,
) *RunCommand {
	return &RunCommand{
		options:      opts,
		resolver:     resolver,
		scanner:      scanner,
		filter:       filter,
		orchestrator: orchestrator,
		formatter:    formatter,
		storage:      st,
		viewer:       viewer,
		logger:       logger,
	}
}

// Execute runs the command. browse opens the failure viewer when the run
// has failures.
func (rc *RunCommand) Execute(ctx context.Context, browse bool) error {
	rootCfg, tests, err := discover(rc.options, rc.resolver, rc.scanner, rc.filter, rc.logger)
	if err != nil {
		return &cli.ExitError{Code: cli.ExitFailure, Err: err}
	}
	if len(tests) == 0 {
		rc.formatter.PrintNotice("No tests to execute")
		return nil
	}
	if !rootCfg.Output.Colors {
		color.NoColor = true
	}

	rc.logger.Debug("starting run",
		zap.String("runId", rc.orchestrator.RunID()),
		zap.Int("tests", len(tests)))

	summary, err := rc.orchestrator.Run(ctx, tests)
	if err != nil {
		return &cli.ExitError{Code: cli.ExitFailure, Err: err}
	}
	if err := rc.formatter.PrintSummary(summary, rootCfg.Output.Format); err != nil {
		return &cli.ExitError{Code: cli.ExitFailure, Err: err}
	}

	if browse && !summary.Success() {
		if err := rc.browse(rc.formatter.BuildReport(summary)); err != nil {
			return &cli.ExitError{Code: cli.ExitFailure, Err: err}
		}
	}
	if !summary.Success() {
		return cli.Fail()
	}
	return nil
}

// browse saves the report so resolved marks survive, then opens the viewer
func (rc *RunCommand) browse(report *domain.Report) error {
	if err := rc.storage.Save(report); err != nil {
		return fmt.Errorf("failed to save test results: %w", err)
	}
	return rc.viewer.View(report)
}

// discover resolves the root config and returns the tests selected by its
// patterns and the command line patterns
func discover(opts *config.Options, resolver *config.Resolver, scanner *discovery.Scanner, filter *discovery.Filter, logger *zap.Logger) (*config.Resolved, []domain.TestFile, error) {
	root := opts.GetRootPath()
	rootCfg, err := resolver.Resolve(root)
	if err != nil {
		return nil, nil, err
	}

	tests, warnings := scanner.Discover(root, rootCfg.Patterns.Include, rootCfg.Patterns.Exclude)
	for _, warning := range warnings {
		logger.Warn("discovery", zap.Error(warning))
	}
	if len(tests) == 0 && len(warnings) > 0 {
		return nil, nil, errors.Join(warnings...)
	}
	return rootCfg, filter.Match(tests, opts.Patterns), nil
}
