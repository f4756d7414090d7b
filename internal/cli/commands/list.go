package commands

import (
	"context"

	"go.uber.org/zap"

	"testme/internal/cli"
	"testme/internal/config"
	"testme/internal/discovery"
	"testme/internal/ui"
)

// ListCommand handles --list
type ListCommand struct {
	options   *config.Options
	resolver  *config.Resolver
	scanner   *discovery.Scanner
	filter    *discovery.Filter
	formatter *ui.Formatter
	logger    *zap.Logger
}

// NewListCommand creates a new ListCommand
func NewListCommand(
	opts *config.Options,
	resolver *config.Resolver,
	scanner *discovery.Scanner,
	filter *discovery.Filter,
	formatter *ui.Formatter,
	logger *zap.Logger,
) *ListCommand {
	return &ListCommand{
		options:   opts,
		resolver:  resolver,
		scanner:   scanner,
		filter:    filter,
		formatter: formatter,
		logger:    logger,
	}
}

// Execute runs the command
func (lc *ListCommand) Execute(ctx context.Context) error {
	_, tests, err := discover(lc.options, lc.resolver, lc.scanner, lc.filter, lc.logger)
	if err != nil {
		return &cli.ExitError{Code: cli.ExitFailure, Err: err}
	}

	if len(tests) == 0 {
		lc.formatter.PrintNotice("No tests found")
		return nil
	}

	return lc.formatter.PrintTestList(tests, lc.options.Verbose)
}
