package commands

import (
	"context"

	"testme/internal/cli"
	"testme/internal/config"
	"testme/internal/ui"
)

// ShowCommand handles --show
type ShowCommand struct {
	options   *config.Options
	resolver  *config.Resolver
	formatter *ui.Formatter
}

// NewShowCommand creates a new ShowCommand
func NewShowCommand(opts *config.Options, resolver *config.Resolver, formatter *ui.Formatter) *ShowCommand {
	return &ShowCommand{options: opts, resolver: resolver, formatter: formatter}
}

// Execute prints the configuration that governs the current directory
func (sc *ShowCommand) Execute(ctx context.Context) error {
	cfg, err := sc.resolver.Resolve(sc.options.GetRootPath())
	if err != nil {
		return &cli.ExitError{Code: cli.ExitFailure, Err: err}
	}
	return sc.formatter.PrintConfig(cfg)
}
