package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"testme/internal/cli"
	"testme/internal/config"
	"testme/internal/execution"
)

// CleanCommand handles --clean
type CleanCommand struct {
	options *config.Options
	out     io.Writer
}

// NewCleanCommand creates a new CleanCommand
func NewCleanCommand(opts *config.Options, out io.Writer) *CleanCommand {
	return &CleanCommand{options: opts, out: out}
}

// Execute removes every artifact directory under the root
func (cc *CleanCommand) Execute(ctx context.Context) error {
	removed, err := execution.CleanArtifacts(cc.options.GetRootPath(), config.DefaultPathsToIgnore)
	for _, dir := range removed {
		if !cc.options.Quiet {
			fmt.Fprintf(cc.out, "removed %s\n", dir)
		}
	}
	if err != nil {
		return &cli.ExitError{Code: cli.ExitFailure, Err: err}
	}
	color.New(color.FgGreen).Fprintf(cc.out, "✓ Removed %d artifact director(ies)\n", len(removed))
	return nil
}
