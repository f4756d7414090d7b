package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"testme/internal/cli"
	"testme/internal/cli/commands"
	"testme/internal/logging"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "testme [flags] [patterns...]",
		Short: "Multi-language test runner",
		Long: `Discover test files (*.tst.sh, *.tst.c, *.tst.py, *.tst.js, ...) under the current directory,
resolve their testme.json5 configuration and run them, wrapping each config group in its
skip, prep, setup and cleanup service scripts.`,
		Version: version,
	}

	var flags cli.Flags
	cmds := commands.NewCommands(commands.StdStreams())
	cmds.Register(rootCmd, &flags)

	ctx, stop := cli.NotifyContext(context.Background(), logging.New(false, false), os.Exit)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if err == nil {
		return cli.ExitSuccess
	}
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", exitErr.Err)
		}
		return exitErr.Code
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return cli.ExitFailure
}
