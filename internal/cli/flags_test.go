package cli

import (
	"errors"
	"testing"
	"time"
)

func TestFlags_ToOptions(t *testing.T) {
	flags := Flags{
		Config:     "ci.json5",
		Verbose:    true,
		Workers:    3,
		Timeout:    90,
		Iterations: 2,
		Depth:      4,
		Profile:    "release",
		Keep:       true,
		Stop:       true,
		Class:      "smoke",
	}

	opts := flags.ToOptions([]string{"unit", ".c"})

	if opts.RootPath != "." {
		t.Errorf("expected default root path, got %s", opts.RootPath)
	}
	if opts.ConfigFile != "ci.json5" || !opts.Verbose || opts.Workers != 3 || opts.Iterations != 2 {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.Timeout != 90*time.Second {
		t.Errorf("expected 90s timeout, got %s", opts.Timeout)
	}
	if opts.Depth != 4 || opts.Profile != "release" || !opts.Keep || !opts.Stop || opts.Class != "smoke" {
		t.Errorf("unexpected options %+v", opts)
	}
	if len(opts.Patterns) != 2 || opts.Patterns[1] != ".c" {
		t.Errorf("unexpected patterns %v", opts.Patterns)
	}

	if (&Flags{}).ToOptions(nil).Timeout != 0 {
		t.Error("unset timeout should defer to the config file")
	}
}

func TestExitError(t *testing.T) {
	cause := errors.New("config broken")
	err := &ExitError{Code: ExitFailure, Err: cause}

	if err.Error() != "config broken" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("ExitError should unwrap to its cause")
	}
	if Fail().Error() != "exit status 1" {
		t.Errorf("unexpected message %q", Fail().Error())
	}
}
