package execution

import (
	"context"
	"fmt"
	"io"
	"time"

	"testme/internal/config"
	"testme/internal/domain"
	"testme/internal/process"
)

// Job is one execution of one test file
type Job struct {
	File      domain.TestFile
	Config    *config.Resolved
	Env       []string
	Timeout   time.Duration
	Iteration int
	Debug     bool

	// Stdout and Stderr stream the test output instead of capturing it
	Stdout io.Writer
	Stderr io.Writer

	// argv is the resolved command, filled in by Prepare
	argv []string
}

// Adapter runs one kind of test file
type Adapter interface {
	// Prepare checks the toolchain and builds whatever the test needs
	Prepare(ctx context.Context, job *Job) error
	// Execute runs the prepared test
	Execute(ctx context.Context, job *Job) domain.TestResult
	// Cleanup removes what Prepare created
	Cleanup(job *Job) error
}

// ToolchainError reports a missing interpreter or compiler
type ToolchainError struct {
	Tool string
	Hint string
}

func (e *ToolchainError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("%s not found", e.Tool)
	}
	return fmt.Sprintf("%s not found: %s", e.Tool, e.Hint)
}

// CompileError is a test that did not compile
type CompileError struct {
	Log    string
	Output string
}

func (e *CompileError) Error() string {
	return "compilation failed, see " + e.Log
}

// execute runs cmd for job and maps the outcome onto a result
func execute(ctx context.Context, job *Job, cmd process.Command) domain.TestResult {
	if job.Stdout != nil || job.Stderr != nil {
		cmd.Stdout = job.Stdout
		cmd.Stderr = job.Stderr
	}
	res := process.Run(ctx, cmd, job.Timeout)

	result := domain.TestResult{
		File:      job.File,
		Output:    res.Output,
		Duration:  res.Duration,
		Iteration: job.Iteration,
	}
	if res.Err == nil || res.TimedOut {
		code := res.ExitCode
		result.ExitCode = &code
	}

	switch {
	case res.TimedOut:
		result.Status = domain.StatusFailed
		result.Error = fmt.Sprintf("test timed out after %s", job.Timeout)
		result.Output = appendLine(result.Output, result.Error)
	case res.Err != nil:
		result.Status = domain.StatusError
		result.Error = res.Err.Error()
	case res.ExitCode == 0:
		result.Status = domain.StatusPassed
	default:
		result.Status = domain.StatusFailed
		result.Error = fmt.Sprintf("exited with code %d", res.ExitCode)
	}
	return result
}

func appendLine(output, line string) string {
	if output != "" && output[len(output)-1] != '\n' {
		output += "\n"
	}
	return output + line + "\n"
}
