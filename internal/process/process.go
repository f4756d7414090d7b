// Package process runs test and service subprocesses in their own process
// group with per-process timeouts and graceful-then-forceful termination.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

// PollInterval is how often Terminate checks whether a signalled process exited
var PollInterval = 100 * time.Millisecond

// waitDelay bounds how long Wait blocks on output pipes held open by orphans
const waitDelay = time.Second

// Command describes a subprocess
type Command struct {
	Name  string
	Args  []string
	Dir   string
	Env   []string
	Stdin io.Reader
	// Stdout and Stderr replace output capture when set (debug runs)
	Stdout io.Writer
	Stderr io.Writer
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return fmt.Sprintf("%s %v", c.Name, c.Args)
}

// Result is the outcome of a foreground run
type Result struct {
	ExitCode int
	Output   string
	Duration time.Duration
	TimedOut bool
	// Err is set when the process could not be started or did not exit normally
	Err error
}

// Success reports whether the process ran and exited with code 0
func (r Result) Success() bool {
	return r.Err == nil && !r.TimedOut && r.ExitCode == 0
}

// ErrStart wraps failures to launch the executable
var ErrStart = errors.New("failed to start process")

func (c Command) build() *exec.Cmd {
	cmd := exec.Command(c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdin = c.Stdin
	cmd.WaitDelay = waitDelay
	setupProcessGroup(cmd)
	return cmd
}

// Run executes c in the foreground. The process group is killed when timeout
// (if > 0) elapses or ctx is done. Use context.WithoutCancel to shield a
// process from cancellation.
func Run(ctx context.Context, c Command, timeout time.Duration) Result {
	cmd := c.build()
	var output syncBuffer
	if c.Stdout != nil || c.Stderr != nil {
		cmd.Stdout = c.Stdout
		cmd.Stderr = c.Stderr
	} else {
		cmd.Stdout = &output
		cmd.Stderr = &output
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1, Err: fmt.Errorf("%w %s: %v", ErrStart, c.Name, err)}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	result := Result{}
	var waitErr error
	select {
	case waitErr = <-done:
	case <-timer:
		_ = killProcessGroup(cmd.Process)
		waitErr = <-done
		result.TimedOut = true
	case <-ctx.Done():
		_ = killProcessGroup(cmd.Process)
		waitErr = <-done
		result.Err = ctx.Err()
	}

	result.Duration = time.Since(start)
	result.Output = output.String()
	result.ExitCode = exitCode(cmd, waitErr)
	if waitErr != nil && result.Err == nil && !result.TimedOut {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			result.Err = waitErr
		}
	}
	return result
}

func exitCode(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if waitErr != nil {
		return -1
	}
	return 0
}

// Process is a background subprocess owned by exactly one caller
type Process struct {
	cmd    *exec.Cmd
	done   chan struct{}
	output syncBuffer

	waitErr error

	once   sync.Once
	forced bool
}

// Start launches c in the background
func Start(c Command) (*Process, error) {
	p := &Process{done: make(chan struct{})}
	p.cmd = c.build()
	if c.Stdout != nil || c.Stderr != nil {
		p.cmd.Stdout = c.Stdout
		p.cmd.Stderr = c.Stderr
	} else {
		p.cmd.Stdout = &p.output
		p.cmd.Stderr = &p.output
	}
	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrStart, c.Name, err)
	}
	go func() {
		p.waitErr = p.cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

// Pid returns the operating system process id
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Done is closed once the process has exited and been reaped
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Exited reports whether the process has exited
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// ExitCode returns the exit code, or -1 while running or when killed by a signal
func (p *Process) ExitCode() int {
	if !p.Exited() || p.cmd.ProcessState == nil {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// Output returns everything the process wrote so far
func (p *Process) Output() string {
	return p.output.String()
}

// Terminate stops the process group: a graceful signal, polling every
// PollInterval up to shutdown, then a forceful kill. A shutdown of zero kills
// immediately. Only the first call acts; it reports whether a kill was needed.
func (p *Process) Terminate(shutdown time.Duration) bool {
	p.once.Do(func() {
		if p.Exited() {
			// reap anything the process left behind in its group
			_ = killProcessGroup(p.cmd.Process)
			return
		}
		if shutdown <= 0 {
			p.forced = true
			_ = killProcessGroup(p.cmd.Process)
			<-p.done
			return
		}

		_ = terminateProcessGroup(p.cmd.Process)
		start := time.Now()
		ticker := time.NewTicker(PollInterval)
		defer ticker.Stop()
		for range ticker.C {
			if p.Exited() {
				_ = killProcessGroup(p.cmd.Process)
				return
			}
			if time.Since(start) >= shutdown {
				p.forced = true
				_ = killProcessGroup(p.cmd.Process)
				<-p.done
				return
			}
		}
	})
	return p.forced
}

// syncBuffer is a bytes.Buffer safe for concurrent writers and readers
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
