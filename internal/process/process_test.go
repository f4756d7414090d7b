//go:build !windows

package process

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shell(script string) Command {
	return Command{Name: "sh", Args: []string{"-c", script}}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		exitCode int
		output   string
		success  bool
	}{
		{name: "success", script: "echo hello", exitCode: 0, output: "hello\n", success: true},
		{name: "failure exit code", script: "echo oops >&2; exit 7", exitCode: 7, output: "oops\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Run(context.Background(), shell(tt.script), 5*time.Second)
			assert.NoError(t, result.Err)
			assert.Equal(t, tt.exitCode, result.ExitCode)
			assert.Equal(t, tt.output, result.Output)
			assert.Equal(t, tt.success, result.Success())
		})
	}
}

func TestRun_Timeout(t *testing.T) {
	start := time.Now()
	result := Run(context.Background(), shell("sleep 10"), 200*time.Millisecond)

	assert.True(t, result.TimedOut)
	assert.False(t, result.Success())
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestRun_MissingExecutable(t *testing.T) {
	result := Run(context.Background(), Command{Name: "definitely-not-a-real-binary-xyz"}, time.Second)
	require.Error(t, result.Err)
	assert.True(t, errors.Is(result.Err, ErrStart))
}

func TestRun_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	result := Run(ctx, shell("sleep 10"), 0)
	assert.ErrorIs(t, result.Err, context.Canceled)
}

func TestProcess_TerminateGraceful(t *testing.T) {
	p, err := Start(shell("sleep 30"))
	require.NoError(t, err)

	start := time.Now()
	forced := p.Terminate(2 * time.Second)
	elapsed := time.Since(start)

	assert.False(t, forced)
	assert.True(t, p.Exited())
	assert.Less(t, elapsed, 700*time.Millisecond, "a cooperative process should stop within a poll or two")
}

func TestProcess_TerminateForceful(t *testing.T) {
	p, err := Start(shell("trap '' TERM; while true; do sleep 0.05; done"))
	require.NoError(t, err)
	// let the shell install its trap
	time.Sleep(100 * time.Millisecond)

	shutdown := 500 * time.Millisecond
	start := time.Now()
	forced := p.Terminate(shutdown)
	elapsed := time.Since(start)

	assert.True(t, forced)
	assert.True(t, p.Exited())
	assert.GreaterOrEqual(t, elapsed, shutdown)
	assert.Less(t, elapsed, shutdown+PollInterval+400*time.Millisecond)
}

func TestProcess_TerminateImmediate(t *testing.T) {
	p, err := Start(shell("trap '' TERM; sleep 30"))
	require.NoError(t, err)

	start := time.Now()
	assert.True(t, p.Terminate(0))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestProcess_TerminateOnce(t *testing.T) {
	p, err := Start(shell("sleep 30"))
	require.NoError(t, err)

	p.Terminate(time.Second)
	start := time.Now()
	p.Terminate(time.Second)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestProcess_Output(t *testing.T) {
	p, err := Start(shell("echo started; exit 3"))
	require.NoError(t, err)

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
	assert.Equal(t, 3, p.ExitCode())
	assert.Equal(t, "started\n", p.Output())
}
