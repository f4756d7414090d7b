//go:build !windows

package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testme/internal/cli"
	"testme/internal/domain"
)

func shLookPath(name string) (string, error) {
	if name == "bash" {
		name = "sh"
	}
	return exec.LookPath(name)
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	}
}

// execute runs the root command in dir and returns stdout and the error
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(".")

	var out, errOut bytes.Buffer
	rootCmd := &cobra.Command{Use: "testme"}
	var flags cli.Flags
	NewCommands(Streams{In: strings.NewReader(""), Out: &out, Err: &errOut},
		WithLookPath(shLookPath), WithRunID("run-1")).Register(rootCmd, &flags)
	rootCmd.SetArgs(append([]string{"-C", dir}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func exitCode(err error) int {
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if err != nil {
		return -1
	}
	return 0
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"unit/pass.tst.sh": "echo '✓ works'\n",
		"unit/fail.tst.sh": "echo '✗ broken'\nexit 1\n",
		"unit/notes.txt":   "not a test",
	})

	t.Run("failures exit 1", func(t *testing.T) {
		out, err := execute(t, dir, "--format", "json")
		assert.Equal(t, cli.ExitFailure, exitCode(err))

		var report domain.Report
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, "run-1", report.Meta.RunID)
		assert.Equal(t, 2, report.Meta.TotalTests)
		assert.Equal(t, 1, report.Meta.FailedTests)
		require.Len(t, report.Failures, 1)
		assert.Equal(t, "broken", report.Failures[0].Message)
	})

	t.Run("patterns select tests", func(t *testing.T) {
		out, err := execute(t, dir, "pass")
		assert.NoError(t, err)
		assert.Contains(t, out, "All 1 test(s) passed")
	})

	t.Run("no match", func(t *testing.T) {
		out, err := execute(t, dir, "missing")
		assert.NoError(t, err)
		assert.Contains(t, out, "No tests to execute")
	})
}

func TestRun_ConfigError(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"testme.json5": "{ enable: ",
		"a.tst.sh":     "exit 0\n",
	})

	_, err := execute(t, dir)
	assert.Equal(t, cli.ExitFailure, exitCode(err))
	assert.ErrorContains(t, err, "testme.json5")
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"a.tst.sh":      "test_one() {\n  :\n}\n",
		"sub/b.tst.py":  "def test_two():\n    pass\n",
		"node_modules/x/c.tst.js": "",
	})

	out, err := execute(t, dir, "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 2 test file(s)")
	assert.Contains(t, out, "sub/b.tst.py")
	assert.NotContains(t, out, "c.tst.js")

	out, err = execute(t, dir, "--list", "-v", ".py")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 test file(s) with test cases")
	assert.Contains(t, out, "test_two")
}

func TestShow(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"testme.json5": "{ execution: { workers: 3 } }",
	})

	out, err := execute(t, dir, "--show", "--profile", "release")
	require.NoError(t, err)
	assert.Contains(t, out, "profile: release")
	assert.Contains(t, out, "workers: 3")
}

func TestClean(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		".testme/a/bin":      "x",
		"sub/.testme/b/log":  "x",
		"sub/keep.tst.sh":    "exit 0\n",
	})

	out, err := execute(t, dir, "--clean")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 2 artifact director(ies)")
	assert.NoDirExists(t, filepath.Join(dir, ".testme"))
	assert.FileExists(t, filepath.Join(dir, "sub", "keep.tst.sh"))
}

func TestExclusiveModes(t *testing.T) {
	_, err := execute(t, t.TempDir(), "--list", "--clean")
	assert.Error(t, err)
}
