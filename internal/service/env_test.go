//go:build !windows

package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testme/internal/config"
	"testme/internal/platform"
)

func TestParseEnvOutput(t *testing.T) {
	output := "# generated\n" +
		"DB_HOST=localhost\n" +
		"\n" +
		"URL=http://x/?a=b\n" +
		"export TOKEN=abc\n" +
		"not a pair\n" +
		"=novalue\n" +
		"EMPTY=\n" +
		"  PADDED = two words  \n" +
		"QUOTED='kept' # not a comment\r\n"

	assert.Equal(t, map[string]string{
		"DB_HOST": "localhost",
		"URL":     "http://x/?a=b",
		"TOKEN":   "abc",
		"EMPTY":   "",
		"PADDED":  " two words  ",
		"QUOTED":  "'kept' # not a comment",
	}, ParseEnvOutput(output))
}

func TestEnviron(t *testing.T) {
	env := Environ(
		[]string{"PATH=/bin", "A=base", "B=base"},
		map[string]string{"A": "static", "C": "static"},
		map[string]string{"C": "dynamic"},
	)
	assert.Equal(t, []string{"A=static", "B=base", "C=dynamic", "PATH=/bin"}, env)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env.test")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nDATA=${CONFIGDIR}/data\nQUOTED=\"a b\"\n"), 0o644))

	vars, err := LoadEnvFile(path, dir)
	require.NoError(t, err)
	assert.Equal(t, dir+"/data", vars["DATA"])
	assert.Equal(t, "a b", vars["QUOTED"])

	_, err = LoadEnvFile(filepath.Join(dir, "missing"), dir)
	assert.Error(t, err)
}

func TestRunInfo_Vars(t *testing.T) {
	run := RunInfo{
		RunID:      "run-1",
		Platform:   platform.Linux,
		Verbose:    true,
		Depth:      2,
		Iterations: 1,
		Duration:   "10",
		Class:      "smoke",
	}
	cfg := &config.Resolved{
		ConfigDir: "/project",
		Profile:   "dev",
		Compiler:  config.Compiler{C: config.CSettings{Compiler: "gcc"}},
		Execution: config.Execution{Iterations: 3, KeepArtifacts: true},
	}

	vars := run.Vars(cfg, "")
	assert.Equal(t, platform.Linux.Name(), vars["TESTME_PLATFORM"])
	assert.Equal(t, "linux", vars["TESTME_OS"])
	assert.Equal(t, "gcc", vars["TESTME_CC"])
	assert.Equal(t, "dev", vars["TESTME_PROFILE"])
	assert.Equal(t, "2", vars["TESTME_DEPTH"])
	assert.Equal(t, "1", vars["TESTME_VERBOSE"])
	assert.Equal(t, "0", vars["TESTME_QUIET"])
	assert.Equal(t, "3", vars["TESTME_ITERATIONS"])
	assert.Equal(t, "10", vars["TESTME_DURATION"])
	assert.Equal(t, "smoke", vars["TESTME_CLASS"])
	assert.Equal(t, "/project", vars["TESTME_TESTDIR"])
	assert.Equal(t, "/project", vars["TESTME_CONFIGDIR"])
	assert.Equal(t, "1", vars["TESTME_KEEP"])
	assert.Equal(t, "run-1", vars["TESTME_RUN_ID"])

	assert.Equal(t, "/project/unit", run.Vars(cfg, "/project/unit")["TESTME_TESTDIR"])
}
